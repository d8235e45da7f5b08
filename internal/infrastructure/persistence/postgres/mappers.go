package postgres

import (
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
)

// toDomainModel: maps db model to domain entity
func toDomainModel(m OrderModel) *domain.Order {
	return &domain.Order{
		ID:                   m.ID,
		ListingID:            m.ListingID,
		BuyerID:              m.BuyerID,
		State:                domain.OrderState(m.State),
		ProtestStatus:        domain.ProtestStatus(m.ProtestStatus),
		CaptureAfter:         m.CaptureAfter.UTC(),
		PaymentHoldReference: m.PaymentHoldReference,
		DeliveryStatus:       m.DeliveryStatus,
		ReleasedAt:           utcPtr(m.ReleasedAt),
		ProtestFiledAt:       utcPtr(m.ProtestFiledAt),
		CaptureAttempts:      m.CaptureAttempts,
		LastCaptureError:     m.LastCaptureError,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}

// toDBModel: maps domain entity to db model
func toDBModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:                   o.ID,
		ListingID:            o.ListingID,
		BuyerID:              o.BuyerID,
		State:                string(o.State),
		ProtestStatus:        string(o.ProtestStatus),
		CaptureAfter:         o.CaptureAfter,
		PaymentHoldReference: o.PaymentHoldReference,
		DeliveryStatus:       o.DeliveryStatus,
		ReleasedAt:           o.ReleasedAt,
		ProtestFiledAt:       o.ProtestFiledAt,
		CaptureAttempts:      o.CaptureAttempts,
		LastCaptureError:     o.LastCaptureError,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func toDomainEvent(m OrderEventModel) domain.OrderEvent {
	return domain.OrderEvent{
		ID:         m.ID,
		OrderID:    m.OrderID,
		Kind:       domain.OrderEventKind(m.Kind),
		Detail:     m.Detail,
		OccurredAt: m.OccurredAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
