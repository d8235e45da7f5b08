package domain_test

import (
	"testing"

	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewDeliveryEvent(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		delivered bool
	}{
		{"lowercase delivered", "delivered", true},
		{"carrier casing", "Delivered", true},
		{"padded", "  DELIVERED  ", true},
		{"in transit", "En route to sorting center", false},
		{"empty", "", false},
		{"delivered prefix is not delivered", "delivered to neighbour", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := domain.NewDeliveryEvent("o1", "", tt.status)

			assert.Equal(t, tt.delivered, event.Delivered())
		})
	}
}

func TestDeliveryEvent_Correlation(t *testing.T) {
	assert.True(t, domain.NewDeliveryEvent(" o1 ", "", "delivered").HasCorrelation())
	assert.True(t, domain.NewDeliveryEvent("", "listing-9", "delivered").HasCorrelation())
	assert.False(t, domain.NewDeliveryEvent("  ", "", "delivered").HasCorrelation())

	event := domain.NewDeliveryEvent(" o1 ", " listing-9 ", "Delivered")
	assert.Equal(t, "o1", event.OrderID)
	assert.Equal(t, "listing-9", event.ListingID)
	assert.Equal(t, "delivered", event.Status)
	assert.Equal(t, "delivered", event.Kind.String())
}
