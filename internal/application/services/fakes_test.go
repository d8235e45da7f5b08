package services_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOrderRepository is an in-memory store with the same compare-and-swap
// semantics as the postgres repository. Fn hooks override single methods.
type fakeOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	events []domain.OrderEvent

	markCapturedCalls int
	markCapturedHits  int

	FindByIDFn          func(ctx context.Context, id string) (*domain.Order, error)
	FindDueForCaptureFn func(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
	MarkCapturedFn      func(ctx context.Context, id string, releasedAt time.Time, deliveryStatus *string) (bool, error)
	FileProtestFn       func(ctx context.Context, id string, filedAt time.Time) (bool, error)
}

var _ application.OrderRepository = (*fakeOrderRepository)(nil)

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *fakeOrderRepository) get(id string) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

func (r *fakeOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if r.FindByIDFn != nil {
		return r.FindByIDFn(ctx, id)
	}
	if o := r.get(id); o != nil {
		return o, nil
	}
	return nil, domain.NewOrderNotFoundError(id)
}

func (r *fakeOrderRepository) FindLatestByListingID(_ context.Context, listingID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Order
	for _, o := range r.orders {
		if o.ListingID != listingID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(latest), nil
}

func (r *fakeOrderRepository) FindDueForCapture(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	if r.FindDueForCaptureFn != nil {
		return r.FindDueForCaptureFn(ctx, now, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.Order
	for _, o := range r.orders {
		if o.State != domain.StateRequiresCapture || o.ProtestStatus != domain.ProtestNone || o.CaptureAfter.After(now) {
			continue
		}
		if o.PaymentHoldReference == nil {
			continue
		}
		if o.LastCaptureError != nil && *o.LastCaptureError == string(application.CategoryPermanent) {
			continue
		}
		due = append(due, cloneOrder(o))
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].CaptureAttempts != due[j].CaptureAttempts {
			return due[i].CaptureAttempts < due[j].CaptureAttempts
		}
		if due[i].CaptureAfter.Equal(due[j].CaptureAfter) {
			return due[i].ID < due[j].ID
		}
		return due[i].CaptureAfter.Before(due[j].CaptureAfter)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeOrderRepository) MarkCaptured(ctx context.Context, id string, releasedAt time.Time, deliveryStatus *string) (bool, error) {
	if r.MarkCapturedFn != nil {
		return r.MarkCapturedFn(ctx, id, releasedAt, deliveryStatus)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCapturedCalls++
	o, ok := r.orders[id]
	if !ok || o.State != domain.StateRequiresCapture || o.ProtestStatus != domain.ProtestNone {
		return false, nil
	}
	o.State = domain.StateCaptured
	o.ReleasedAt = &releasedAt
	o.UpdatedAt = releasedAt
	detail := "deadline"
	if deliveryStatus != nil {
		o.DeliveryStatus = deliveryStatus
		detail = "delivery:" + *deliveryStatus
	}
	r.markCapturedHits++
	r.appendEvent(id, domain.EventCaptured, detail, releasedAt)
	return true, nil
}

func (r *fakeOrderRepository) FileProtest(ctx context.Context, id string, filedAt time.Time) (bool, error) {
	if r.FileProtestFn != nil {
		return r.FileProtestFn(ctx, id, filedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.IsSettled() || o.ProtestStatus != domain.ProtestNone {
		return false, nil
	}
	o.ProtestStatus = domain.ProtestFiled
	o.ProtestFiledAt = &filedAt
	r.appendEvent(id, domain.EventProtestFiled, "", filedAt)
	return true, nil
}

func (r *fakeOrderRepository) RecordDeliveryStatus(_ context.Context, id, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || (o.DeliveryStatus != nil && *o.DeliveryStatus == status) {
		return nil
	}
	o.DeliveryStatus = &status
	r.appendEvent(id, domain.EventDeliveryRecorded, status, at)
	return nil
}

func (r *fakeOrderRepository) RecordCaptureFailure(_ context.Context, id string, category application.ErrorCategory, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.State != domain.StateRequiresCapture {
		return nil
	}
	o.CaptureAttempts++
	c := string(category)
	o.LastCaptureError = &c
	r.appendEvent(id, domain.EventCaptureFailed, c, at)
	return nil
}

func (r *fakeOrderRepository) ListEvents(_ context.Context, orderID string) ([]domain.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderEvent
	for _, e := range r.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeOrderRepository) eventsFor(orderID string, kind domain.OrderEventKind) int {
	events, _ := r.ListEvents(context.Background(), orderID)
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// appendEvent must be called with mu held.
func (r *fakeOrderRepository) appendEvent(orderID string, kind domain.OrderEventKind, detail string, at time.Time) {
	r.events = append(r.events, domain.OrderEvent{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Kind:       kind,
		Detail:     detail,
		OccurredAt: at,
	})
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	return &c
}

// fakeGateway behaves like a provider that honors idempotency keys: a
// repeated key returns the first capture instead of moving funds again.
type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	captured map[string]string
	keys     []string

	Delay     time.Duration
	CaptureFn func(ctx context.Context, holdReference, idempotencyKey string) (*application.CaptureResult, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{captured: make(map[string]string)}
}

func (g *fakeGateway) Capture(ctx context.Context, holdReference, idempotencyKey string) (*application.CaptureResult, error) {
	if g.Delay > 0 {
		time.Sleep(g.Delay)
	}

	g.mu.Lock()
	g.calls++
	g.keys = append(g.keys, idempotencyKey)
	g.mu.Unlock()

	if g.CaptureFn != nil {
		return g.CaptureFn(ctx, holdReference, idempotencyKey)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.captured[idempotencyKey]; ok {
		return &application.CaptureResult{Outcome: application.OutcomeAlreadyCaptured, CaptureID: id}, nil
	}
	id := "ch_" + uuid.NewString()
	g.captured[idempotencyKey] = id
	return &application.CaptureResult{Outcome: application.OutcomeCaptured, CaptureID: id}, nil
}

func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// EffectiveCaptures counts distinct holds that actually moved funds.
func (g *fakeGateway) EffectiveCaptures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.captured)
}

type fakeReplayGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeReplayGuard() *fakeReplayGuard {
	return &fakeReplayGuard{seen: make(map[string]bool)}
}

func (g *fakeReplayGuard) Seen(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	return g.seen[key], nil
}

func (g *fakeReplayGuard) Remember(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.seen[key] = true
	return nil
}

type fakeMetrics struct {
	mu        sync.Mutex
	succeeded map[string]int
	failed    map[application.ErrorCategory]int
	selected  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		succeeded: make(map[string]int),
		failed:    make(map[application.ErrorCategory]int),
	}
}

func (m *fakeMetrics) CaptureSucceeded(_ context.Context, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded[source]++
}

func (m *fakeMetrics) CaptureFailed(_ context.Context, _ string, category application.ErrorCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[category]++
}

func (m *fakeMetrics) SweepSelected(_ context.Context, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected += count
}
