package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/application/services"
	"github.com/DanielPopoola/ficmart-settlement/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-settlement/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlement_ConcurrentSweepAndDeliveryCaptureOnce(t *testing.T) {
	for round := 0; round < 20; round++ {
		ctx := context.Background()
		repo := newFakeOrderRepository()
		gw := newFakeGateway()
		gw.Delay = time.Millisecond // widen the race window

		sweep := newSweepService(repo, gw, application.NopMetrics{}, 2)
		delivery := services.NewDeliveryService(repo, gw, nil, application.NopMetrics{}, discardLogger())

		order := testhelpers.CreateOrder(t, ctx, repo, testhelpers.WithCaptureAfter(deadline))

		const triggers = 6
		var wg sync.WaitGroup
		errs := make(chan error, triggers)
		for i := 0; i < triggers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var err error
				if i%2 == 0 {
					_, err = sweep.Run(ctx, sweepAt)
				} else {
					_, err = delivery.Handle(ctx, domain.NewDeliveryEvent(order.ID, "", "delivered"), sweepAt)
				}
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		stored := repo.get(order.ID)
		assert.Equal(t, domain.StateCaptured, stored.State)
		assert.Equal(t, 1, repo.markCapturedHits, "exactly one conditional update succeeds")
		assert.Equal(t, 1, repo.eventsFor(order.ID, domain.EventCaptured))
		assert.Equal(t, 1, gw.EffectiveCaptures(), "provider moved funds once")
		for _, key := range gw.keys {
			assert.Equal(t, application.CaptureIdempotencyKey(*order.PaymentHoldReference), key)
		}
	}
}

func TestSettlement_ProtestRacingCaptureNeverCapturesProtestedOrder(t *testing.T) {
	for round := 0; round < 20; round++ {
		ctx := context.Background()
		repo := newFakeOrderRepository()
		gw := newFakeGateway()
		gw.Delay = time.Millisecond

		sweep := newSweepService(repo, gw, application.NopMetrics{}, 1)
		disputes := services.NewDisputeService(repo, discardLogger())

		order := testhelpers.CreateOrder(t, ctx, repo,
			testhelpers.WithBuyer("buyer-1"),
			testhelpers.WithCaptureAfter(deadline))

		var wg sync.WaitGroup
		var protestErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = sweep.Run(ctx, sweepAt)
		}()
		go func() {
			defer wg.Done()
			_, protestErr = disputes.FileProtest(ctx, order.ID, "buyer-1", sweepAt)
		}()
		wg.Wait()

		stored := repo.get(order.ID)
		if stored.State == domain.StateCaptured {
			assert.Equal(t, domain.ProtestNone, stored.ProtestStatus)
			assert.ErrorIs(t, protestErr, domain.ErrAlreadySettled)
		} else {
			require.NoError(t, protestErr)
			assert.Equal(t, domain.ProtestFiled, stored.ProtestStatus)
			assert.Nil(t, stored.ReleasedAt)
		}
	}
}
