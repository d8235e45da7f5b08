package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"golang.org/x/sync/errgroup"
)

// SweepResult summarizes one run of the capture scheduler.
type SweepResult struct {
	Selected       int `json:"selected"`
	Captured       int `json:"captured"`
	AlreadySettled int `json:"already_settled"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
}

// SweepService captures orders whose deadline has passed.
type SweepService struct {
	repo        application.OrderRepository
	settler     *settler
	metrics     application.Metrics
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

func NewSweepService(
	repo application.OrderRepository,
	gateway application.PaymentGateway,
	metrics application.Metrics,
	cfg config.SweepConfig,
	logger *slog.Logger,
) *SweepService {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &SweepService{
		repo: repo,
		settler: &settler{
			repo:    repo,
			gateway: gateway,
			metrics: metrics,
			logger:  logger,
		},
		metrics:     metrics,
		batchSize:   cfg.BatchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run selects one batch of due orders and settles each independently. A
// failing order never stops its siblings; only a configuration error fails
// the run.
func (s *SweepService) Run(ctx context.Context, now time.Time) (*SweepResult, error) {
	orders, err := s.repo.FindDueForCapture(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("failed to select orders due for capture", "error", err)
		return nil, application.NewInternalError(err)
	}

	s.metrics.SweepSelected(ctx, len(orders))
	result := &SweepResult{Selected: len(orders)}
	if len(orders) == 0 {
		return result, nil
	}

	var (
		mu        sync.Mutex
		configErr error
	)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, order := range orders {
		orderID := order.ID
		g.Go(func() error {
			mu.Lock()
			abort := configErr != nil
			mu.Unlock()
			if abort {
				return nil
			}

			outcome, err := s.settler.settle(ctx, settleRequest{
				orderID: orderID,
				now:     now,
				source:  SourceSweep,
			})

			mu.Lock()
			defer mu.Unlock()

			switch outcome {
			case settleCaptured:
				result.Captured++
			case settleAlreadySettled:
				result.AlreadySettled++
			case settleFrozen, settleNotDue:
				result.Skipped++
			default:
				result.Failed++
			}

			if err != nil {
				if isConfigurationError(err) && configErr == nil {
					configErr = err
				}
				s.logger.Error("failed to settle order",
					"order_id", orderID,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("processed capture sweep",
		"selected", result.Selected,
		"captured", result.Captured,
		"already_settled", result.AlreadySettled,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	if configErr != nil {
		return result, configErr
	}
	return result, nil
}

func isConfigurationError(err error) bool {
	return errors.Is(err, application.ErrGatewayNotConfigured) ||
		application.CategorizeError(err) == application.CategoryConfiguration
}
