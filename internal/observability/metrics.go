// Package observability exports settlement metrics over OTLP.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/DanielPopoola/ficmart-settlement"

// Provider owns the meter provider. When telemetry is disabled it hands out a
// no-op meter.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	logger        *slog.Logger
}

func NewProvider(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Provider, error) {
	p := &Provider{logger: logger}

	if !cfg.Enabled {
		logger.Info("telemetry disabled")
		p.meter = noop.NewMeterProvider().Meter(meterName)
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(15*time.Second),
		)),
	)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter(meterName)

	logger.Info("telemetry initialized",
		"service", cfg.ServiceName,
		"endpoint", cfg.OTLPEndpoint,
		"insecure", cfg.Insecure,
	)
	return p, nil
}

func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// Shutdown flushes pending metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		p.logger.Error("failed to shutdown metric provider", "error", err)
		return err
	}
	return nil
}

// Metrics implements application.Metrics with OpenTelemetry counters.
type Metrics struct {
	captures        metric.Int64Counter
	captureFailures metric.Int64Counter
	sweepSelected   metric.Int64Counter
}

var _ application.Metrics = (*Metrics)(nil)

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	captures, err := meter.Int64Counter("settlement.captures",
		metric.WithDescription("Orders captured"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	captureFailures, err := meter.Int64Counter("settlement.capture_failures",
		metric.WithDescription("Capture attempts the provider refused or could not complete"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	sweepSelected, err := meter.Int64Counter("settlement.sweep.selected",
		metric.WithDescription("Orders selected by capture sweeps"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		captures:        captures,
		captureFailures: captureFailures,
		sweepSelected:   sweepSelected,
	}, nil
}

func (m *Metrics) CaptureSucceeded(ctx context.Context, source string) {
	m.captures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) CaptureFailed(ctx context.Context, source string, category application.ErrorCategory) {
	m.captureFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("category", string(category)),
	))
}

func (m *Metrics) SweepSelected(ctx context.Context, count int) {
	m.sweepSelected.Add(ctx, int64(count))
}
