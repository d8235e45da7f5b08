package gateway_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-settlement/internal/application"
	"github.com/DanielPopoola/ficmart-settlement/internal/config"
	"github.com/DanielPopoola/ficmart-settlement/internal/infrastructure/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Capture(ctx context.Context, holdReference, idempotencyKey string) (*application.CaptureResult, error) {
	args := m.Called(ctx, holdReference, idempotencyKey)
	result, _ := args.Get(0).(*application.CaptureResult)
	return result, args.Error(1)
}

func newRetryClient(inner application.PaymentGateway) *gateway.RetryingClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return gateway.NewRetryingClient(inner, config.RetryConfig{
		BaseDelay:  time.Millisecond,
		MaxRetries: 3,
	}, logger)
}

func TestRetryingClient_Capture_Success(t *testing.T) {
	inner := &mockGateway{}
	expected := &application.CaptureResult{Outcome: application.OutcomeCaptured, CaptureID: "ch_1"}
	inner.On("Capture", mock.Anything, "ph_1", "capture:ph_1").Return(expected, nil).Once()

	result, err := newRetryClient(inner).Capture(context.Background(), "ph_1", "capture:ph_1")

	require.NoError(t, err)
	assert.Equal(t, expected, result)
	inner.AssertExpectations(t)
}

func TestRetryingClient_Capture_RetriesOn5xx(t *testing.T) {
	inner := &mockGateway{}
	serverErr := &application.GatewayError{Code: "api_error", Message: "boom", StatusCode: 500}
	expected := &application.CaptureResult{Outcome: application.OutcomeCaptured, CaptureID: "ch_1"}

	// First two calls fail with 500
	inner.On("Capture", mock.Anything, "ph_1", "capture:ph_1").Return(nil, serverErr).Twice()
	// Third call succeeds
	inner.On("Capture", mock.Anything, "ph_1", "capture:ph_1").Return(expected, nil).Once()

	result, err := newRetryClient(inner).Capture(context.Background(), "ph_1", "capture:ph_1")

	require.NoError(t, err)
	assert.Equal(t, expected, result)
	inner.AssertNumberOfCalls(t, "Capture", 3)
}

func TestRetryingClient_Capture_DoesNotRetryOn4xx(t *testing.T) {
	inner := &mockGateway{}
	declined := &application.GatewayError{Code: "hold_canceled", Message: "canceled", StatusCode: 400}
	inner.On("Capture", mock.Anything, "ph_1", "capture:ph_1").Return(nil, declined).Once()

	result, err := newRetryClient(inner).Capture(context.Background(), "ph_1", "capture:ph_1")

	require.Error(t, err)
	assert.Nil(t, result)

	var gwErr *application.GatewayError
	assert.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "hold_canceled", gwErr.Code)
	inner.AssertNumberOfCalls(t, "Capture", 1)
}

func TestRetryingClient_Capture_DoesNotRetryMissingCredentials(t *testing.T) {
	inner := &mockGateway{}
	inner.On("Capture", mock.Anything, "ph_1", "capture:ph_1").Return(nil, application.ErrGatewayNotConfigured).Once()

	_, err := newRetryClient(inner).Capture(context.Background(), "ph_1", "capture:ph_1")

	assert.ErrorIs(t, err, application.ErrGatewayNotConfigured)
	inner.AssertNumberOfCalls(t, "Capture", 1)
}

func TestRetryingClient_Capture_ExhaustsRetries(t *testing.T) {
	inner := &mockGateway{}
	serverErr := &application.GatewayError{Code: "api_error", Message: "boom", StatusCode: 502}
	inner.On("Capture", mock.Anything, "ph_1", "capture:ph_1").Return(nil, serverErr).Times(3)

	_, err := newRetryClient(inner).Capture(context.Background(), "ph_1", "capture:ph_1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	assert.ErrorIs(t, err, serverErr)
	inner.AssertNumberOfCalls(t, "Capture", 3)
}

func TestRetryingClient_Capture_StopsOnCancelledContext(t *testing.T) {
	inner := &mockGateway{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRetryClient(inner).Capture(ctx, "ph_1", "capture:ph_1")

	assert.ErrorIs(t, err, context.Canceled)
	inner.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything)
}
