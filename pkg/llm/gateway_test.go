package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGateway_Complete_Success(t *testing.T) {
	client := NewMockCompletionClient()
	client.CompleteFunc = func(_ context.Context, _, _ string, _ float64) (string, error) {
		return `{"ok": true}`, nil
	}
	gw := NewGateway(client, &GatewayConfig{Timeout: time.Second, RequestsPerMinute: 60}, zap.NewNop())

	result := gw.Complete(context.Background(), "prompt", "system")

	assert.False(t, result.Degraded)
	assert.Equal(t, `{"ok": true}`, result.Content)
	assert.Equal(t, ErrorTypeNone, result.ErrorType)
	assert.Equal(t, 1, client.CompleteCalls)
	assert.Equal(t, "prompt", client.LastPrompt)
	assert.Equal(t, "system", client.LastSystem)
}

func TestGateway_Complete_NilClientDegrades(t *testing.T) {
	gw := NewGateway(nil, &GatewayConfig{}, zap.NewNop())

	require.False(t, gw.Available())
	result := gw.Complete(context.Background(), "prompt", "system")

	assert.True(t, result.Degraded)
	assert.Equal(t, ErrorTypeAuth, result.ErrorType)
}

func TestGateway_Complete_TransportErrorDegrades(t *testing.T) {
	client := NewMockCompletionClient()
	client.CompleteFunc = func(_ context.Context, _, _ string, _ float64) (string, error) {
		return "", context.DeadlineExceeded
	}
	gw := NewGateway(client, &GatewayConfig{Timeout: time.Second, RequestsPerMinute: 60}, zap.NewNop())

	result := gw.Complete(context.Background(), "prompt", "system")

	assert.True(t, result.Degraded)
	assert.Equal(t, ErrorTypeEndpoint, result.ErrorType)
	assert.Empty(t, result.Content)
}

func TestGateway_Complete_RateLimitSaturationDegrades(t *testing.T) {
	client := NewMockCompletionClient()
	client.CompleteFunc = func(_ context.Context, _, _ string, _ float64) (string, error) {
		return "ok", nil
	}
	gw := NewGateway(client, &GatewayConfig{Timeout: time.Second, RequestsPerMinute: 1}, zap.NewNop())

	first := gw.Complete(context.Background(), "prompt", "system")
	require.False(t, first.Degraded)

	second := gw.Complete(context.Background(), "prompt", "system")
	assert.True(t, second.Degraded)
	assert.Equal(t, ErrorTypeRateLimit, second.ErrorType)
	// The saturated turn never reaches the transport.
	assert.Equal(t, 1, client.CompleteCalls)
}

func TestGateway_DefaultsApplied(t *testing.T) {
	gw := NewGateway(nil, &GatewayConfig{}, zap.NewNop())

	assert.Equal(t, 30*time.Second, gw.timeout)
}
