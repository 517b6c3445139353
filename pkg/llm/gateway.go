package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result is the outcome of one gateway completion call.
// Degraded is set when no usable completion was obtained (missing
// credentials, rate limiting, transport failure, timeout); callers build
// their deterministic fallback response from it instead of failing.
type Result struct {
	Content   string
	Degraded  bool
	ErrorType ErrorType
	Elapsed   time.Duration
}

// GatewayConfig holds gateway behavior settings.
type GatewayConfig struct {
	Timeout           time.Duration
	RequestsPerMinute int
	Temperature       float64
}

// Gateway is the process-wide boundary to the completion model. It owns the
// model handle and a local rate limiter, and it never returns an error:
// unavailability is reported through Result.Degraded.
type Gateway struct {
	client  CompletionClient // nil when no credentials are configured
	limiter *rate.Limiter
	timeout time.Duration
	temp    float64
	logger  *zap.Logger
}

// NewGateway creates a gateway around the given client.
// Pass a nil client to run permanently degraded (no credentials).
func NewGateway(client CompletionClient, cfg *GatewayConfig, logger *zap.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	return &Gateway{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		timeout: timeout,
		temp:    cfg.Temperature,
		logger:  logger.Named("llm-gateway"),
	}
}

// Available reports whether a real model handle is configured.
func (g *Gateway) Available() bool {
	return g.client != nil
}

// Complete runs one completion within the gateway's timeout budget.
// Rate limiting is applied before the call; a saturated limiter degrades
// immediately rather than queueing conversational turns.
func (g *Gateway) Complete(ctx context.Context, prompt string, systemMessage string) Result {
	start := time.Now()

	if g.client == nil {
		return Result{Degraded: true, ErrorType: ErrorTypeAuth, Elapsed: time.Since(start)}
	}

	if !g.limiter.Allow() {
		g.logger.Warn("local rate limit saturated, degrading to fallback")
		return Result{Degraded: true, ErrorType: ErrorTypeRateLimit, Elapsed: time.Since(start)}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	content, err := g.client.Complete(callCtx, prompt, systemMessage, g.temp)
	if err != nil {
		classified := ClassifyError(err)
		g.logger.Warn("completion failed, degrading to fallback",
			zap.String("error_type", string(classified.Type)),
			zap.Error(err))
		return Result{Degraded: true, ErrorType: classified.Type, Elapsed: time.Since(start)}
	}

	return Result{Content: content, Elapsed: time.Since(start)}
}

// NewClientForProvider builds the transport for the configured provider.
// Returns nil (degraded mode) when the provider is "mock" or when a real
// provider is selected without an API key.
func NewClientForProvider(provider, endpoint, model, apiKey string, logger *zap.Logger) (CompletionClient, error) {
	switch provider {
	case "mock":
		return nil, nil
	case "anthropic":
		if apiKey == "" {
			logger.Warn("LLM_API_KEY not set, gateway will serve fallback responses")
			return nil, nil
		}
		return NewAnthropicClient(&Config{Endpoint: endpoint, Model: model, APIKey: apiKey}, logger)
	default:
		if apiKey == "" {
			logger.Warn("LLM_API_KEY not set, gateway will serve fallback responses")
			return nil, nil
		}
		return NewOpenAIClient(&Config{Endpoint: endpoint, Model: model, APIKey: apiKey}, logger)
	}
}
