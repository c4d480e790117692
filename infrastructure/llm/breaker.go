package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"treeviz-backend/application/ports"
	apperrors "treeviz-backend/pkg/errors"
)

// BreakerClient wraps an LLMClient with a circuit breaker so a failing
// model endpoint sheds load quickly instead of holding every turn for the
// full timeout. An open breaker surfaces as an ordinary generation error,
// which the orchestrator already degrades to a fallback turn.
type BreakerClient struct {
	inner   ports.LLMClient
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps the given client with a circuit breaker.
func NewBreakerClient(inner ports.LLMClient, logger *zap.Logger) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerClient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Generate runs the wrapped client's call through the breaker.
func (c *BreakerClient) Generate(ctx context.Context, systemInstruction, userPayload string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Generate(ctx, systemInstruction, userPayload)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return "", apperrors.NewUnavailableError("assistant model temporarily unavailable")
	}
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
