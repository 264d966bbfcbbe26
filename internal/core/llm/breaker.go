package llm

import (
	"context"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/pkg/logger"

	"github.com/sony/gobreaker"
)

// BreakerChat fails fast once the wrapped client has failed maxFailures times
// in a row. It never retries.
type BreakerChat struct {
	inner   ChatClient
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerChat(inner ChatClient, name string, maxFailures uint32, openFor time.Duration) *BreakerChat {
	if maxFailures == 0 {
		maxFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("%v: circuit %s %s -> %s", config.ModuleLLM, name, from, to)
		},
	}
	return &BreakerChat{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (c *BreakerChat) Complete(ctx context.Context, messages []Message, params Params) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Complete(ctx, messages, params)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *BreakerChat) State() gobreaker.State {
	return c.breaker.State()
}
