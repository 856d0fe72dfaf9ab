package mirror

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used for sinks that do not configure their own.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// executeWithResilience runs op with retries, exponential backoff,
// and a circuit breaker.
func executeWithResilience(
	ctx context.Context,
	cfg BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	op func(ctx context.Context) error,
) error {
	if cfg.MaxRetries < 0 || cfg.InitialInterval <= 0 {
		return errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := cb.Execute(func() (interface{}, error) {
			return nil, op(ctx)
		})
		if err == nil {
			return nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if attempt >= cfg.MaxRetries {
			return err
		}

		delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.MaxInterval && cfg.MaxInterval > 0 {
			delay = cfg.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
