// Package retry provides the exponential-backoff retry envelope and the
// closed/open/half-open circuit breaker used by every boundary call the
// orchestrator core makes into the container runtime and the VCS layer.
// It wraps github.com/sethvargo/go-retry and github.com/sony/gobreaker
// rather than hand-rolling either primitive.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/cloudide/orchestrator/pkg/errs"
)

// Policy configures the exponential-backoff retry envelope:
// delay = min(base * mult^(attempt-1), max), mult fixed at 2 by go-retry's
// NewExponential.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// DefaultPolicy matches the kernel's baseline backoff shape used by the VCS
// and container-runtime boundaries.
var DefaultPolicy = Policy{MaxAttempts: 3, Base: 200 * time.Millisecond, Max: 5 * time.Second}

// Do runs op, retrying up to policy.MaxAttempts total attempts with
// exponential backoff, but only when the returned error classifies as
// retryable per errs.Retryable. Non-retryable errors are surfaced after a
// single attempt.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	b, err := goretry.NewExponential(policy.Base)
	if err != nil {
		return err
	}
	if policy.Max > 0 {
		b = goretry.WithCappedDuration(policy.Max, b)
	}
	if policy.MaxAttempts > 0 {
		b = goretry.WithMaxRetries(uint64(policy.MaxAttempts-1), b)
	}

	return goretry.Do(ctx, b, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errs.Retryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// Breaker is a kind-aware wrapper over gobreaker.CircuitBreaker: closed,
// open after consecutiveFailures, half-open after cooldown, reset to
// closed on a single half-open success.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker builds a Breaker that opens after consecutiveFailures in a
// row and re-probes (half-open) after cooldown.
func NewBreaker(name string, consecutiveFailures uint32, cooldown time.Duration) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. When the breaker is open, fallback
// (if non-nil) is invoked instead; otherwise the call fails fast with an
// ExternalServiceError.
func (b *Breaker) Execute(fn func() (interface{}, error), fallback func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if fallback != nil {
			return fallback()
		}
		return nil, errs.Wrap(errs.ExternalServiceError, err, b.name+" circuit open").WithMeta("breaker", b.name)
	}
	return result, err
}

// State reports the breaker's current state as a taxonomy-free string for
// logging and monitoring.
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
