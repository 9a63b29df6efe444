// Package retry re-runs transient outbound calls (email and push delivery,
// LLM requests) with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy controls attempts and backoff.
type Policy struct {
	// Attempts includes the first call.
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether err is worth another attempt. Defaults to
	// IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy is three attempts starting at 250ms.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, InitialDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2}
}

func (p *Policy) normalize() {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying regardless of policy.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Temporary is implemented by errors that know whether they are transient,
// such as infrastructure/errors.HTTPError.
type Temporary interface {
	Temporary() bool
}

// IsTransient treats timeouts, network failures and errors reporting
// Temporary() == true as retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var p permanent
	if errors.As(err, &p) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t Temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// Do calls fn until it succeeds, returns a non-retryable error, attempts run
// out or ctx is done.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	p.normalize()

	delay := p.InitialDelay
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return fmt.Errorf("%w (last error: %w)", err, last)
			}
			return err
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}
		if !p.Retryable(last) {
			return last
		}
		if attempt >= p.Attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, last)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %w)", ctx.Err(), last)
		case <-t.C:
		}

		delay = min(time.Duration(float64(delay)*p.Multiplier), p.MaxDelay)
	}
}
