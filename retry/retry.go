// Package retry runs an operation with bounded, context-aware backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy controls how many times an operation runs and how long to wait
// between runs.
type Policy struct {
	// Attempts is the total number of runs, including the first.
	// When zero it is derived from Delays, or 1 if Delays is empty.
	Attempts int

	// BaseDelay is the wait before the second run. It doubles for each
	// following run.
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Delays is an explicit wait schedule; Delays[i] precedes run i+2.
	// When set it takes precedence over BaseDelay.
	Delays []time.Duration

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Exponential returns a policy of n attempts starting at base and doubling.
func Exponential(n int, base time.Duration) Policy {
	return Policy{Attempts: n, BaseDelay: base}
}

// Schedule returns a policy that waits exactly the given delays.
func Schedule(delays ...time.Duration) Policy {
	return Policy{Delays: delays}
}

func (p Policy) attempts() int {
	switch {
	case p.Attempts > 0:
		return p.Attempts
	case len(p.Delays) > 0:
		return len(p.Delays) + 1
	default:
		return 1
	}
}

// Backoff returns the wait after the given failed run (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	var d time.Duration
	if len(p.Delays) > 0 {
		i := attempt - 1
		if i >= len(p.Delays) {
			i = len(p.Delays) - 1
		}
		d = p.Delays[i]
	} else {
		d = p.BaseDelay << (attempt - 1)
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// afterHinter is implemented by errors that carry a server-requested wait,
// such as an HTTP Retry-After header.
type afterHinter interface {
	RetryAfter() time.Duration
}

// Do runs fn until it succeeds, returns a Permanent error, the attempts are
// exhausted, or ctx is done. It returns the last error from fn, or ctx.Err()
// when cancelled while waiting.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	n := p.attempts()
	var err error
	for attempt := 1; attempt <= n; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		if attempt == n {
			break
		}

		wait := p.Backoff(attempt)
		var h afterHinter
		if errors.As(err, &h) {
			if ra := h.RetryAfter(); ra > 0 && (p.MaxDelay == 0 || ra <= p.MaxDelay) {
				wait = ra
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
