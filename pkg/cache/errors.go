package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a backend that cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// Transient marks err as worth another attempt under a Backoff.
// Transient(nil) is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}

// Backoff retries a backend operation, doubling Delay after each
// transient failure.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// DefaultBackoff guards connection setup: three attempts, 1s then 2s apart.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, returns an error not marked Transient,
// or the attempts run out. errors.Is sees through the Transient mark on the
// returned error.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}
