package retry

import (
	"errors"
	"time"
)

// Policy bounds a retry loop
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Sleep waits between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do stops and returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it returns a nil error, returns a Permanent error, or the
// policy runs out of attempts. The last value and error are returned.
func Do[T any](p Policy, fn func(attempt int) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var (
		value T
		err   error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err = fn(attempt)
		if err == nil {
			return value, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return value, perm.err
		}
		if attempt < attempts && p.Delay > 0 {
			sleep(p.Delay)
		}
	}
	return value, err
}
