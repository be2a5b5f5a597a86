// Package clock abstracts wall-clock time so that expiry checks, retry delays
// and debounced timers can be driven deterministically in tests.
package clock

import (
	"context"
	"time"
)

// Clock is the time source used by the session engine.
//
// Implemented by System (production) and testutil.FakeClock (tests).
type Clock interface {
	// Now returns the current wall time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	// Returns ctx.Err() if the context ended the wait.
	Sleep(ctx context.Context, d time.Duration) error

	// AfterFunc calls f in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback returned by AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing.
	// Returns false if the callback already fired or was stopped.
	Stop() bool
}

// System is the real wall clock.
//
// Thread-safety: System is stateless and safe for concurrent use.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or ctx cancellation.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AfterFunc wraps time.AfterFunc.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// EpochMillis converts t to milliseconds since the Unix epoch,
// the unit used by every persisted timestamp.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis is the inverse of EpochMillis.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
