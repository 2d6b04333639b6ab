// Package lock implements the repository's named advisory lock
// contract: commands acquire locks by opaque string name, in sorted
// order (the consumer's responsibility, not this package's), and
// release them on every exit path.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout reports that a lock was not acquired within its timeout.
// Provider implementations do not return it themselves: Acquire returns
// ctx.Err() and TryAcquire reports a timeout as ok=false. The consumer
// returns ErrTimeout for a TryAcquire that gave up that way.
var ErrTimeout = errors.New("lock: acquisition timed out")

// Guard represents a held lock. Release is idempotent.
type Guard interface {
	Release() error
}

// Provider is the contract a local, in-process implementation and an
// out-of-process distributed implementation both satisfy.
type Provider interface {
	// Acquire blocks until name is acquired or ctx is done.
	Acquire(ctx context.Context, name string) (Guard, error)

	// TryAcquire attempts to acquire name, giving up after timeout. A
	// false ok with a nil error means the timeout elapsed without
	// acquiring; any other error is unexpected (e.g. ctx cancellation
	// from the caller, or a backend failure).
	TryAcquire(ctx context.Context, name string, timeout time.Duration) (guard Guard, ok bool, err error)
}
