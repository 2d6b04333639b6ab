package repo

import (
	"context"

	"github.com/flowcore/flowcore/internal/consumer"
)

// Future is the handle Publish returns: a command's result, available
// once the pipeline resolves it to Succeeded or Failed. A Future can only
// be abandoned, never cancelled, once Executing has begun — Wait's ctx
// bounds the caller's patience, not the command's.
type Future[R any] struct {
	ch <-chan consumer.Outcome
}

// Wait blocks until the command resolves or ctx is done. A resolved
// Outcome with a non-nil error surfaces that error here; the command
// itself still ran to completion regardless of whether anyone waits.
func (f Future[R]) Wait(ctx context.Context) (R, error) {
	var zero R
	select {
	case outcome, ok := <-f.ch:
		if !ok {
			return zero, ErrIllegalState
		}
		if outcome.Err != nil {
			return zero, translateFailure(outcome)
		}
		if outcome.Result == nil {
			return zero, nil
		}
		res, _ := outcome.Result.(R)
		return res, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func translateFailure(outcome consumer.Outcome) error {
	switch outcome.Kind {
	case consumer.FailureLockTimeout:
		return &kindError{kind: ErrorLockTimeout, err: outcome.Err}
	case consumer.FailureJournalError:
		return &kindError{kind: ErrorJournal, err: outcome.Err}
	case consumer.FailureSerialization:
		return &kindError{kind: ErrorSerialization, err: outcome.Err}
	case consumer.FailureHostError:
		return &kindError{kind: ErrorHost, err: outcome.Err}
	default:
		return outcome.Err
	}
}

type kindError struct {
	kind ErrorKind
	err  error
}

func (e *kindError) Error() string { return e.kind.String() + ": " + e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Kind reports the error taxonomy kind for an error Wait returned, if
// it was produced by the pipeline rather than ctx expiring.
func Kind(err error) ErrorKind {
	if ke, ok := err.(*kindError); ok {
		return ke.kind
	}
	return ErrorNone
}
