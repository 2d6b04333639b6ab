package consumer

import (
	"context"

	"github.com/flowcore/flowcore/internal/entity"
)

// FailureKind classifies why a command resolved Failed.
type FailureKind int

const (
	// FailureNone means the command succeeded.
	FailureNone FailureKind = iota
	// FailureLockTimeout means a declared lock could not be acquired
	// within the configured timeout. Nothing from the command is
	// journaled.
	FailureLockTimeout
	// FailureJournalError means the commit of the command's transaction
	// failed. Nothing from the command is visible.
	FailureJournalError
	// FailureSerialization means the codec could not encode a value.
	// Surfaced before anything is journaled.
	FailureSerialization
	// FailureHostError means the command's Execute raised; captured as a
	// CommandTerminatedExceptionally/HostErrorOccurred pair and
	// journaled in place of the abandoned user events.
	FailureHostError
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureLockTimeout:
		return "lock_timeout"
	case FailureJournalError:
		return "journal_error"
	case FailureSerialization:
		return "serialization_error"
	case FailureHostError:
		return "host_error"
	default:
		return "unknown"
	}
}

// Outcome is what a submitted command resolves to.
type Outcome struct {
	Result any
	Err    error
	Kind   FailureKind
}

// EntitySubscriber is notified, synchronously within the pipeline, of
// every entity a command causes to be appended — the command itself and
// each event, in journal order. A subscriber that errors or panics is
// isolated: it does not affect sibling subscribers or the command's own
// result.
type EntitySubscriber interface {
	Notify(ctx context.Context, entities []entity.Entity) error
}
