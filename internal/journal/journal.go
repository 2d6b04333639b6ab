// Package journal defines the repository's append-only durability
// contract: commands and events are appended inside a transaction,
// committed atomically, and become visible to IterEvents only once
// commit returns.
//
// A journal must reject any entity whose layout fingerprint has not
// already been introduced via a committed EntityLayoutIntroduced record;
// the consumer is responsible for appending that introduction, in the
// same transaction, before anything that depends on it.
package journal

import (
	"context"
	"iter"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Meta is the per-record envelope carried alongside a command or event's
// encoded payload: [20B fingerprint][8B wall_ms][4B logical][16B uuid].
type Meta struct {
	Fingerprint layout.Fingerprint
	Stamp       clock.HybridTimestamp
	ID          uuid.UUID
}

// Record is one journaled command or event, as read back by IterEvents.
type Record struct {
	Meta Meta
	// CauseID is the publishing command's ID for an event record, and the
	// zero UUID for a command record.
	CauseID uuid.UUID
	Payload []byte
}

// Filter narrows IterEvents. A zero Filter matches everything.
type Filter struct {
	Fingerprint *layout.Fingerprint
	Since       clock.HybridTimestamp
}

// Journal is the durability boundary the consumer drives each command
// through.
type Journal interface {
	Begin(ctx context.Context) (Tx, error)

	// OnCommandsAdded and OnEventsAdded tell the journal that the given
	// fingerprints have now been introduced (a committed
	// EntityLayoutIntroduced record exists for each), so subsequent
	// appends of those types are accepted without requiring the
	// introduction to be re-derived from the log.
	OnCommandsAdded(fingerprints []layout.Fingerprint)
	OnEventsAdded(fingerprints []layout.Fingerprint)

	// Introduced reports whether fp has already been introduced, so the
	// consumer's LayoutCheck step can tell whether it still needs to
	// buffer an EntityLayoutIntroduced record before appending.
	Introduced(fp layout.Fingerprint) bool

	// IterEvents returns a pull iterator over event records in journal
	// (HLC) order, optionally narrowed by filter.
	IterEvents(ctx context.Context, filter Filter) iter.Seq[Record]

	Close() error
}

// Tx is a single atomic append batch. Every append is only visible to
// IterEvents, and only durable, after a successful Commit.
type Tx interface {
	AppendCommand(payload []byte, meta Meta) error
	AppendEvent(payload []byte, meta Meta, causeCommandID uuid.UUID) error

	// Introduce marks fp as introduced for the remainder of this
	// transaction. The consumer calls it once it has buffered (within
	// this same, still-open transaction) the EntityLayoutIntroduced
	// record for fp, so that the command or event which made fp's type
	// known in the first place can itself be appended right after,
	// before Commit has made the introduction durable.
	Introduce(fp layout.Fingerprint)

	Commit() error
	Abort() error
}
