// Package entity defines the repository's core data model: entities,
// events, and the generic command contract that the consumer drives
// through its pipeline.
package entity

import (
	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Entity is anything that can be journaled and indexed: it carries an
// identity, the HLC stamp it was assigned, and the fingerprint of its
// layout.
type Entity interface {
	EntityID() uuid.UUID
	HLCStamp() clock.HybridTimestamp
	SetHLCStamp(clock.HybridTimestamp)
	LayoutFingerprint() layout.Fingerprint
	SetLayoutFingerprint(layout.Fingerprint)
}

// Base implements the bookkeeping half of Entity; concrete commands and
// events embed it and add their own chronicle-tagged payload fields.
//
// None of Base's own fields carry a chronicle tag: identity, HLC stamp,
// and layout fingerprint travel in the journal record's envelope (see
// journal.Record), not inside the layout-encoded payload, so
// layout.Describe skips them like any other untagged field.
type Base struct {
	ID          uuid.UUID
	Stamp       clock.HybridTimestamp
	Fingerprint layout.Fingerprint
}

// NewBase allocates a Base with a fresh random identity. The HLC stamp and
// layout fingerprint are assigned later by the consumer.
func NewBase() Base {
	return Base{ID: uuid.New()}
}

func (b *Base) EntityID() uuid.UUID                        { return b.ID }
func (b *Base) HLCStamp() clock.HybridTimestamp             { return b.Stamp }
func (b *Base) SetHLCStamp(ts clock.HybridTimestamp)        { b.Stamp = ts }
func (b *Base) LayoutFingerprint() layout.Fingerprint       { return b.Fingerprint }
func (b *Base) SetLayoutFingerprint(fp layout.Fingerprint)  { b.Fingerprint = fp }

// Event is an Entity that records what caused it. The consumer sets the
// cause on every event it pulls from a command's Execute stream, so in
// practice every journaled event has one; CauseID's bool return exists
// for event values constructed outside that pipeline.
type Event interface {
	Entity
	CauseID() (uuid.UUID, bool)
	SetCauseID(uuid.UUID)
}

// EventBase implements the bookkeeping half of Event; concrete event
// types embed it instead of Base. Cause carries the publishing command's
// ID and, like Base's own fields, is untagged: it travels in the event's
// wire body ahead of the payload (see journal.EncodeEventBody), not
// through the layout-encoded payload itself.
type EventBase struct {
	Base
	Cause uuid.UUID
}

func (e *EventBase) CauseID() (uuid.UUID, bool) { return e.Cause, e.Cause != uuid.Nil }
func (e *EventBase) SetCauseID(id uuid.UUID)     { e.Cause = id }
