// Package builtin defines the event kinds the repository core itself
// emits, independent of any caller-defined command or event: causality
// edges, layout introductions, and the two halves of a captured
// host-side failure.
package builtin

import (
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/google/uuid"
)

// EventCausalityEstablished declares the causal edge from a command to
// one of the events it produced. The consumer emits exactly one of
// these per yielded event, stamped strictly after the event itself.
type EventCausalityEstablished struct {
	entity.EventBase
	EventID uuid.UUID `chronicle:"event_id"`
}

// CommandTerminatedExceptionally is recorded when a command's Execute
// raises a host-side failure mid-stream. Message is a short human-
// readable summary; the full detail travels in the paired
// HostErrorOccurred event.
type CommandTerminatedExceptionally struct {
	entity.EventBase
	Message string `chronicle:"message"`
}

// HostErrorOccurred captures the opaque host-side failure itself:
// renamed from the source's JavaExceptionOccurred, since this runtime
// has no exceptions — only panics recovered by entity.Adapt.
type HostErrorOccurred struct {
	entity.EventBase
	Detail string `chronicle:"detail"`
	Stack  string `chronicle:"stack"`
}

// EntityLayoutIntroduced is recorded once per newly observed entity
// type, before the first appearance of any entity carrying that
// fingerprint. Schema is the introduced layout's own
// layout.Layout.MarshalBinary encoding, not run through the generic
// codec: a layout's property tree is self-referential (Property.Elem/
// Key/Val), which sits outside the codec's closed TypeTag set, and a
// restarted process needs to be able to decode this record before it
// has rebuilt its layout cache.
type EntityLayoutIntroduced struct {
	entity.EventBase
	FingerprintBytes []byte `chronicle:"fingerprint"`
	Schema           []byte `chronicle:"schema"`
}
