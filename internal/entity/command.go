package entity

import (
	"context"
	"iter"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Command is a unit of work a caller publishes to the repository. R is
// the result type handed back through the command's Future; C is the
// accumulator type the consumer allocates (zero-valued) and passes by
// pointer through Execute, letting the command build up state across the
// events it yields without needing its own mutable fields.
type Command[R, C any] interface {
	Entity
	LockNames() []string
	Execute(ctx context.Context, acc *C) iter.Seq[Event]
	OnCompletion(acc *C) R
}

// AnyCommand is the type-erased form of Command[R, C] the consumer and
// repository actually queue and drive; Go has no generic methods, so a
// homogeneous queue of heterogeneous Command[R, C] instances has to go
// through an adapter that closes over R and C and exposes only this
// interface.
type AnyCommand interface {
	Entity
	LockNames() []string

	// Run drives the command to completion, collecting its yielded events
	// via sink, and returns the command's result as an any.
	//
	// If the command's Execute panics — the idiomatic stand-in for a
	// host-side failure raised while producing an event — Run recovers
	// the panic and returns it as the error, so callers never observe a
	// crashed worker.
	Run(ctx context.Context, sink func(Event)) (result any, err error)

	// Underlying returns the concrete Command[R, C] value the adapter
	// wraps, so the consumer's layout engine can reflect on its real Go
	// type rather than the adapter's.
	Underlying() any
}

// commandAdapter closes over a Command[R, C]'s concrete type parameters
// so it can satisfy AnyCommand.
type commandAdapter[R, C any] struct {
	cmd Command[R, C]
}

// Adapt wraps a concrete Command[R, C] for use wherever the consumer and
// repository need a homogeneous AnyCommand.
func Adapt[R, C any](cmd Command[R, C]) AnyCommand {
	return &commandAdapter[R, C]{cmd: cmd}
}

func (a *commandAdapter[R, C]) EntityID() uuid.UUID { return a.cmd.EntityID() }

func (a *commandAdapter[R, C]) HLCStamp() clock.HybridTimestamp { return a.cmd.HLCStamp() }

func (a *commandAdapter[R, C]) SetHLCStamp(ts clock.HybridTimestamp) { a.cmd.SetHLCStamp(ts) }

func (a *commandAdapter[R, C]) LayoutFingerprint() layout.Fingerprint { return a.cmd.LayoutFingerprint() }

func (a *commandAdapter[R, C]) SetLayoutFingerprint(fp layout.Fingerprint) {
	a.cmd.SetLayoutFingerprint(fp)
}

func (a *commandAdapter[R, C]) LockNames() []string { return a.cmd.LockNames() }

func (a *commandAdapter[R, C]) Underlying() any { return a.cmd }

func (a *commandAdapter[R, C]) Run(ctx context.Context, sink func(Event)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if sf, ok := r.(*SerializationFault); ok {
				err = sf
				return
			}
			err = hostErrorFromPanic(r)
		}
	}()

	var acc C
	for ev := range a.cmd.Execute(ctx, &acc) {
		sink(ev)
	}
	return a.cmd.OnCompletion(&acc), nil
}
