package consumer

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"sort"

	"github.com/flowcore/flowcore/internal/codec"
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/journal"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/flowcore/flowcore/internal/lock"
	"github.com/flowcore/flowcore/internal/repo/builtin"
	logpkg "github.com/flowcore/flowcore/pkg/log"
)

// pendingIntro is a layout the current command has caused to be seen
// for the first time; one EntityLayoutIntroduced record is appended for
// each, ahead of anything using that fingerprint, in the same
// transaction.
type pendingIntro struct {
	fp        layout.Fingerprint
	lay       layout.Layout
	isCommand bool
}

// bufferedEvent is a user or synthesized event waiting to be appended,
// paired with the layout its fingerprint was already derived against so
// Appending doesn't re-describe it.
type bufferedEvent struct {
	ev  entity.Event
	lay layout.Layout
}

func hasFingerprint(pending []pendingIntro, fp layout.Fingerprint) bool {
	for _, p := range pending {
		if p.fp == fp {
			return true
		}
	}
	return false
}

// process drives cmd through the full pipeline and returns its terminal
// Outcome. Locks acquired along the way are always released before
// returning, on every exit path.
func (c *Consumer) process(ctx context.Context, cmd entity.AnyCommand) Outcome {
	// 1. Timestamping.
	cmd.SetHLCStamp(c.deps.Clock.Tick())

	// 2. LayoutCheck (command side).
	cmdLayout, err := c.deps.Cache.Describe(reflect.TypeOf(cmd.Underlying()))
	if err != nil {
		return Outcome{Err: err, Kind: FailureSerialization}
	}
	cmd.SetLayoutFingerprint(cmdLayout.Fingerprint)

	var pending []pendingIntro
	if !c.deps.Journal.Introduced(cmdLayout.Fingerprint) {
		pending = append(pending, pendingIntro{fp: cmdLayout.Fingerprint, lay: cmdLayout, isCommand: true})
	}
	basePending := append([]pendingIntro{}, pending...)

	// 3. Locking, sorted ascending by name to prevent deadlock between
	// commands declaring overlapping lock sets.
	names := append([]string{}, cmd.LockNames()...)
	sort.Strings(names)
	guards := make([]lock.Guard, 0, len(names))
	for _, name := range names {
		guard, ok, err := c.deps.Locks.TryAcquire(ctx, name, c.cfg.LockTimeout)
		if err != nil || !ok {
			releaseGuards(guards)
			if err == nil {
				err = lock.ErrTimeout
			}
			return Outcome{Err: err, Kind: FailureLockTimeout}
		}
		guards = append(guards, guard)
	}
	defer releaseGuards(guards)

	// 4. Executing.
	var buffered []bufferedEvent
	sink := func(ev entity.Event) {
		evLay, err := c.describeAndMark(ev, &pending)
		if err != nil {
			panic(&entity.SerializationFault{Err: err})
		}
		ev.SetCauseID(cmd.EntityID())
		buffered = append(buffered, bufferedEvent{ev: ev, lay: evLay})

		causeEv := &builtin.EventCausalityEstablished{EventID: ev.EntityID()}
		causeEv.SetHLCStamp(c.deps.Clock.Tick())
		causeEv.SetLayoutFingerprint(c.builtinLayouts.causality.Fingerprint)
		causeEv.SetCauseID(cmd.EntityID())
		if !c.deps.Journal.Introduced(c.builtinLayouts.causality.Fingerprint) && !hasFingerprint(pending, c.builtinLayouts.causality.Fingerprint) {
			pending = append(pending, pendingIntro{fp: c.builtinLayouts.causality.Fingerprint, lay: c.builtinLayouts.causality})
		}
		buffered = append(buffered, bufferedEvent{ev: causeEv, lay: c.builtinLayouts.causality})
	}

	result, runErr := cmd.Run(ctx, func(ev entity.Event) {
		ev.SetHLCStamp(c.deps.Clock.Tick())
		sink(ev)
	})

	if runErr != nil {
		// A layout/codec defect surfaced while draining the command's
		// events is not the command's own failure: fail immediately,
		// before anything is journaled, instead of synthesizing
		// CommandTerminatedExceptionally/HostErrorOccurred records for it.
		var sf *entity.SerializationFault
		if errors.As(runErr, &sf) {
			return Outcome{Err: sf.Err, Kind: FailureSerialization}
		}

		// Abandon every user event already buffered for this command;
		// only the failure records survive.
		buffered = nil
		pending = append([]pendingIntro{}, basePending...)

		terminated := &builtin.CommandTerminatedExceptionally{Message: runErr.Error()}
		terminated.SetHLCStamp(c.deps.Clock.Tick())
		terminated.SetCauseID(cmd.EntityID())
		if _, err := c.describeAndMark(terminated, &pending); err != nil {
			return Outcome{Err: err, Kind: FailureSerialization}
		}
		buffered = append(buffered, bufferedEvent{ev: terminated, lay: c.builtinLayouts.terminated})

		detail, stack := runErr.Error(), ""
		if he, ok := runErr.(*entity.HostError); ok {
			detail, stack = he.Detail, he.Stack
		}
		hostErrEv := &builtin.HostErrorOccurred{Detail: detail, Stack: stack}
		hostErrEv.SetHLCStamp(c.deps.Clock.Tick())
		hostErrEv.SetCauseID(cmd.EntityID())
		if _, err := c.describeAndMark(hostErrEv, &pending); err != nil {
			return Outcome{Err: err, Kind: FailureSerialization}
		}
		buffered = append(buffered, bufferedEvent{ev: hostErrEv, lay: c.builtinLayouts.hostErr})
	}

	// 5. Appending.
	tx, err := c.deps.Journal.Begin(ctx)
	if err != nil {
		return Outcome{Err: err, Kind: FailureJournalError}
	}

	var appended []entity.Entity

	for _, pi := range pending {
		schema, err := pi.lay.MarshalBinary()
		if err != nil {
			_ = tx.Abort()
			return Outcome{Err: err, Kind: FailureSerialization}
		}
		introEv := &builtin.EntityLayoutIntroduced{FingerprintBytes: append([]byte{}, pi.fp[:]...), Schema: schema}
		introEv.SetHLCStamp(c.deps.Clock.Tick())
		introEv.SetLayoutFingerprint(c.builtinLayouts.intro.Fingerprint)
		introEv.SetCauseID(cmd.EntityID())

		var buf bytes.Buffer
		if err := codec.Encode(&buf, c.deps.Cache, c.builtinLayouts.intro, introEv); err != nil {
			_ = tx.Abort()
			return Outcome{Err: err, Kind: FailureSerialization}
		}
		meta := journal.Meta{Fingerprint: c.builtinLayouts.intro.Fingerprint, Stamp: introEv.HLCStamp(), ID: introEv.EntityID()}
		if err := tx.AppendEvent(buf.Bytes(), meta, cmd.EntityID()); err != nil {
			_ = tx.Abort()
			return Outcome{Err: err, Kind: FailureJournalError}
		}
		tx.Introduce(pi.fp)
		appended = append(appended, introEv)
	}

	var cbuf bytes.Buffer
	if err := codec.Encode(&cbuf, c.deps.Cache, cmdLayout, cmd.Underlying()); err != nil {
		_ = tx.Abort()
		return Outcome{Err: err, Kind: FailureSerialization}
	}
	cmdMeta := journal.Meta{Fingerprint: cmdLayout.Fingerprint, Stamp: cmd.HLCStamp(), ID: cmd.EntityID()}
	if err := tx.AppendCommand(cbuf.Bytes(), cmdMeta); err != nil {
		_ = tx.Abort()
		return Outcome{Err: err, Kind: FailureJournalError}
	}
	appended = append(appended, cmd)

	for _, be := range buffered {
		var buf bytes.Buffer
		if err := codec.Encode(&buf, c.deps.Cache, be.lay, be.ev); err != nil {
			_ = tx.Abort()
			return Outcome{Err: err, Kind: FailureSerialization}
		}
		meta := journal.Meta{Fingerprint: be.lay.Fingerprint, Stamp: be.ev.HLCStamp(), ID: be.ev.EntityID()}
		if err := tx.AppendEvent(buf.Bytes(), meta, cmd.EntityID()); err != nil {
			_ = tx.Abort()
			return Outcome{Err: err, Kind: FailureJournalError}
		}
		appended = append(appended, be.ev)
	}

	if err := tx.Commit(); err != nil {
		return Outcome{Err: err, Kind: FailureJournalError}
	}

	var introducedCmds, introducedEvts []layout.Fingerprint
	for _, pi := range pending {
		if pi.isCommand {
			introducedCmds = append(introducedCmds, pi.fp)
		} else {
			introducedEvts = append(introducedEvts, pi.fp)
		}
	}
	if len(introducedCmds) > 0 {
		c.deps.Journal.OnCommandsAdded(introducedCmds)
	}
	if len(introducedEvts) > 0 {
		c.deps.Journal.OnEventsAdded(introducedEvts)
	}

	// 6. Indexing, while locks are still held.
	for _, ent := range appended {
		if err := c.deps.Index.AddToCollection(ctx, ent.LayoutFingerprint(), ent); err != nil {
			c.log.Error("index add failed", logpkg.Str("fingerprint", ent.LayoutFingerprint().String()), logpkg.Err(err))
		}
	}

	// 7. Notifying.
	c.notifySubscribers(ctx, appended)

	// 8. Release happens via the deferred releaseGuards above; resolve.
	if runErr != nil {
		return Outcome{Err: runErr, Kind: FailureHostError}
	}
	return Outcome{Result: result, Kind: FailureNone}
}

// describeAndMark derives ev's layout, assigns its fingerprint, and
// records it as a pending introduction if the journal hasn't seen it
// yet (and no earlier event in this command already queued it).
func (c *Consumer) describeAndMark(ev entity.Event, pending *[]pendingIntro) (layout.Layout, error) {
	lay, err := c.deps.Cache.Describe(reflect.TypeOf(ev))
	if err != nil {
		return layout.Layout{}, err
	}
	ev.SetLayoutFingerprint(lay.Fingerprint)
	if !c.deps.Journal.Introduced(lay.Fingerprint) && !hasFingerprint(*pending, lay.Fingerprint) {
		*pending = append(*pending, pendingIntro{fp: lay.Fingerprint, lay: lay})
	}
	return lay, nil
}

func releaseGuards(guards []lock.Guard) {
	for i := len(guards) - 1; i >= 0; i-- {
		_ = guards[i].Release()
	}
}

func (c *Consumer) notifySubscribers(ctx context.Context, entities []entity.Entity) {
	for _, s := range c.snapshotSubscribers() {
		c.notifyOne(ctx, s, entities)
	}
}

func (c *Consumer) notifyOne(ctx context.Context, s EntitySubscriber, entities []entity.Entity) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("entity subscriber panicked", logpkg.Any("panic", r))
		}
	}()
	nctx, cancel := context.WithTimeout(ctx, c.cfg.SubscriberTimeout)
	defer cancel()
	if err := s.Notify(nctx, entities); err != nil {
		c.log.Warn("entity subscriber returned an error", logpkg.Err(err))
	}
}
