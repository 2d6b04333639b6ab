package repo

import (
	"bytes"
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/codec"
	"github.com/flowcore/flowcore/internal/config"
	"github.com/flowcore/flowcore/internal/consumer"
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/index"
	"github.com/flowcore/flowcore/internal/journal"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/flowcore/flowcore/internal/lock"
	"github.com/flowcore/flowcore/internal/repo/builtin"
	logpkg "github.com/flowcore/flowcore/pkg/log"
)

// Repository is the library's single entry point: Publish a command,
// observe its effects through an EntitySubscriber, query through the
// index engine it was built with. See Builder for construction.
type Repository struct {
	journal journal.Journal
	clk     consumer.Clock
	locks   lock.Provider
	index   index.Engine
	cache   *layout.Cache
	cfg     config.Config
	log     logpkg.Logger

	mu    sync.Mutex
	state State
	cons  *consumer.Consumer

	cmdProviders []CommandSetProvider
	evtProviders []EventSetProvider

	installedCmds map[string]struct{}
	installedEvts map[string]struct{}

	pendingSubs []consumer.EntitySubscriber
}

func (r *Repository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start validates that every required collaborator is present, brings
// up the command consumer, journals layouts for any command/event types
// registered so far, then reports Running. It is a one-way transition:
// calling Start twice fails with ErrIllegalState.
func (r *Repository) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != New {
		state := r.state
		r.mu.Unlock()
		return &StateError{Op: "Start", State: state}
	}
	r.state = Starting
	r.mu.Unlock()

	cons, err := consumer.New(consumer.Deps{
		Journal: r.journal,
		Clock:   r.clk,
		Locks:   r.locks,
		Index:   r.index,
		Cache:   r.cache,
		Logger:  r.log,
	}, consumer.Config{
		WorkerCount:       r.cfg.WorkerCount,
		QueueDepth:        r.cfg.QueueDepth,
		LockTimeout:       r.cfg.LockTimeout(),
		SubscriberTimeout: r.cfg.SubscriberTimeout(),
	})
	if err != nil {
		r.setState(New)
		return err
	}
	cons.Start(ctx)

	r.mu.Lock()
	r.cons = cons
	for _, s := range r.pendingSubs {
		cons.AddSubscriber(s)
	}
	r.pendingSubs = nil
	r.mu.Unlock()

	if err := r.introduceRegisteredTypes(ctx); err != nil {
		_ = cons.Stop(ctx)
		r.setState(New)
		return err
	}

	r.setState(Running)
	r.log.Info("repository running")
	return nil
}

// Stop drains the consumer and transitions to Terminated. Stop is also
// one-way: it may only be called from Running.
func (r *Repository) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Running {
		state := r.state
		r.mu.Unlock()
		return &StateError{Op: "Stop", State: state}
	}
	r.state = Stopping
	cons := r.cons
	r.mu.Unlock()

	err := cons.Stop(ctx)
	r.setState(Terminated)
	r.log.Info("repository terminated")
	return err
}

func (r *Repository) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Publish hands cmd to the command consumer. It only succeeds while
// Running; publishing before Start or after Stop fails with
// ErrIllegalState — a rejection rather than a silent buffer, since an
// unbounded queue-while-stopped has no natural drain point in a library
// with no background scheduler of its own.
func (r *Repository) Publish(ctx context.Context, cmd entity.AnyCommand) (Future[any], error) {
	r.mu.Lock()
	cons := r.cons
	state := r.state
	r.mu.Unlock()

	if state != Running || cons == nil {
		return Future[any]{}, &StateError{Op: "Publish", State: state}
	}
	ch, err := cons.Submit(ctx, cmd)
	if err != nil {
		return Future[any]{}, err
	}
	return Future[any]{ch: ch}, nil
}

// GetTimestamp issues a fresh HLC tick. Like every other Tick caller,
// this advances the clock's logical counter; there is no side-effect
// free "peek" in internal/clock's contract.
func (r *Repository) GetTimestamp() clock.HybridTimestamp {
	return r.clk.Tick()
}

// AddCommandSetProvider registers p's command types. While Running, any
// type not yet seen by the journal is introduced immediately; otherwise
// registration is recorded and flushed on the next Start.
func (r *Repository) AddCommandSetProvider(p CommandSetProvider) {
	types := p.CommandTypes()
	r.mu.Lock()
	r.cmdProviders = append(r.cmdProviders, p)
	for _, t := range types {
		r.installedCmds[typeName(t)] = struct{}{}
	}
	running := r.state == Running
	r.mu.Unlock()

	if running {
		if err := r.introduceTypes(context.Background(), types); err != nil {
			r.log.Error("incremental command layout introduction failed", logpkg.Err(err))
		}
	}
}

// RemoveCommandSetProvider unregisters p. Types it introduced remain
// journaled: layout introduction is permanent, since the fingerprint
// space is content-addressed and never retracted.
func (r *Repository) RemoveCommandSetProvider(p CommandSetProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.cmdProviders {
		if q == p {
			r.cmdProviders = append(r.cmdProviders[:i], r.cmdProviders[i+1:]...)
			return
		}
	}
}

// AddEventSetProvider registers p's event types, with the same
// immediate-or-deferred introduction behavior as AddCommandSetProvider.
func (r *Repository) AddEventSetProvider(p EventSetProvider) {
	types := p.EventTypes()
	r.mu.Lock()
	r.evtProviders = append(r.evtProviders, p)
	for _, t := range types {
		r.installedEvts[typeName(t)] = struct{}{}
	}
	running := r.state == Running
	r.mu.Unlock()

	if running {
		if err := r.introduceTypes(context.Background(), types); err != nil {
			r.log.Error("incremental event layout introduction failed", logpkg.Err(err))
		}
	}
}

// RemoveEventSetProvider unregisters p.
func (r *Repository) RemoveEventSetProvider(p EventSetProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.evtProviders {
		if q == p {
			r.evtProviders = append(r.evtProviders[:i], r.evtProviders[i+1:]...)
			return
		}
	}
}

// AddEntitySubscriber registers s with the running consumer, or queues
// it to be registered on the next Start if the consumer doesn't exist
// yet.
func (r *Repository) AddEntitySubscriber(s consumer.EntitySubscriber) {
	r.mu.Lock()
	cons := r.cons
	if cons == nil {
		r.pendingSubs = append(r.pendingSubs, s)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	cons.AddSubscriber(s)
}

// RemoveEntitySubscriber unregisters s.
func (r *Repository) RemoveEntitySubscriber(s consumer.EntitySubscriber) {
	r.mu.Lock()
	cons := r.cons
	if cons == nil {
		for i, sub := range r.pendingSubs {
			if sub == s {
				r.pendingSubs = append(r.pendingSubs[:i], r.pendingSubs[i+1:]...)
				break
			}
		}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	cons.RemoveSubscriber(s)
}

// InstalledCommands returns the sorted names of every command type any
// registered CommandSetProvider has ever declared.
func (r *Repository) InstalledCommands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.installedCmds)
}

// InstalledEvents is InstalledCommands' event-side counterpart.
func (r *Repository) InstalledEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.installedEvts)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Repository) introduceRegisteredTypes(ctx context.Context) error {
	r.mu.Lock()
	var types []reflect.Type
	for _, p := range r.cmdProviders {
		types = append(types, p.CommandTypes()...)
	}
	for _, p := range r.evtProviders {
		types = append(types, p.EventTypes()...)
	}
	r.mu.Unlock()
	return r.introduceTypes(ctx, types)
}

// introduceTypes derives each type's layout and, for any fingerprint the
// journal hasn't seen yet, journals an EntityLayoutIntroduced record
// directly — bypassing the command pipeline, since there is no real
// causing command for a bootstrap registration. uuid.Nil stands in as
// "no cause," which EventBase.CauseID already treats as absent.
func (r *Repository) introduceTypes(ctx context.Context, types []reflect.Type) error {
	introLayout, err := r.cache.Describe(reflect.TypeOf(builtin.EntityLayoutIntroduced{}))
	if err != nil {
		return err
	}

	var fresh []layout.Layout
	for _, t := range types {
		lay, err := r.cache.Describe(t)
		if err != nil {
			return err
		}
		if !r.journal.Introduced(lay.Fingerprint) {
			fresh = append(fresh, lay)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	tx, err := r.journal.Begin(ctx)
	if err != nil {
		return err
	}

	fps := make([]layout.Fingerprint, 0, len(fresh))
	for _, lay := range fresh {
		schema, err := lay.MarshalBinary()
		if err != nil {
			_ = tx.Abort()
			return err
		}
		introEv := &builtin.EntityLayoutIntroduced{
			FingerprintBytes: append([]byte{}, lay.Fingerprint[:]...),
			Schema:           schema,
		}
		introEv.SetHLCStamp(r.clk.Tick())
		introEv.SetLayoutFingerprint(introLayout.Fingerprint)

		var buf bytes.Buffer
		if err := codec.Encode(&buf, r.cache, introLayout, introEv); err != nil {
			_ = tx.Abort()
			return err
		}
		meta := journal.Meta{Fingerprint: introLayout.Fingerprint, Stamp: introEv.HLCStamp(), ID: introEv.EntityID()}
		if err := tx.AppendEvent(buf.Bytes(), meta, uuid.Nil); err != nil {
			_ = tx.Abort()
			return err
		}
		fps = append(fps, lay.Fingerprint)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.journal.OnEventsAdded(fps)
	return nil
}
