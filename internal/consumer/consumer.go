package consumer

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/index"
	"github.com/flowcore/flowcore/internal/journal"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/flowcore/flowcore/internal/lock"
	"github.com/flowcore/flowcore/internal/repo/builtin"
	logpkg "github.com/flowcore/flowcore/pkg/log"
)

// Config tunes the worker pool and the pipeline's blocking stages.
type Config struct {
	// WorkerCount is the number of goroutines pulling off the intake
	// queue. 0 means "use the number of CPUs."
	WorkerCount int
	// QueueDepth bounds the intake queue; Submit blocks once it's full.
	QueueDepth int
	// LockTimeout bounds each lock acquisition inside Locking.
	LockTimeout time.Duration
	// SubscriberTimeout bounds each subscriber call inside Notifying.
	SubscriberTimeout time.Duration
}

// DefaultConfig returns sensible defaults, with WorkerCount resolved to
// the host's CPU count.
func DefaultConfig() Config {
	return Config{
		WorkerCount:       runtime.NumCPU(),
		QueueDepth:        1024,
		LockTimeout:       30 * time.Second,
		SubscriberTimeout: 5 * time.Second,
	}
}

// Deps are the collaborators the pipeline drives every command through.
type Deps struct {
	Journal journal.Journal
	Clock   Clock
	Locks   lock.Provider
	Index   index.Engine
	Cache   *layout.Cache
	Logger  logpkg.Logger
}

// Clock is the slice of clock.Clock the consumer needs: a single,
// serialized tick per HLC stamp assignment.
type Clock interface {
	Tick() clock.HybridTimestamp
}

type submission struct {
	cmd    entity.AnyCommand
	respCh chan Outcome
}

// Consumer is the command pipeline: a bounded intake queue drained by a
// pool of worker goroutines, each driving one command at a time through
// the Queued→...→Succeeded|Failed protocol.
type Consumer struct {
	deps Deps
	cfg  Config
	log  logpkg.Logger

	queue  chan submission
	wg     sync.WaitGroup
	runCtx context.Context
	cancel context.CancelFunc

	subsMu sync.RWMutex
	subs   []EntitySubscriber

	builtinLayouts builtinLayouts
}

type builtinLayouts struct {
	causality  layout.Layout
	terminated layout.Layout
	hostErr    layout.Layout
	intro      layout.Layout
}

// New constructs a Consumer. It derives and bootstraps the layout of the
// built-in EntityLayoutIntroduced event type itself: that type's
// fingerprint is foundational (its own introduction record would need
// to be introduced to be journaled), so it is marked introduced
// directly against the journal rather than through the normal
// LayoutCheck/Appending path every other type goes through.
func New(deps Deps, cfg Config) (*Consumer, error) {
	if deps.Journal == nil || deps.Clock == nil || deps.Locks == nil || deps.Index == nil || deps.Cache == nil {
		return nil, fmt.Errorf("consumer: journal, clock, locks, index and cache are all required")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1024
	}
	l := deps.Logger
	if l == nil {
		l = logpkg.NewLogger()
	}
	l = l.WithComponent("consumer")

	bl, err := deriveBuiltinLayouts(deps.Cache)
	if err != nil {
		return nil, fmt.Errorf("consumer: derive builtin layouts: %w", err)
	}
	if !deps.Journal.Introduced(bl.intro.Fingerprint) {
		deps.Journal.OnEventsAdded([]layout.Fingerprint{bl.intro.Fingerprint})
	}

	return &Consumer{
		deps:           deps,
		cfg:            cfg,
		log:            l,
		queue:          make(chan submission, cfg.QueueDepth),
		builtinLayouts: bl,
	}, nil
}

func deriveBuiltinLayouts(cache *layout.Cache) (builtinLayouts, error) {
	var bl builtinLayouts
	var err error
	if bl.causality, err = cache.Describe(reflect.TypeOf(builtin.EventCausalityEstablished{})); err != nil {
		return bl, err
	}
	if bl.terminated, err = cache.Describe(reflect.TypeOf(builtin.CommandTerminatedExceptionally{})); err != nil {
		return bl, err
	}
	if bl.hostErr, err = cache.Describe(reflect.TypeOf(builtin.HostErrorOccurred{})); err != nil {
		return bl, err
	}
	if bl.intro, err = cache.Describe(reflect.TypeOf(builtin.EntityLayoutIntroduced{})); err != nil {
		return bl, err
	}
	return bl, nil
}

// Start launches the worker pool. Workers run until Stop closes the
// intake queue; they do not watch ctx for that. ctx is the context every
// command is processed under, not the context of any Submit call: once it
// is cancelled, lock acquisition for a command still in Locking can fail,
// which resolves that command as a lock timeout, while a command that has
// reached Executing still runs through Appending, Indexing and Notifying.
func (c *Consumer) Start(ctx context.Context) {
	c.runCtx, c.cancel = context.WithCancel(ctx)
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the intake queue and waits for in-flight commands to
// drain.
func (c *Consumer) Stop(ctx context.Context) error {
	close(c.queue)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddSubscriber registers s to be notified of every future command's
// appended entities.
func (c *Consumer) AddSubscriber(s EntitySubscriber) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = append(c.subs, s)
}

// RemoveSubscriber unregisters s.
func (c *Consumer) RemoveSubscriber(s EntitySubscriber) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for i, sub := range c.subs {
		if sub == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

func (c *Consumer) snapshotSubscribers() []EntitySubscriber {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	out := make([]EntitySubscriber, len(c.subs))
	copy(out, c.subs)
	return out
}

// Submit enqueues cmd, blocking until the intake queue admits it or ctx
// is done — the only point at which a command may be abandoned before
// it runs. The returned channel receives exactly one Outcome once the
// command reaches a terminal state.
func (c *Consumer) Submit(ctx context.Context, cmd entity.AnyCommand) (<-chan Outcome, error) {
	sub := submission{cmd: cmd, respCh: make(chan Outcome, 1)}
	select {
	case c.queue <- sub:
		return sub.respCh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for sub := range c.queue {
		outcome := c.process(c.runCtx, sub.cmd)
		sub.respCh <- outcome
		close(sub.respCh)
	}
}
