package consumer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/index/memindex"
	"github.com/flowcore/flowcore/internal/journal/pebblejournal"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/flowcore/flowcore/internal/lock"
	pebblestore "github.com/flowcore/flowcore/internal/storage/pebble"
)

type depositedEvent struct {
	entity.EventBase
	Amount int64 `chronicle:"amount"`
}

type depositAcc struct{ total int64 }

type depositCommand struct {
	entity.Base
	Account string `chronicle:"account"`
	Amount  int64  `chronicle:"amount"`
	fail    bool
}

func (c *depositCommand) LockNames() []string { return []string{"account:" + c.Account} }

func (c *depositCommand) Execute(ctx context.Context, acc *depositAcc) iter.Seq[entity.Event] {
	return func(yield func(entity.Event) bool) {
		if c.fail {
			panic("insufficient ledger capacity")
		}
		acc.total += c.Amount
		ev := &depositedEvent{EventBase: entity.EventBase{Base: entity.NewBase()}, Amount: c.Amount}
		yield(ev)
	}
}

func (c *depositCommand) OnCompletion(acc *depositAcc) int64 { return acc.total }

func newTestConsumer(t *testing.T) (*Consumer, *pebblejournal.Journal) {
	t.Helper()
	j, err := pebblejournal.Open(pebblestore.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	c, err := New(Deps{
		Journal: j,
		Clock:   clock.New(clock.Options{}),
		Locks:   lock.NewLocal(),
		Index:   memindex.New(),
		Cache:   layout.NewCache(),
	}, Config{WorkerCount: 2, QueueDepth: 16, LockTimeout: time.Second, SubscriberTimeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, j
}

// unlayoutableEvent has a field type layout.Describe cannot map onto
// the closed TypeTag set, so describeAndMark fails for it.
type unlayoutableEvent struct {
	entity.EventBase
	Ch chan int `chronicle:"ch"`
}

type badLayoutCommand struct {
	entity.Base
	Account string `chronicle:"account"`
}

func (c *badLayoutCommand) LockNames() []string { return []string{"account:" + c.Account} }

func (c *badLayoutCommand) Execute(ctx context.Context, acc *depositAcc) iter.Seq[entity.Event] {
	return func(yield func(entity.Event) bool) {
		ev := &unlayoutableEvent{EventBase: entity.EventBase{Base: entity.NewBase()}, Ch: make(chan int)}
		yield(ev)
	}
}

func (c *badLayoutCommand) OnCompletion(acc *depositAcc) int64 { return 0 }

type recordingSubscriber struct {
	seen [][]entity.Entity
}

func (s *recordingSubscriber) Notify(ctx context.Context, entities []entity.Entity) error {
	s.seen = append(s.seen, entities)
	return nil
}

type failingSubscriber struct{}

func (failingSubscriber) Notify(ctx context.Context, entities []entity.Entity) error {
	return errors.New("subscriber unavailable")
}

type panickingSubscriber struct{}

func (panickingSubscriber) Notify(ctx context.Context, entities []entity.Entity) error {
	panic("subscriber exploded")
}

func TestSuccessfulCommandAppendsAndNotifies(t *testing.T) {
	c, _ := newTestConsumer(t)
	sub := &recordingSubscriber{}
	c.AddSubscriber(sub)
	c.Start(context.Background())
	defer c.Stop(context.Background())

	cmd := entity.Adapt[int64, depositAcc](&depositCommand{Base: entity.NewBase(), Account: "A1", Amount: 50})
	ch, err := c.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	outcome := <-ch
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v (kind %s)", outcome.Err, outcome.Kind)
	}
	if outcome.Result.(int64) != 50 {
		t.Fatalf("got result %v, want 50", outcome.Result)
	}
	if len(sub.seen) != 1 {
		t.Fatalf("got %d notifications, want 1", len(sub.seen))
	}
	// command + deposited event + causality-established event, plus
	// whatever EntityLayoutIntroduced records this was the first to need.
	if len(sub.seen[0]) < 3 {
		t.Fatalf("got %d appended entities, want at least 3", len(sub.seen[0]))
	}
}

func TestHostErrorCapturesFailureRecordsOnly(t *testing.T) {
	c, _ := newTestConsumer(t)
	c.Start(context.Background())
	defer c.Stop(context.Background())

	// Prime the journal with a successful command first so the deposit
	// event layout is already introduced and doesn't show up noise in
	// the failing run's appended set.
	okCmd := entity.Adapt[int64, depositAcc](&depositCommand{Base: entity.NewBase(), Account: "A2", Amount: 1})
	if outcome := <-mustSubmit(t, c, okCmd); outcome.Err != nil {
		t.Fatalf("priming command failed: %v", outcome.Err)
	}

	var sub recordingSubscriber
	c.AddSubscriber(&sub)

	failCmd := entity.Adapt[int64, depositAcc](&depositCommand{Base: entity.NewBase(), Account: "A2", Amount: 1, fail: true})
	outcome := <-mustSubmit(t, c, failCmd)
	if outcome.Kind != FailureHostError {
		t.Fatalf("got kind %s, want host_error", outcome.Kind)
	}
	if outcome.Err == nil {
		t.Fatal("expected a non-nil error")
	}

	if len(sub.seen) != 1 {
		t.Fatalf("got %d notifications, want 1", len(sub.seen))
	}
	for _, ent := range sub.seen[0] {
		if _, ok := ent.(*depositedEvent); ok {
			t.Fatal("a deposited event leaked out of a failed command")
		}
	}
}

func TestLockContentionTimesOut(t *testing.T) {
	c, _ := newTestConsumer(t)
	c.cfg.LockTimeout = 20 * time.Millisecond

	guard, ok, err := c.deps.Locks.TryAcquire(context.Background(), "account:A3", time.Second)
	if err != nil || !ok {
		t.Fatalf("priming TryAcquire: ok=%v err=%v", ok, err)
	}
	defer guard.Release()

	c.Start(context.Background())
	defer c.Stop(context.Background())

	cmd := entity.Adapt[int64, depositAcc](&depositCommand{Base: entity.NewBase(), Account: "A3", Amount: 1})
	outcome := <-mustSubmit(t, c, cmd)
	if outcome.Kind != FailureLockTimeout {
		t.Fatalf("got kind %s, want lock_timeout", outcome.Kind)
	}
}

func TestSubscriberFailureAndPanicAreIsolated(t *testing.T) {
	c, _ := newTestConsumer(t)
	c.AddSubscriber(failingSubscriber{})
	c.AddSubscriber(panickingSubscriber{})
	var good recordingSubscriber
	c.AddSubscriber(&good)
	c.Start(context.Background())
	defer c.Stop(context.Background())

	cmd := entity.Adapt[int64, depositAcc](&depositCommand{Base: entity.NewBase(), Account: "A4", Amount: 5})
	outcome := <-mustSubmit(t, c, cmd)
	if outcome.Err != nil {
		t.Fatalf("command should still succeed despite subscriber faults: %v", outcome.Err)
	}
	if len(good.seen) != 1 {
		t.Fatalf("well-behaved subscriber missed its notification: got %d", len(good.seen))
	}
}

func TestCodecFaultDuringDrainIsSerializationNotHostError(t *testing.T) {
	c, _ := newTestConsumer(t)
	c.Start(context.Background())
	defer c.Stop(context.Background())

	var sub recordingSubscriber
	c.AddSubscriber(&sub)

	cmd := entity.Adapt[int64, depositAcc](&badLayoutCommand{Base: entity.NewBase(), Account: "A9"})
	outcome := <-mustSubmit(t, c, cmd)
	if outcome.Kind != FailureSerialization {
		t.Fatalf("got kind %s, want serialization_error", outcome.Kind)
	}
	if outcome.Err == nil {
		t.Fatal("expected a non-nil error")
	}
	if len(sub.seen) != 0 {
		t.Fatalf("a codec fault mid-drain should never reach the journal or notify subscribers, got %d notifications", len(sub.seen))
	}
}

func TestConcurrentPublishersGetDistinctOrderedStamps(t *testing.T) {
	c, _ := newTestConsumer(t)
	c.cfg.WorkerCount = 8
	c.Start(context.Background())
	defer c.Stop(context.Background())

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	stamps := make([]clock.HybridTimestamp, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			cmd := entity.Adapt[int64, depositAcc](&depositCommand{
				Base:    entity.NewBase(),
				Account: fmt.Sprintf("A%d", i),
				Amount:  1,
			})
			ch, err := c.Submit(context.Background(), cmd)
			if err != nil {
				t.Errorf("Submit: %v", err)
				return
			}
			outcome := <-ch
			if outcome.Err != nil {
				t.Errorf("unexpected error: %v", outcome.Err)
				return
			}
			stamps[i] = cmd.HLCStamp()
		}(i)
	}
	wg.Wait()

	seen := make(map[clock.HybridTimestamp]bool, n)
	for _, ts := range stamps {
		if ts.IsZero() {
			t.Fatal("command never received an HLC stamp")
		}
		if seen[ts] {
			t.Fatalf("two concurrent publishers received the same stamp: %+v", ts)
		}
		seen[ts] = true
	}

	sorted := append([]clock.HybridTimestamp{}, stamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Compare(sorted[i-1]) <= 0 {
			t.Fatalf("expected a strict total order across all stamps, got %+v then %+v", sorted[i-1], sorted[i])
		}
	}
}

func mustSubmit(t *testing.T, c *Consumer, cmd entity.AnyCommand) <-chan Outcome {
	t.Helper()
	ch, err := c.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return ch
}
