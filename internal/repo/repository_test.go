package repo

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"testing"
	"time"

	"github.com/flowcore/flowcore/internal/clock"
	"github.com/flowcore/flowcore/internal/config"
	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/index/memindex"
	"github.com/flowcore/flowcore/internal/journal/pebblejournal"
	"github.com/flowcore/flowcore/internal/lock"
	pebblestore "github.com/flowcore/flowcore/internal/storage/pebble"
)

type orderPlaced struct {
	entity.EventBase
	SKU string `chronicle:"sku"`
}

type orderAcc struct{ n int }

type placeOrder struct {
	entity.Base
	SKU string `chronicle:"sku"`
}

func (c *placeOrder) LockNames() []string { return []string{"order:" + c.SKU} }

func (c *placeOrder) Execute(ctx context.Context, acc *orderAcc) iter.Seq[entity.Event] {
	return func(yield func(entity.Event) bool) {
		acc.n++
		yield(&orderPlaced{EventBase: entity.EventBase{Base: entity.NewBase()}, SKU: c.SKU})
	}
}

func (c *placeOrder) OnCompletion(acc *orderAcc) int { return acc.n }

type orderCommandSet struct{}

func (orderCommandSet) CommandTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(placeOrder{})}
}

type orderEventSet struct{}

func (orderEventSet) EventTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(orderPlaced{})}
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	j, err := pebblejournal.Open(pebblestore.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	cfg := config.Default()
	cfg.WorkerCount = 2
	r, err := NewBuilder().
		WithJournal(j).
		WithClock(clock.New(clock.Options{})).
		WithLockProvider(lock.NewLocal()).
		WithIndexEngine(memindex.New()).
		WithConfig(cfg).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func TestLifecycleRejectsOutOfOrderTransitions(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Stop(context.Background()); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("Stop before Start: got %v, want ErrIllegalState", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("double Start: got %v, want ErrIllegalState", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.State() != Terminated {
		t.Fatalf("got state %s, want terminated", r.State())
	}
}

func TestPublishBeforeStartIsRejected(t *testing.T) {
	r := newTestRepo(t)
	cmd := entity.Adapt[int, orderAcc](&placeOrder{Base: entity.NewBase(), SKU: "X1"})
	_, err := r.Publish(context.Background(), cmd)
	if !errors.Is(err, ErrIllegalState) {
		t.Fatalf("got %v, want ErrIllegalState", err)
	}
}

func TestProviderRegistrationAndPublishRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	r.AddCommandSetProvider(orderCommandSet{})
	r.AddEventSetProvider(orderEventSet{})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop(context.Background())

	if got := r.InstalledCommands(); len(got) != 1 {
		t.Fatalf("got installed commands %v, want 1 entry", got)
	}
	if got := r.InstalledEvents(); len(got) != 1 {
		t.Fatalf("got installed events %v, want 1 entry", got)
	}

	cmd := entity.Adapt[int, orderAcc](&placeOrder{Base: entity.NewBase(), SKU: "X2"})
	future, err := r.Publish(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := future.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.(int) != 1 {
		t.Fatalf("got result %v, want 1", result)
	}
}

func TestGetTimestampIsMonotonic(t *testing.T) {
	r := newTestRepo(t)
	a := r.GetTimestamp()
	b := r.GetTimestamp()
	if !a.Before(b) {
		t.Fatalf("got a=%+v b=%+v, want a before b", a, b)
	}
}
