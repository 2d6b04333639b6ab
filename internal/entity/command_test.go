package entity

import (
	"context"
	"iter"
	"testing"
)

type greetEvent struct {
	EventBase
	Message string `chronicle:"message"`
}

type greetCount struct{ n int }

type greetCommand struct {
	Base
	Name string `chronicle:"name"`
}

func (c *greetCommand) LockNames() []string { return []string{"greet:" + c.Name} }

func (c *greetCommand) Execute(ctx context.Context, acc *greetCount) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for i := 0; i < 3; i++ {
			acc.n++
			ev := &greetEvent{EventBase: EventBase{Base: NewBase()}, Message: "hi " + c.Name}
			if !yield(ev) {
				return
			}
		}
	}
}

func (c *greetCommand) OnCompletion(acc *greetCount) int { return acc.n }

type panicCommand struct {
	Base
}

func (c *panicCommand) LockNames() []string { return nil }

func (c *panicCommand) Execute(ctx context.Context, acc *greetCount) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		panic("boom")
	}
}

func (c *panicCommand) OnCompletion(acc *greetCount) int { return acc.n }

func TestAdaptRunCollectsEventsAndResult(t *testing.T) {
	cmd := &greetCommand{Base: NewBase(), Name: "Ada"}
	erased := Adapt[int, greetCount](cmd)

	var events []Event
	result, err := erased.Run(context.Background(), func(ev Event) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if result.(int) != 3 {
		t.Fatalf("got result %v, want 3", result)
	}
}

func TestAdaptRunRecoversPanicAsHostError(t *testing.T) {
	cmd := &panicCommand{Base: NewBase()}
	erased := Adapt[int, greetCount](cmd)

	_, err := erased.Run(context.Background(), func(ev Event) {})
	if err == nil {
		t.Fatal("expected an error from the panicking command, got nil")
	}
	he, ok := err.(*HostError)
	if !ok {
		t.Fatalf("expected *HostError, got %T", err)
	}
	if he.Detail != "boom" {
		t.Fatalf("unexpected detail: %q", he.Detail)
	}
}
