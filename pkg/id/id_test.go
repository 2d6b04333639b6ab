package id

import (
	"testing"
	"time"
)

func TestNextTracksClock(t *testing.T) {
	g := NewGenerator()
	NowMs = func() int64 { return 1000 }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	if got := g.Next(); got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
}

func TestClockRegressionGuard(t *testing.T) {
	g := NewGenerator()
	seq := int64(1000)
	NowMs = func() int64 { return seq }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	a := g.Next() // 1000
	seq = 900      // clock went backwards
	b := g.Next()  // must still be >= a
	if b < a {
		t.Fatalf("got b=%d < a=%d despite regression guard", b, a)
	}
}

func TestNextNeverDecreases(t *testing.T) {
	g := NewGenerator()
	seq := int64(0)
	NowMs = func() int64 { return seq }
	defer func() { NowMs = func() int64 { return time.Now().UnixMilli() } }()

	var prev int64
	for _, next := range []int64{500, 400, 600, 550, 700} {
		seq = next
		got := g.Next()
		if got < prev {
			t.Fatalf("got %d < previous %d", got, prev)
		}
		prev = got
	}
}
