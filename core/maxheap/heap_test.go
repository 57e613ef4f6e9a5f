package maxheap_test

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/momentics/hioload-sort/core/maxheap"
)

func TestPopEmpty(t *testing.T) {
	h := maxheap.New[int64]()
	if _, err := h.Pop(); !errors.Is(err, maxheap.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := h.Peek(); !errors.Is(err, maxheap.ErrEmpty) {
		t.Fatalf("expected ErrEmpty from Peek, got %v", err)
	}
}

// Every extracted value dominates everything still in the heap, under an
// arbitrary interleaving of pushes and pops.
func TestHeapOrderUnderInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	h := maxheap.New[int64]()
	var shadow []int64
	for i := 0; i < 20000; i++ {
		if rng.Intn(3) > 0 || h.Empty() {
			v := rng.Int63n(2000) - 1000
			h.Push(v)
			shadow = append(shadow, v)
			continue
		}
		got, err := h.Pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		idx := slices.Index(shadow, got)
		if idx < 0 {
			t.Fatalf("popped %d which was never pushed", got)
		}
		shadow = slices.Delete(shadow, idx, idx+1)
		for _, rest := range shadow {
			if rest > got {
				t.Fatalf("popped %d while %d remained", got, rest)
			}
		}
		if h.Len() != len(shadow) {
			t.Fatalf("len=%d want %d", h.Len(), len(shadow))
		}
	}
}

func TestBuildDrainsSortedDescending(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{0, 1, 2, 3, 10, 257, 1000} {
		in := make([]int64, n)
		for i := range in {
			in[i] = rng.Int63n(100)
		}
		orig := slices.Clone(in)
		got := maxheap.Build(in).Drain()

		want := slices.Clone(in)
		slices.Sort(want)
		slices.Reverse(want)
		if !slices.Equal(got, want) {
			t.Fatalf("n=%d: got %v want %v", n, got, want)
		}
		if !slices.Equal(in, orig) {
			t.Fatalf("n=%d: Build mutated its input", n)
		}
	}
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	h := maxheap.New[int64]()
	for _, v := range []int64{7, 500, 42, 13, 500, 1} {
		h.Push(v)
	}
	before := h.Values()

	dump := h.Clone().Drain()
	if !slices.Equal(dump, []int64{500, 500, 42, 13, 7, 1}) {
		t.Fatalf("clone dump = %v", dump)
	}
	if !slices.Equal(h.Values(), before) {
		t.Fatalf("original backing array changed: %v -> %v", before, h.Values())
	}
	if got := h.Drain(); !slices.Equal(got, dump) {
		t.Fatalf("original drain = %v, want %v", got, dump)
	}
}

func TestPeek(t *testing.T) {
	h := maxheap.Build([]string{"b", "d", "a"})
	top, err := h.Peek()
	if err != nil || top != "d" {
		t.Fatalf("peek = %q err=%v", top, err)
	}
	if h.Len() != 3 {
		t.Fatalf("peek changed length to %d", h.Len())
	}
}
