package datasets

import (
	"math/rand"
	"testing"
)

func numberedSet(n int) Set {
	set := make(Set, n)
	for i := range set {
		set[i] = Sample{Input: []float32{float32(i)}, Label: uint8(i % 10)}
	}
	return set
}

func TestShuffleIsPermutation(t *testing.T) {
	set := numberedSet(100)
	set.Shuffle(rand.New(rand.NewSource(1)))

	seen := make(map[float32]bool, len(set))
	for _, s := range set {
		seen[s.Input[0]] = true
	}
	if len(seen) != 100 {
		t.Fatalf("shuffle dropped samples: %d distinct of 100", len(seen))
	}
}

func TestShuffleDeterministicBySeed(t *testing.T) {
	a, b := numberedSet(50), numberedSet(50)
	a.Shuffle(rand.New(rand.NewSource(7)))
	b.Shuffle(rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i].Input[0] != b[i].Input[0] {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}

func TestShuffleNilRNG(t *testing.T) {
	set := numberedSet(10)
	set.Shuffle(nil) // falls back to the global source
	if len(set) != 10 {
		t.Fatalf("len = %d", len(set))
	}
}

func TestSplit(t *testing.T) {
	set := numberedSet(10)

	head, tail := set.Split(0.8)
	if len(head) != 8 || len(tail) != 2 {
		t.Fatalf("split 0.8 gave %d/%d", len(head), len(tail))
	}
	if head[0].Input[0] != 0 || tail[0].Input[0] != 8 {
		t.Error("split reordered samples")
	}

	head, tail = set.Split(0)
	if len(head) != 0 || len(tail) != 10 {
		t.Fatalf("split 0 gave %d/%d", len(head), len(tail))
	}
	head, tail = set.Split(1)
	if len(head) != 10 || len(tail) != 0 {
		t.Fatalf("split 1 gave %d/%d", len(head), len(tail))
	}
}

func TestBatches(t *testing.T) {
	set := numberedSet(10)

	batches := set.Batches(3)
	if len(batches) != 4 {
		t.Fatalf("got %d batches, want 4", len(batches))
	}
	for i, b := range batches[:3] {
		if len(b) != 3 {
			t.Errorf("batch %d has %d samples, want 3", i, len(b))
		}
	}
	if len(batches[3]) != 1 {
		t.Errorf("last batch has %d samples, want 1", len(batches[3]))
	}
	if batches[1][0].Input[0] != 3 {
		t.Error("batches reordered samples")
	}

	if got := set.Batches(0); len(got) != 10 {
		t.Errorf("batch size 0 should clamp to 1, got %d batches", len(got))
	}
	if got := set.Batches(100); len(got) != 1 {
		t.Errorf("oversized batch should yield one batch, got %d", len(got))
	}
}
