package blob

import (
	"testing"
)

func TestReshapeKeepsValues(t *testing.T) {
	b := New(2, 3)
	if b.Count() != 6 {
		t.Fatalf("count = %d, want 6", b.Count())
	}
	for i := range b.Data() {
		b.Data()[i] = float32(i)
	}
	b.Reshape(3, 2)
	if b.Count() != 6 {
		t.Fatalf("count after same-size reshape = %d, want 6", b.Count())
	}
	if b.Data()[5] != 5 {
		t.Errorf("value lost on same-size reshape: %v", b.Data())
	}

	b.Reshape(2, 2)
	if b.Count() != 4 {
		t.Fatalf("count after shrink = %d, want 4", b.Count())
	}
	if b.Capacity() < 6 {
		t.Errorf("shrink reallocated: capacity %d", b.Capacity())
	}
	if b.Data()[3] != 3 {
		t.Errorf("value lost on shrink: %v", b.Data())
	}

	b.Reshape(4, 4)
	if b.Count() != 16 {
		t.Fatalf("count after grow = %d, want 16", b.Count())
	}
	if b.Data()[0] != 0 || b.Data()[3] != 3 {
		t.Errorf("leading values lost on grow: %v", b.Data()[:4])
	}
}

func TestShapeString(t *testing.T) {
	b := New(2, 3, 4)
	if got, want := b.ShapeString(), "2 3 4 (24)"; got != want {
		t.Errorf("ShapeString() = %q, want %q", got, want)
	}
}

func TestDiffTracksData(t *testing.T) {
	b := New(5)
	if len(b.Diff()) != len(b.Data()) {
		t.Fatalf("diff len %d, data len %d", len(b.Diff()), len(b.Data()))
	}
	b.Diff()[2] = 1
	b.ZeroDiff()
	if b.Diff()[2] != 0 {
		t.Errorf("ZeroDiff left %v", b.Diff())
	}
	b.Reshape(7)
	if len(b.Diff()) != 7 {
		t.Errorf("diff len after reshape = %d, want 7", len(b.Diff()))
	}
}

func TestShapeEquals(t *testing.T) {
	if !New(2, 3).ShapeEquals(New(2, 3)) {
		t.Error("equal shapes reported unequal")
	}
	if New(2, 3).ShapeEquals(New(3, 2)) {
		t.Error("2x3 equals 3x2")
	}
	if New(6).ShapeEquals(New(2, 3)) {
		t.Error("6 equals 2x3")
	}
}

func TestFromDataPanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for mismatched data")
		}
	}()
	FromData([]float32{1, 2, 3}, 2, 2)
}

func TestLockedWith(t *testing.T) {
	l := NewLocked(New(3))
	l.With(func(b *Blob) {
		b.Data()[0] = 42
	})
	l.WithRead(func(b *Blob) {
		if b.Data()[0] != 42 {
			t.Errorf("write not visible: %v", b.Data())
		}
	})
	b := l.RLock()
	if b.Count() != 3 {
		t.Errorf("count = %d", b.Count())
	}
	l.RUnlock()
}
