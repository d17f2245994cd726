// Package blob implements the tensor type passed between layers. A blob
// carries two equally sized halves: the data flowing forward and the diff
// (gradient) flowing backward.
package blob

import "fmt"
import "strings"

// Blob is an N-dimensional tensor of float32 values with a gradient half.
type Blob struct {
	shape []int
	data  []float32
	diff  []float32
}

// New creates a blob of the given shape, zero filled.
func New(shape ...int) *Blob {
	b := new(Blob)
	b.Reshape(shape...)
	return b
}

// FromData creates a blob of the given shape with data copied in.
// Panics when the value count does not match the shape.
func FromData(data []float32, shape ...int) *Blob {
	b := New(shape...)
	if len(data) != b.Count() {
		panic(fmt.Sprintf("blob: %d values do not fit shape %v", len(data), shape))
	}
	copy(b.data, data)
	return b
}

// Reshape resizes the blob to the given shape. Values are kept up to the new
// count. Storage is reallocated only when the capacity grows.
func (b *Blob) Reshape(shape ...int) {
	if len(shape) == 0 {
		panic("blob: empty shape")
	}
	count := 1
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("blob: non-positive dimension in shape %v", shape))
		}
		count *= s
	}
	b.shape = append(b.shape[:0], shape...)
	if count > cap(b.data) {
		data := make([]float32, count)
		copy(data, b.data)
		diff := make([]float32, count)
		copy(diff, b.diff)
		b.data, b.diff = data, diff
		return
	}
	b.data = b.data[:count]
	b.diff = b.diff[:count]
}

// ReshapeLike resizes the blob to the shape of other.
func (b *Blob) ReshapeLike(other *Blob) {
	b.Reshape(other.shape...)
}

// Shape returns the blob shape. The slice must not be modified.
func (b *Blob) Shape() []int {
	return b.shape
}

// Count returns the number of values held by the blob.
func (b *Blob) Count() int {
	return len(b.data)
}

// Capacity returns the number of values the blob can hold without
// reallocating.
func (b *Blob) Capacity() int {
	return cap(b.data)
}

// ShapeString renders the shape the way error messages print it,
// for example "2 3 (6)".
func (b *Blob) ShapeString() string {
	var sb strings.Builder
	for _, s := range b.shape {
		fmt.Fprintf(&sb, "%d ", s)
	}
	fmt.Fprintf(&sb, "(%d)", b.Count())
	return sb.String()
}

// Data returns the forward values. The slice aliases blob storage.
func (b *Blob) Data() []float32 {
	return b.data
}

// Diff returns the gradient values. The slice aliases blob storage.
func (b *Blob) Diff() []float32 {
	return b.diff
}

// ZeroDiff clears the gradient half.
func (b *Blob) ZeroDiff() {
	for i := range b.diff {
		b.diff[i] = 0
	}
}

// ShapeEquals reports whether both blobs have the identical shape.
func (b *Blob) ShapeEquals(other *Blob) bool {
	if len(b.shape) != len(other.shape) {
		return false
	}
	for i, s := range b.shape {
		if other.shape[i] != s {
			return false
		}
	}
	return true
}
