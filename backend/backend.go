// Package backend implements the compute backends the framework can run
// against. The native backend is always compiled in; the cuda backend is
// compiled behind the cuda build tag and registers itself when present.
package backend

import "fmt"

// Backend computes the kernels layers are built from. Slices alias blob
// storage; kernels never retain them.
type Backend interface {

	// Name returns the registry name of the backend.
	Name() string

	// Dot returns the dot product over the shorter of x and y.
	Dot(x, y []float32) float32

	// Axpy computes y += alpha * x over equal length slices.
	Axpy(alpha float32, x, y []float32)

	// Scal computes x *= alpha.
	Scal(alpha float32, x []float32)

	// Copy copies src into dst, equal lengths.
	Copy(src, dst []float32)

	// SigmoidForward computes out = 1/(1+exp(-in)).
	SigmoidForward(in, out []float32)

	// SigmoidBackward computes bottomDiff = topDiff * out * (1-out),
	// where out is the sigmoid forward output.
	SigmoidBackward(out, topDiff, bottomDiff []float32)

	// ReLUForward computes out = max(0, in).
	ReLUForward(in, out []float32)

	// ReLUBackward computes bottomDiff = topDiff where in > 0, else 0.
	ReLUBackward(in, topDiff, bottomDiff []float32)
}

var registry = make(map[string]func() (Backend, error))

// Register makes a backend constructor available under a name.
// Later registrations replace earlier ones.
func Register(name string, open func() (Backend, error)) {
	registry[name] = open
}

// Open opens the named backend.
func Open(name string) (Backend, error) {
	open, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("backend: unknown backend %q", name)
	}
	return open()
}

// Names returns the registered backend names.
func Names() (names []string) {
	for name := range registry {
		names = append(names, name)
	}
	return
}

// Default returns the backend every build carries.
func Default() Backend {
	b, err := Open("native")
	if err != nil {
		panic(err)
	}
	return b
}
