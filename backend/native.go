package backend

import "math"

import "github.com/klauspost/cpuid/v2"

// Native is the pure-Go CPU backend.
type Native struct{}

func init() {
	Register("native", func() (Backend, error) {
		return Native{}, nil
	})
	// Wide superscalar cores profit from the four-accumulator kernels,
	// older ones from the plain loops.
	if cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3) || cpuid.CPU.Supports(cpuid.ASIMD) {
		dotKernel = dotUnrolled
		axpyKernel = axpyUnrolled
	} else {
		dotKernel = dotGeneric
		axpyKernel = axpyGeneric
	}
}

var dotKernel func(x, y []float32) float32
var axpyKernel func(alpha float32, x, y []float32)

// Name returns "native".
func (Native) Name() string {
	return "native"
}

// Dot returns the dot product over the shorter of x and y.
func (Native) Dot(x, y []float32) float32 {
	if len(y) < len(x) {
		x = x[:len(y)]
	} else {
		y = y[:len(x)]
	}
	return dotKernel(x, y)
}

// Axpy computes y += alpha * x.
func (Native) Axpy(alpha float32, x, y []float32) {
	if len(x) != len(y) {
		panic("backend: axpy length mismatch")
	}
	if alpha == 0 {
		return
	}
	axpyKernel(alpha, x, y)
}

// Scal computes x *= alpha.
func (Native) Scal(alpha float32, x []float32) {
	for i := range x {
		x[i] *= alpha
	}
}

// Copy copies src into dst.
func (Native) Copy(src, dst []float32) {
	if len(src) != len(dst) {
		panic("backend: copy length mismatch")
	}
	copy(dst, src)
}

// SigmoidForward computes out = 1/(1+exp(-in)).
func (Native) SigmoidForward(in, out []float32) {
	for i, v := range in {
		out[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
}

// SigmoidBackward computes bottomDiff = topDiff * out * (1-out).
func (Native) SigmoidBackward(out, topDiff, bottomDiff []float32) {
	for i, y := range out {
		bottomDiff[i] = topDiff[i] * y * (1 - y)
	}
}

// ReLUForward computes out = max(0, in).
func (Native) ReLUForward(in, out []float32) {
	for i, v := range in {
		if v > 0 {
			out[i] = v
		} else {
			out[i] = 0
		}
	}
}

// ReLUBackward passes topDiff through where the forward input was positive.
func (Native) ReLUBackward(in, topDiff, bottomDiff []float32) {
	for i, v := range in {
		if v > 0 {
			bottomDiff[i] = topDiff[i]
		} else {
			bottomDiff[i] = 0
		}
	}
}

func dotGeneric(x, y []float32) (o float32) {
	for i := range x {
		o += x[i] * y[i]
	}
	return
}

// dotUnrolled keeps four independent accumulators so the adds can overlap.
func dotUnrolled(x, y []float32) float32 {
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(x); i += 4 {
		s0 += x[i] * y[i]
		s1 += x[i+1] * y[i+1]
		s2 += x[i+2] * y[i+2]
		s3 += x[i+3] * y[i+3]
	}
	for ; i < len(x); i++ {
		s0 += x[i] * y[i]
	}
	return s0 + s1 + s2 + s3
}

func axpyGeneric(alpha float32, x, y []float32) {
	for i := range x {
		y[i] += alpha * x[i]
	}
}

func axpyUnrolled(alpha float32, x, y []float32) {
	i := 0
	for ; i+4 <= len(x); i += 4 {
		y[i] += alpha * x[i]
		y[i+1] += alpha * x[i+1]
		y[i+2] += alpha * x[i+2]
		y[i+3] += alpha * x[i+3]
	}
	for ; i < len(x); i++ {
		y[i] += alpha * x[i]
	}
}
