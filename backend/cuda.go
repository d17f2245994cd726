//go:build cuda

package backend

import "unsafe"

import "github.com/pkg/errors"
import "gorgonia.org/cu"

const cudaBlockDim = 256

func init() {
	Register("cuda", openCUDA)
}

// CUDA is the GPU backend. Elementwise kernels run on the device from the
// embedded PTX module; the dot reduction stays on the host.
type CUDA struct {
	ctx    cu.CUContext
	mod    cu.Module
	stream cu.Stream

	axpyFn    cu.Function
	scalFn    cu.Function
	sigFwdFn  cu.Function
	sigBwdFn  cu.Function
	reluFwdFn cu.Function
	reluBwdFn cu.Function

	bufA devBuf
	bufB devBuf
	bufC devBuf
}

type devBuf struct {
	ptr  cu.DevicePtr
	size int64
}

func (b *devBuf) ensure(size int64) error {
	if b.size >= size {
		return nil
	}
	if b.size > 0 {
		cu.MemFree(b.ptr)
		b.size = 0
	}
	ptr, err := cu.MemAlloc(size)
	if err != nil {
		return errors.Wrap(err, "cuda: device alloc")
	}
	b.ptr = ptr
	b.size = size
	return nil
}

func openCUDA() (Backend, error) {
	n, err := cu.NumDevices()
	if err != nil {
		return nil, errors.Wrap(err, "cuda: counting devices")
	}
	if n == 0 {
		return nil, errors.New("cuda: no device present")
	}
	device, err := cu.GetDevice(0)
	if err != nil {
		return nil, errors.Wrap(err, "cuda: get device 0")
	}
	ctx, err := device.MakeContext(cu.SchedAuto)
	if err != nil {
		return nil, errors.Wrap(err, "cuda: make context")
	}
	if err := ctx.Lock(); err != nil {
		return nil, errors.Wrap(err, "cuda: lock context")
	}
	mod, err := cu.LoadData(ptxKernels)
	if err != nil {
		return nil, errors.Wrap(err, "cuda: load kernel module")
	}
	c := &CUDA{ctx: ctx, mod: mod}
	for _, k := range []struct {
		name string
		fn   *cu.Function
	}{
		{"axpy", &c.axpyFn},
		{"scal", &c.scalFn},
		{"sigmoid_fwd", &c.sigFwdFn},
		{"sigmoid_bwd", &c.sigBwdFn},
		{"relu_fwd", &c.reluFwdFn},
		{"relu_bwd", &c.reluBwdFn},
	} {
		fn, err := mod.Function(k.name)
		if err != nil {
			return nil, errors.Wrapf(err, "cuda: kernel %s", k.name)
		}
		*k.fn = fn
	}
	stream, err := cu.MakeStream(cu.DefaultStream)
	if err != nil {
		return nil, errors.Wrap(err, "cuda: make stream")
	}
	c.stream = stream
	return c, nil
}

// Name returns "cuda".
func (c *CUDA) Name() string {
	return "cuda"
}

// Close releases the device buffers held by the backend.
func (c *CUDA) Close() {
	for _, b := range []*devBuf{&c.bufA, &c.bufB, &c.bufC} {
		if b.size > 0 {
			cu.MemFree(b.ptr)
			b.size = 0
		}
	}
}

func (c *CUDA) launch1in1out(fn cu.Function, in, out []float32, alpha float32) {
	n := len(in)
	if n == 0 {
		return
	}
	if err := cu.SetCurrentContext(c.ctx); err != nil {
		panic(err)
	}
	size := int64(n) * int64(unsafe.Sizeof(float32(0)))
	if err := c.bufA.ensure(size); err != nil {
		panic(err)
	}
	if err := c.bufB.ensure(size); err != nil {
		panic(err)
	}
	if err := cu.MemcpyHtoD(c.bufA.ptr, unsafe.Pointer(&in[0]), size); err != nil {
		panic(err)
	}
	var count = uint32(n)
	args := []unsafe.Pointer{
		unsafe.Pointer(&c.bufA.ptr),
		unsafe.Pointer(&c.bufB.ptr),
		unsafe.Pointer(&alpha),
		unsafe.Pointer(&count),
	}
	grid := (n + cudaBlockDim - 1) / cudaBlockDim
	if err := fn.LaunchAndSync(grid, 1, 1, cudaBlockDim, 1, 1, 0, c.stream, args); err != nil {
		panic(err)
	}
	if err := cu.MemcpyDtoH(unsafe.Pointer(&out[0]), c.bufB.ptr, size); err != nil {
		panic(err)
	}
}

func (c *CUDA) launch2in1out(fn cu.Function, in1, in2, out []float32) {
	n := len(out)
	if n == 0 {
		return
	}
	if err := cu.SetCurrentContext(c.ctx); err != nil {
		panic(err)
	}
	size := int64(n) * int64(unsafe.Sizeof(float32(0)))
	for _, b := range []*devBuf{&c.bufA, &c.bufB, &c.bufC} {
		if err := b.ensure(size); err != nil {
			panic(err)
		}
	}
	if err := cu.MemcpyHtoD(c.bufA.ptr, unsafe.Pointer(&in1[0]), size); err != nil {
		panic(err)
	}
	if err := cu.MemcpyHtoD(c.bufB.ptr, unsafe.Pointer(&in2[0]), size); err != nil {
		panic(err)
	}
	var count = uint32(n)
	args := []unsafe.Pointer{
		unsafe.Pointer(&c.bufA.ptr),
		unsafe.Pointer(&c.bufB.ptr),
		unsafe.Pointer(&c.bufC.ptr),
		unsafe.Pointer(&count),
	}
	grid := (n + cudaBlockDim - 1) / cudaBlockDim
	if err := fn.LaunchAndSync(grid, 1, 1, cudaBlockDim, 1, 1, 0, c.stream, args); err != nil {
		panic(err)
	}
	if err := cu.MemcpyDtoH(unsafe.Pointer(&out[0]), c.bufC.ptr, size); err != nil {
		panic(err)
	}
}

// Dot returns the dot product over the shorter of x and y. The reduction
// runs on the host; the transfer would cost more than the sum.
func (c *CUDA) Dot(x, y []float32) float32 {
	return Native{}.Dot(x, y)
}

// Axpy computes y += alpha * x on the device.
func (c *CUDA) Axpy(alpha float32, x, y []float32) {
	if len(x) != len(y) {
		panic("backend: axpy length mismatch")
	}
	n := len(y)
	if n == 0 || alpha == 0 {
		return
	}
	if err := cu.SetCurrentContext(c.ctx); err != nil {
		panic(err)
	}
	size := int64(n) * int64(unsafe.Sizeof(float32(0)))
	if err := c.bufA.ensure(size); err != nil {
		panic(err)
	}
	if err := c.bufB.ensure(size); err != nil {
		panic(err)
	}
	if err := cu.MemcpyHtoD(c.bufA.ptr, unsafe.Pointer(&x[0]), size); err != nil {
		panic(err)
	}
	if err := cu.MemcpyHtoD(c.bufB.ptr, unsafe.Pointer(&y[0]), size); err != nil {
		panic(err)
	}
	var count = uint32(n)
	args := []unsafe.Pointer{
		unsafe.Pointer(&c.bufA.ptr),
		unsafe.Pointer(&c.bufB.ptr),
		unsafe.Pointer(&alpha),
		unsafe.Pointer(&count),
	}
	grid := (n + cudaBlockDim - 1) / cudaBlockDim
	if err := c.axpyFn.LaunchAndSync(grid, 1, 1, cudaBlockDim, 1, 1, 0, c.stream, args); err != nil {
		panic(err)
	}
	if err := cu.MemcpyDtoH(unsafe.Pointer(&y[0]), c.bufB.ptr, size); err != nil {
		panic(err)
	}
}

// Scal computes x *= alpha on the device.
func (c *CUDA) Scal(alpha float32, x []float32) {
	c.launch1in1out(c.scalFn, x, x, alpha)
}

// Copy copies src into dst.
func (c *CUDA) Copy(src, dst []float32) {
	Native{}.Copy(src, dst)
}

// SigmoidForward computes out = 1/(1+exp(-in)) on the device.
func (c *CUDA) SigmoidForward(in, out []float32) {
	c.launch1in1out(c.sigFwdFn, in, out, 0)
}

// SigmoidBackward computes bottomDiff = topDiff * out * (1-out) on the device.
func (c *CUDA) SigmoidBackward(out, topDiff, bottomDiff []float32) {
	c.launch2in1out(c.sigBwdFn, out, topDiff, bottomDiff)
}

// ReLUForward computes out = max(0, in) on the device.
func (c *CUDA) ReLUForward(in, out []float32) {
	c.launch1in1out(c.reluFwdFn, in, out, 0)
}

// ReLUBackward passes topDiff through where the forward input was positive.
func (c *CUDA) ReLUBackward(in, topDiff, bottomDiff []float32) {
	c.launch2in1out(c.reluBwdFn, in, topDiff, bottomDiff)
}
