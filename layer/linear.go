package layer

import "math"
import "math/rand"

import "github.com/pkg/errors"

import "github.com/songww/juice/backend"
import "github.com/songww/juice/blob"

// LinearWorker computes a fully connected transformation. Param 0 is the
// weight matrix shaped outputs x inputs, param 1 the bias vector.
type LinearWorker struct {
	outputs int
	inputs  int
}

// InitParams allocates the weight and bias blobs once the bottom shape is
// known. Weights start uniform in [-1/sqrt(inputs), 1/sqrt(inputs)], bias
// at zero.
func (w *LinearWorker) InitParams(cfg *Config, bottomShape []int) ([]*blob.Blob, error) {
	if cfg.Outputs <= 0 {
		return nil, errors.Errorf("layer %q: linear layer needs a positive outputs count", cfg.Name)
	}
	inputs := 1
	for _, s := range bottomShape {
		inputs *= s
	}
	w.outputs = cfg.Outputs
	w.inputs = inputs

	weight := blob.New(w.outputs, w.inputs)
	scale := float32(1 / math.Sqrt(float64(inputs)))
	data := weight.Data()
	for i := range data {
		data[i] = (rand.Float32()*2 - 1) * scale
	}
	bias := blob.New(w.outputs)
	return []*blob.Blob{weight, bias}, nil
}

// Forward computes top = weight * bottom + bias.
func (w *LinearWorker) Forward(be backend.Backend, bottom, params, top []*blob.Blob) {
	top[0].Reshape(w.outputs)
	weight, bias := params[0].Data(), params[1].Data()
	in, out := bottom[0].Data(), top[0].Data()
	for j := 0; j < w.outputs; j++ {
		out[j] = be.Dot(weight[j*w.inputs:(j+1)*w.inputs], in) + bias[j]
	}
}

// Backward accumulates the weight and bias gradients and, when asked,
// computes the bottom gradient.
func (w *LinearWorker) Backward(be backend.Backend, top, params []*blob.Blob, propagateDown []bool, bottom []*blob.Blob) {
	weight := params[0].Data()
	weightDiff := params[0].Diff()
	biasDiff := params[1].Diff()
	in := bottom[0].Data()
	topDiff := top[0].Diff()

	for j := 0; j < w.outputs; j++ {
		dy := topDiff[j]
		if dy == 0 {
			continue
		}
		be.Axpy(dy, in, weightDiff[j*w.inputs:(j+1)*w.inputs])
		biasDiff[j] += dy
	}

	if len(propagateDown) > 0 && !propagateDown[0] {
		return
	}
	bottomDiff := bottom[0].Diff()
	for i := range bottomDiff {
		bottomDiff[i] = 0
	}
	for j := 0; j < w.outputs; j++ {
		if topDiff[j] == 0 {
			continue
		}
		be.Axpy(topDiff[j], weight[j*w.inputs:(j+1)*w.inputs], bottomDiff)
	}
}

// TopShape returns the configured outputs count.
func (w *LinearWorker) TopShape(cfg *Config, bottomShape []int) []int {
	return []int{cfg.Outputs}
}

// AutoTopBlobs reports that anonymous tops may be created.
func (w *LinearWorker) AutoTopBlobs() bool { return true }

// MinTopBlobs returns 1.
func (w *LinearWorker) MinTopBlobs() int { return 1 }

// ExactNumTopBlobs returns 1.
func (w *LinearWorker) ExactNumTopBlobs() int { return 1 }

// ExactNumBottomBlobs returns 1.
func (w *LinearWorker) ExactNumBottomBlobs() int { return 1 }
