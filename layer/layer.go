// Package layer implements the generic layer type and the workers that give
// each layer type its forward and backward computation.
package layer

import "github.com/pkg/errors"

import "github.com/songww/juice/backend"
import "github.com/songww/juice/blob"

// Worker is a layer implementation that can handle the forward and backward
// of a computation step. Params hold the worker's trainable blobs and may be
// empty.
type Worker interface {

	// Forward computes the layer output. Tops are reshaped to fit.
	Forward(be backend.Backend, bottom, params, top []*blob.Blob)

	// Backward computes the gradients for the bottom blobs whose
	// propagateDown entry is true, and for the params.
	Backward(be backend.Backend, top, params []*blob.Blob, propagateDown []bool, bottom []*blob.Blob)
}

// ParamInitializer is implemented by workers with trainable blobs. The
// network calls it once the bottom shapes are known.
type ParamInitializer interface {
	InitParams(cfg *Config, bottomShape []int) ([]*blob.Blob, error)
}

// TopBlobCounts is implemented by workers that constrain how many top and
// bottom blobs they accept. Zero means no requirement.
type TopBlobCounts interface {

	// AutoTopBlobs reports whether anonymous top blobs are created
	// automatically for the layer. If true, the network creates enough
	// anonymous tops to fulfill ExactNumTopBlobs or MinTopBlobs.
	AutoTopBlobs() bool

	// MinTopBlobs returns the minimum number of top blobs required.
	MinTopBlobs() int

	// ExactNumTopBlobs returns the exact number of top blobs required.
	ExactNumTopBlobs() int

	// ExactNumBottomBlobs returns the exact number of bottom blobs
	// required.
	ExactNumBottomBlobs() int
}

// TopShaper is implemented by workers whose top shape differs from the
// bottom shape. Without it the network assumes elementwise layers.
type TopShaper interface {
	TopShape(cfg *Config, bottomShape []int) []int
}

// ForceBackwarder is implemented by workers that veto force backward for
// some bottoms. When AllowForceBackward(i) is false the network ignores the
// force backward setting and backpropagates to bottom i only if it needs
// gradient information.
type ForceBackwarder interface {
	AllowForceBackward(bottomID int) bool
}

// Layer is the generic layer: a worker plus its configuration, loss
// weights and param blobs.
type Layer struct {
	// Config is the configuration of the layer.
	Config *Config

	// Worker is the layer implementation.
	Worker Worker

	// Blobs stores shared references to the trainable parameters.
	Blobs []*blob.Locked

	// loss indicates for each top blob the weight it carries in the
	// objective function.
	loss []float32

	// paramPropagateDown indicates whether to compute the diff of each
	// param blob.
	paramPropagateDown []bool
}

// FromConfig creates a layer from a layer config.
func FromConfig(cfg *Config) (*Layer, error) {
	worker, err := workerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.CheckPropagateDownLen() {
		return nil, errors.Errorf("layer %q: propagate_down has %d entries for %d bottoms",
			cfg.Name, len(cfg.PropagateDown), len(cfg.Bottoms))
	}
	return &Layer{Config: cfg, Worker: worker}, nil
}

func workerFromConfig(cfg *Config) (Worker, error) {
	switch cfg.Type {
	case Sigmoid:
		return SigmoidWorker{}, nil
	case ReLU:
		return ReLUWorker{}, nil
	case Linear:
		return &LinearWorker{}, nil
	}
	return nil, errors.Errorf("layer %q: unknown layer type %q", cfg.Name, cfg.Type)
}

// SetParamPropagateDown sets whether the layer should compute gradients
// w.r.t. the param blob at paramID.
func (l *Layer) SetParamPropagateDown(paramID int, value bool) {
	for len(l.paramPropagateDown) <= paramID {
		l.paramPropagateDown = append(l.paramPropagateDown, true)
	}
	l.paramPropagateDown[paramID] = value
}

// ParamPropagateDown reports whether gradients are computed for the param
// blob at paramID. Defaults to true.
func (l *Layer) ParamPropagateDown(paramID int) bool {
	if paramID >= len(l.paramPropagateDown) {
		return true
	}
	return l.paramPropagateDown[paramID]
}

// SetLoss sets the weight of top blob id in the objective function.
func (l *Layer) SetLoss(id int, weight float32) {
	for len(l.loss) <= id {
		l.loss = append(l.loss, 0)
	}
	l.loss[id] = weight
}

// Loss returns the loss weight of top blob id.
func (l *Layer) Loss(id int) (float32, bool) {
	if id < 0 || id >= len(l.loss) {
		return 0, false
	}
	return l.loss[id], true
}

// Forward computes the layer output from bottom into top and returns the
// layer's contribution to the objective: the dot of each weighted top's data
// with its diff.
func (l *Layer) Forward(be backend.Backend, bottom, top []*blob.Locked) (loss float32) {
	btm := make([]*blob.Blob, len(bottom))
	for i, b := range bottom {
		btm[i] = b.RLock()
	}
	tp := make([]*blob.Blob, len(top))
	for i, t := range top {
		tp[i] = t.Lock()
	}
	params := l.lockParams()

	l.Worker.Forward(be, btm, params, tp)

	for topID, topBlob := range tp {
		w, ok := l.Loss(topID)
		if !ok || w == 0 {
			continue
		}
		loss += w * be.Dot(topBlob.Data(), topBlob.Diff())
	}

	l.unlockParams()
	for _, t := range top {
		t.Unlock()
	}
	for _, b := range bottom {
		b.RUnlock()
	}
	return
}

// Backward computes the gradients of the bottom blobs whose propagateDown
// entry is true, and of the params the layer propagates to.
func (l *Layer) Backward(be backend.Backend, top []*blob.Locked, propagateDown []bool, bottom []*blob.Locked) {
	tp := make([]*blob.Blob, len(top))
	for i, t := range top {
		tp[i] = t.RLock()
	}
	btm := make([]*blob.Blob, len(bottom))
	for i, b := range bottom {
		btm[i] = b.Lock()
	}
	params := l.lockParams()

	l.Worker.Backward(be, tp, params, propagateDown, btm)

	l.unlockParams()
	for _, b := range bottom {
		b.Unlock()
	}
	for _, t := range top {
		t.RUnlock()
	}
}

func (l *Layer) lockParams() []*blob.Blob {
	params := make([]*blob.Blob, len(l.Blobs))
	for i, p := range l.Blobs {
		params[i] = p.Lock()
	}
	return params
}

func (l *Layer) unlockParams() {
	for _, p := range l.Blobs {
		p.Unlock()
	}
}
