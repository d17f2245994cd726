package layer

import "github.com/songww/juice/backend"
import "github.com/songww/juice/blob"

// SigmoidWorker computes the logistic function elementwise.
type SigmoidWorker struct{}

// Forward computes top = 1/(1+exp(-bottom)).
func (SigmoidWorker) Forward(be backend.Backend, bottom, params, top []*blob.Blob) {
	top[0].ReshapeLike(bottom[0])
	be.SigmoidForward(bottom[0].Data(), top[0].Data())
}

// Backward computes the bottom gradient from the top output and gradient.
func (SigmoidWorker) Backward(be backend.Backend, top, params []*blob.Blob, propagateDown []bool, bottom []*blob.Blob) {
	if len(propagateDown) > 0 && !propagateDown[0] {
		return
	}
	be.SigmoidBackward(top[0].Data(), top[0].Diff(), bottom[0].Diff())
}

// AutoTopBlobs reports that anonymous tops may be created.
func (SigmoidWorker) AutoTopBlobs() bool { return true }

// MinTopBlobs returns 1.
func (SigmoidWorker) MinTopBlobs() int { return 1 }

// ExactNumTopBlobs returns 1.
func (SigmoidWorker) ExactNumTopBlobs() int { return 1 }

// ExactNumBottomBlobs returns 1.
func (SigmoidWorker) ExactNumBottomBlobs() int { return 1 }
