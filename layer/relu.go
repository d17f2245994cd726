package layer

import "github.com/songww/juice/backend"
import "github.com/songww/juice/blob"

// ReLUWorker computes the rectifier elementwise.
type ReLUWorker struct{}

// Forward computes top = max(0, bottom).
func (ReLUWorker) Forward(be backend.Backend, bottom, params, top []*blob.Blob) {
	top[0].ReshapeLike(bottom[0])
	be.ReLUForward(bottom[0].Data(), top[0].Data())
}

// Backward passes the top gradient through where the bottom was positive.
func (ReLUWorker) Backward(be backend.Backend, top, params []*blob.Blob, propagateDown []bool, bottom []*blob.Blob) {
	if len(propagateDown) > 0 && !propagateDown[0] {
		return
	}
	be.ReLUBackward(bottom[0].Data(), top[0].Diff(), bottom[0].Diff())
}

// AutoTopBlobs reports that anonymous tops may be created.
func (ReLUWorker) AutoTopBlobs() bool { return true }

// MinTopBlobs returns 1.
func (ReLUWorker) MinTopBlobs() int { return 1 }

// ExactNumTopBlobs returns 1.
func (ReLUWorker) ExactNumTopBlobs() int { return 1 }

// ExactNumBottomBlobs returns 1.
func (ReLUWorker) ExactNumBottomBlobs() int { return 1 }
