// Package solver implements stochastic gradient descent over a sequential
// network.
package solver

import "context"
import "math/rand"
import "time"

import "github.com/pkg/errors"

import "github.com/songww/juice/blob"
import "github.com/songww/juice/datasets"
import "github.com/songww/juice/net/sequential"

// SGD trains a network by gradient descent with momentum. The objective is
// the mean squared error between the output blob and the one-hot label.
type SGD struct {
	net     *sequential.Network
	h       *HyperParameters
	history []*blob.Blob
}

// NewSGD creates a solver for the network.
func NewSGD(net *sequential.Network, h *HyperParameters) *SGD {
	return &SGD{net: net, h: h}
}

// Step runs one update over the batch: accumulate gradients sample by
// sample, then apply them once. Returns the mean sample loss.
func (s *SGD) Step(batch datasets.Set) (float32, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	s.net.ZeroParamDiffs()
	var lossSum float32
	for i := range batch {
		if err := s.net.SetInput(0, batch[i].Input); err != nil {
			return 0, err
		}
		s.net.Forward()
		lossSum += s.setOutputGradient(batch[i].Label)
		s.net.Backward()
	}
	s.update(len(batch))
	return lossSum / float32(len(batch)), nil
}

// setOutputGradient writes d(loss)/d(output) into the output blob diff for
// a one-hot target and returns the sample loss 0.5*sum((y-t)^2).
func (s *SGD) setOutputGradient(label uint8) (loss float32) {
	s.net.OutputBlob().With(func(b *blob.Blob) {
		data, diff := b.Data(), b.Diff()
		for j := range data {
			target := float32(0)
			if int(label) == j {
				target = 1
			}
			d := data[j] - target
			diff[j] = d
			loss += d * d / 2
		}
	})
	return
}

func (s *SGD) update(batchLen int) {
	params := s.net.Params()
	lrMult, decayMult := s.net.ParamMults()
	for len(s.history) < len(params) {
		s.history = append(s.history, nil)
	}
	be := s.net.Backend()
	inv := 1 / float32(batchLen)
	for i, p := range params {
		localLr := s.h.LearningRate * lrMult[i]
		if localLr == 0 {
			continue
		}
		localDecay := s.h.WeightDecay * decayMult[i]
		p.With(func(b *blob.Blob) {
			if s.history[i] == nil {
				s.history[i] = blob.New(b.Shape()...)
			}
			vel := s.history[i].Data()
			be.Scal(s.h.Momentum, vel)
			be.Axpy(-localLr*inv, b.Diff(), vel)
			if localDecay != 0 {
				be.Axpy(-localLr*localDecay, b.Data(), vel)
			}
			be.Axpy(1, vel, b.Data())
		})
	}
}

// Train runs the configured number of epochs over the set, logging loss
// and duration per epoch. Cancelling the context stops between batches.
func (s *SGD) Train(ctx context.Context, set datasets.Set) error {
	if len(set) == 0 {
		return errors.New("solver: empty training set")
	}
	batchSize := s.h.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	seed := s.h.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	for epoch := 0; epoch < s.h.Epochs; epoch++ {
		start := time.Now()
		if s.h.Shuffle {
			set.Shuffle(rng)
		}
		var lossSum float32
		var batches int
		for _, batch := range set.Batches(batchSize) {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "solver: training interrupted")
			}
			loss, err := s.Step(batch)
			if err != nil {
				return err
			}
			lossSum += loss
			batches++
		}
		s.h.l.Info().
			Int("epoch", epoch+1).
			Float32("loss", lossSum/float32(batches)).
			Dur("took", time.Since(start)).
			Msg("epoch done")
	}
	return nil
}
