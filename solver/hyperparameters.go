package solver

import "github.com/rs/zerolog"

// HyperParameters steer stochastic gradient descent.
type HyperParameters struct {
	LearningRate float32 // global learning rate, scaled per param by lr_mult
	Momentum     float32 // fraction of the previous update kept
	WeightDecay  float32 // global weight decay, scaled per param by decay_mult

	Epochs    int // passes over the training set
	BatchSize int // samples per update
	Threads   int // concurrency for evaluation

	Shuffle bool  // whether to shuffle the set before each epoch
	Seed    int64 // shuffle seed, 0 means time-derived

	l zerolog.Logger
}

// SetLogger routes training progress to l.
func (h *HyperParameters) SetLogger(l zerolog.Logger) {
	h.l = l
}
