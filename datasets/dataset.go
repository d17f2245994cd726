// Package datasets implements the sample set type fed to the solver.
package datasets

import "math/rand"

// Sample is one input vector with its class label.
type Sample struct {
	Input []float32
	Label uint8
}

// Set is an ordered collection of samples.
type Set []Sample

// Shuffle permutes the set in place.
func (s Set) Shuffle(rng *rand.Rand) {
	if rng == nil {
		rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		return
	}
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// Split cuts the set into a head holding frac of the samples and the
// remaining tail.
func (s Set) Split(frac float64) (head, tail Set) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	cut := int(float64(len(s)) * frac)
	return s[:cut], s[cut:]
}

// Batches cuts the set into batches of at most size samples.
func (s Set) Batches(size int) (batches []Set) {
	if size <= 0 {
		size = 1
	}
	for len(s) > size {
		batches = append(batches, s[:size])
		s = s[size:]
	}
	if len(s) > 0 {
		batches = append(batches, s)
	}
	return
}
