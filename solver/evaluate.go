package solver

import "sync/atomic"

import "github.com/songww/juice/datasets"
import "github.com/songww/juice/net/sequential"
import "github.com/songww/juice/parallel"

// Evaluate returns the fraction of samples whose argmax output matches the
// label. Threads above one run shared-weight copies of the network
// concurrently.
func Evaluate(net *sequential.Network, set datasets.Set, threads int) (float64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	if threads <= 0 {
		threads = 1
	}
	if threads > len(set) {
		threads = len(set)
	}

	nets := make([]*sequential.Network, threads)
	nets[0] = net
	for i := 1; i < threads; i++ {
		nn, err := net.NewSharing()
		if err != nil {
			return 0, err
		}
		nets[i] = nn
	}

	per := (len(set) + threads - 1) / threads
	var correct atomic.Int64
	err := parallel.ForEachErr(threads, threads, func(t int) error {
		lo := t * per
		hi := lo + per
		if hi > len(set) {
			hi = len(set)
		}
		for i := lo; i < hi; i++ {
			if err := nets[t].SetInput(0, set[i].Input); err != nil {
				return err
			}
			nets[t].Forward()
			if argmax(nets[t].Output()) == int(set[i].Label) {
				correct.Add(1)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return float64(correct.Load()) / float64(len(set)), nil
}

func argmax(values []float32) (best int) {
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return
}
