// Package parallel contains the bounded-concurrency loops used by dataset
// decoding and evaluation.
package parallel

import "sync"
import "sync/atomic"

// ForEach runs body for each integer from 0 to length with at most limit
// concurrent goroutines.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)
	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			body(i)
		}(i)
	}
	wg.Wait()
}

// ForEachErr is ForEach for bodies that can fail. The first error wins and
// the remaining iterations are skipped, not interrupted.
func ForEachErr(length, limit int, body func(i int) error) error {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return nil
	}

	var failed atomic.Bool
	var once sync.Once
	var first error

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)
	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if failed.Load() {
				return
			}
			if err := body(i); err != nil {
				once.Do(func() { first = err })
				failed.Store(true)
			}
		}(i)
	}
	wg.Wait()
	return first
}
