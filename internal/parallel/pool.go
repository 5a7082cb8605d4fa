// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package parallel runs index-space kernels across a fixed set of goroutines.
//
// The software backend uses it to emulate a GPU: a draw or dispatch becomes
// a range of invocations split into chunks that workers execute
// concurrently, and the call returns only when every chunk has finished.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// chunksPerWorker over-splits ranges so uneven chunks still balance.
const chunksPerWorker = 4

// minChunk is the smallest range worth handing to another goroutine.
const minChunk = 64

// job is one chunk of a For call.
type job struct {
	fn     func(lo, hi int)
	lo, hi int
	wg     *sync.WaitGroup
}

// Pool is a pool of goroutines executing index ranges.
//
// Thread safety: Pool is safe for concurrent use. Close must not race
// with For.
type Pool struct {
	workers int
	jobs    chan job
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		workers: workers,
		jobs:    make(chan job, workers*chunksPerWorker),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.fn(j.lo, j.hi)
		j.wg.Done()
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// For calls fn over disjoint subranges covering [0, n) and waits for all of
// them. Small ranges, single-worker pools and closed pools run fn inline.
func (p *Pool) For(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if p.workers == 1 || n <= minChunk || !p.running.Load() {
		fn(0, n)
		return
	}

	chunk := max(n/(p.workers*chunksPerWorker), minChunk)

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		p.jobs <- job{fn: fn, lo: lo, hi: hi, wg: &wg}
	}
	wg.Wait()
}

// Close stops the workers. For calls after Close run inline.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}
