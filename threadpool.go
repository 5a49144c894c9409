// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task represents one unit of work enqueued on a ThreadPool bucket. Wait
// blocks until the task has run.
type Task struct {
	done chan struct{}
}

// Wait blocks until t has completed. A nil Task is already "done".
func (t *Task) Wait() {
	if t == nil {
		return
	}
	<-t.done
}

// ThreadPool owns bufferCount*threadsPerBuffer persistent worker
// goroutines partitioned into bufferCount buckets. A component's
// ComponentThread for buffer b enqueues work onto bucket b; the pool
// guarantees FIFO dispatch order within a bucket and a Wait() per task.
//
// Total concurrently in-flight tasks across all buckets are additionally
// bounded by a weighted semaphore, so that a burst of enqueues from many
// components in the same tick cannot grow unboundedly ahead of the worker
// goroutines actually able to run them.
type ThreadPool struct {
	bufferCount      int
	threadsPerBuffer int

	buckets []chan func()
	sem     *semaphore.Weighted

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewThreadPool creates a pool with bufferCount buckets, each served by
// threadsPerBuffer worker goroutines. A threadsPerBuffer of zero yields a
// pool that reports ThreadsPerBuffer() == 0, signaling callers to run work
// synchronously instead of enqueuing it.
func NewThreadPool(bufferCount, threadsPerBuffer int) *ThreadPool {
	if bufferCount < 1 {
		bufferCount = 1
	}
	p := &ThreadPool{
		bufferCount:      bufferCount,
		threadsPerBuffer: threadsPerBuffer,
	}
	if threadsPerBuffer <= 0 {
		return p
	}
	limit := int64(bufferCount*threadsPerBuffer) * 2
	if limit < 1 {
		limit = 1
	}
	p.sem = semaphore.NewWeighted(limit)
	p.buckets = make([]chan func(), bufferCount)
	for i := range p.buckets {
		p.buckets[i] = make(chan func(), bufferCount*threadsPerBuffer+1)
		for w := 0; w < threadsPerBuffer; w++ {
			p.wg.Add(1)
			go p.worker(p.buckets[i])
		}
	}
	return p
}

func (p *ThreadPool) worker(jobs chan func()) {
	defer p.wg.Done()
	for job := range jobs {
		job()
	}
}

// BufferCount returns the number of buckets the pool was configured with.
func (p *ThreadPool) BufferCount() int {
	return p.bufferCount
}

// ThreadsPerBuffer returns the number of workers serving each bucket. Zero
// means the pool dispatches nothing — callers should run work inline.
func (p *ThreadPool) ThreadsPerBuffer() int {
	return p.threadsPerBuffer
}

// Enqueue schedules fn to run on bucket, returning a Task the caller can
// Wait on. A pool with zero threads per buffer runs fn inline before
// Enqueue returns, whatever bucket is. Otherwise Enqueue panics if bucket
// is out of range — buckets correspond 1:1 to Circuit buffers, a
// configuration-time invariant, not a runtime one.
func (p *ThreadPool) Enqueue(bucket int, fn func()) *Task {
	t := &Task{done: make(chan struct{})}
	if p.sem == nil {
		fn()
		close(t.done)
		return t
	}
	ctx := context.Background()
	_ = p.sem.Acquire(ctx, 1)
	p.buckets[bucket] <- func() {
		defer p.sem.Release(1)
		fn()
		close(t.done)
	}
	return t
}

// Close stops all worker goroutines and waits for in-flight jobs to drain.
// The pool must not be used after Close returns.
func (p *ThreadPool) Close() {
	p.closeOnce.Do(func() {
		for _, b := range p.buckets {
			close(b)
		}
	})
	p.wg.Wait()
}
