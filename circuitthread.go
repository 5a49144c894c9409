// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// CircuitThread is a worker group driving a shared component list for one
// buffer. All workers in a group operate on the *same* buffer index — that
// is deliberate: an InOrder component's release-flag ring assumes every
// worker observes the same buffer sequence, so two workers in one group
// ticking different buffers could deadlock it (1,2,3 vs. 2,3,1,2,3).
// threads_per_buffer > 1 is only useful because it lets several workers
// stride the component list within one buffer, each handling components
// whose state is independent of the others.
//
// Ported from the C++ engine's internal CircuitThread rendezvous protocol
// (sync/resume barrier via condition variables), collapsed onto a single
// group-wide mutex and two sync.Cond broadcasts since every worker in a
// group shares the same buffer and mode.
type CircuitThread struct {
	mu         sync.Mutex
	syncCond   *sync.Cond
	resumeCond *sync.Cond

	components func() []*Component
	bufferNo   int
	mode       TickMode

	gotSync   []bool
	gotResume []bool
	stop      []bool
	stopped   []bool

	eg *errgroup.Group
}

// NewCircuitThread returns an unstarted CircuitThread.
func NewCircuitThread() *CircuitThread {
	ct := &CircuitThread{}
	ct.syncCond = sync.NewCond(&ct.mu)
	ct.resumeCond = sync.NewCond(&ct.mu)
	return ct
}

// Start spawns threadsPerBuffer workers, each of which will repeatedly tick
// every component in components() (in list order) on bufferNo, then reset
// them, pausing at a sync/resume barrier between every phase. It is a
// no-op if the group already has live workers.
func (ct *CircuitThread) Start(components func() []*Component, bufferNo, threadsPerBuffer int) {
	ct.mu.Lock()
	for _, stopped := range ct.stopped {
		if !stopped {
			ct.mu.Unlock()
			return
		}
	}
	if threadsPerBuffer < 1 {
		threadsPerBuffer = 1
	}
	ct.components = components
	ct.bufferNo = bufferNo
	ct.gotSync = make([]bool, threadsPerBuffer)
	ct.gotResume = make([]bool, threadsPerBuffer)
	ct.stop = make([]bool, threadsPerBuffer)
	ct.stopped = make([]bool, threadsPerBuffer)
	ct.mu.Unlock()

	ct.eg = &errgroup.Group{}
	for i := 0; i < threadsPerBuffer; i++ {
		i := i
		ct.eg.Go(func() error {
			ct.run(i)
			return nil
		})
	}
}

func (ct *CircuitThread) run(i int) {
	ct.rendezvous(i)

	for {
		ct.mu.Lock()
		stop := ct.stop[i]
		mode := ct.mode
		components := ct.components
		bufferNo := ct.bufferNo
		ct.mu.Unlock()
		if stop {
			break
		}

		for _, c := range components() {
			c.Tick(mode, bufferNo)
		}

		ct.rendezvous(i)

		for _, c := range components() {
			c.Reset(bufferNo)
		}
	}

	ct.mu.Lock()
	ct.stopped[i] = true
	ct.mu.Unlock()
}

// rendezvous signals that worker i has reached its sync point, then blocks
// until SyncAndResume releases it.
func (ct *CircuitThread) rendezvous(i int) {
	ct.mu.Lock()
	ct.gotSync[i] = true
	ct.syncCond.Broadcast()
	for !ct.gotResume[i] {
		ct.resumeCond.Wait()
	}
	ct.gotResume[i] = false
	ct.mu.Unlock()
}

// Sync blocks until every worker in the group has reached its sync point.
func (ct *CircuitThread) Sync() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	for i := range ct.gotSync {
		if ct.stopped[i] {
			return
		}
		for !ct.gotSync[i] {
			ct.syncCond.Wait()
		}
	}
}

// SyncAndResume blocks until every worker has reached its sync point, sets
// the tick mode for the next phase, then releases every worker.
func (ct *CircuitThread) SyncAndResume(mode TickMode) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	for i := range ct.gotSync {
		if ct.stopped[i] {
			return
		}
		for !ct.gotSync[i] {
			ct.syncCond.Wait()
		}
		ct.gotSync[i] = false
	}
	ct.mode = mode
	for i := range ct.gotResume {
		ct.gotResume[i] = true
	}
	ct.resumeCond.Broadcast()
}

// Stop synchronizes with the group, marks every worker to stop, wakes them
// one final time so they observe the flag, and joins them.
func (ct *CircuitThread) Stop() {
	ct.mu.Lock()
	anyLive := false
	for _, stopped := range ct.stopped {
		if !stopped {
			anyLive = true
			break
		}
	}
	ct.mu.Unlock()
	if !anyLive {
		return
	}

	ct.Sync()
	ct.mu.Lock()
	mode := ct.mode
	for i := range ct.stop {
		ct.stop[i] = true
	}
	ct.mu.Unlock()
	ct.SyncAndResume(mode)
	if ct.eg != nil {
		_ = ct.eg.Wait()
	}
}
