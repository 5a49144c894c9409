// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

// ComponentThread is a one-component task trampoline parameterized by a
// buffer index and an optional pool. TickAsync enqueues component.DoTick
// to the pool; Wait blocks until that task has run. With no pool attached
// both are no-ops from the caller's perspective: DoTick runs synchronously,
// inline, before TickAsync returns.
type ComponentThread struct {
	component *Component
	buffer    int
	pool      *ThreadPool
	task      *Task
}

// NewComponentThread returns a ComponentThread that will dispatch
// component.DoTick(buffer) to pool, or run it inline if pool is nil or has
// no worker threads configured.
func NewComponentThread(component *Component, buffer int, pool *ThreadPool) *ComponentThread {
	return &ComponentThread{component: component, buffer: buffer, pool: pool}
}

// TickAsync runs (or schedules) one DoTick call for this component+buffer.
func (t *ComponentThread) TickAsync() {
	if t.pool == nil || t.pool.ThreadsPerBuffer() == 0 {
		t.component.DoTick(t.buffer)
		t.task = nil
		return
	}
	t.task = t.pool.Enqueue(t.buffer, func() {
		t.component.DoTick(t.buffer)
	})
}

// Wait blocks until the most recently dispatched DoTick call has
// completed. It returns immediately if nothing is in flight.
func (t *ComponentThread) Wait() {
	if t.task != nil {
		t.task.Wait()
	}
}
