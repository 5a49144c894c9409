// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import (
	"sync"

	"github.com/google/uuid"
)

// Processor is the behavior a user-authored component implements. It is
// the only method the public type exposes; every other piece of state
// (wiring, tick bookkeeping, buffers) lives in the engine-internal
// Component that wraps a Processor. Composition carries the "hidden impl"
// split that the original engine achieves with inheritance.
type Processor interface {
	// Process consumes inputs and produces outputs for one tick. inputs
	// and outputs are only valid for the duration of the call.
	Process(inputs *SignalBus, outputs *SignalBus)
}

// ComponentID identifies a Component independent of its position in a
// Circuit's component list, so RemoveComponent can be reasoned about by
// identity rather than by slice index.
type ComponentID uuid.UUID

// String returns the canonical textual form of id.
func (id ComponentID) String() string {
	return uuid.UUID(id).String()
}

// NilComponentID is the zero ComponentID, used for components that have
// never been registered with a Circuit.
var NilComponentID ComponentID

// componentBuf holds the per-buffer replicated state that spec.md §3
// requires: an input bus, an output bus, tick status, a ref table for fan
// out, the feedback-wire set computed during this tick's pull phase, and
// the ComponentThread used to dispatch Parallel-mode work.
type componentBuf struct {
	inputBus  SignalBus
	outputBus SignalBus
	refTable  RefTable

	statusMu sync.Mutex
	status   tickStatus

	feedbackMu    sync.Mutex
	feedbackWires map[int]bool

	thread *ComponentThread
}

// Component is the engine-side wrapper around a user Processor. It owns
// the input wires, the per-buffer buses and ref tables, the tick state
// machine, and the release-flag ring used to serialize InOrder processing
// across buffers.
type Component struct {
	id           ComponentID
	processor    Processor
	processOrder ProcessOrder

	inputNames  []string
	outputNames []string

	// wiring: mutated only while the owning circuit is quiescent.
	wiringMu   sync.Mutex
	inputWires []Wire

	// per-buffer state; resized by SetBufferCount, always quiescent.
	bufMu        sync.Mutex
	buffers      []*componentBuf
	releaseFlags []*releaseFlag
	pool         *ThreadPool
}

// NewComponent wraps p into an engine Component with the given processing
// order. The component starts with zero inputs/outputs and a single,
// unbuffered, pool-less buffer; call SetInputCount/SetOutputCount before
// wiring it into a circuit.
func NewComponent(p Processor, order ProcessOrder) *Component {
	c := &Component{
		processor:    p,
		processOrder: order,
	}
	c.SetBufferCount(1)
	return c
}

// ID returns c's ComponentID, or NilComponentID if c has not been
// registered with a Circuit.
func (c *Component) ID() ComponentID {
	return c.id
}

// ProcessOrder returns c's declared processing order.
func (c *Component) ProcessOrder() ProcessOrder {
	return c.processOrder
}

// SetInputCount declares the number of inputs c accepts, optionally naming
// them. It must only be called while the owning circuit (if any) is
// quiescent.
func (c *Component) SetInputCount(n int, names ...string) {
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	wires := make([]Wire, n)
	copy(wires, c.inputWires)
	c.inputWires = wires
	c.inputNames = padNames(names, n)
	c.bufMu.Lock()
	for _, b := range c.buffers {
		b.inputBus.SetSignalCount(n)
	}
	c.bufMu.Unlock()
}

// SetOutputCount declares the number of outputs c produces, optionally
// naming them. It must only be called while the owning circuit (if any)
// is quiescent.
func (c *Component) SetOutputCount(n int, names ...string) {
	c.outputNames = padNames(names, n)
	c.bufMu.Lock()
	for _, b := range c.buffers {
		b.outputBus.SetSignalCount(n)
		b.refTable.SetOutputCount(n)
	}
	c.bufMu.Unlock()
}

func padNames(names []string, n int) []string {
	out := make([]string, n)
	copy(out, names)
	return out
}

// InputCount returns the number of declared inputs.
func (c *Component) InputCount() int {
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	return len(c.inputWires)
}

// OutputCount returns the number of declared outputs.
func (c *Component) OutputCount() int {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	if len(c.buffers) == 0 {
		return 0
	}
	return c.buffers[0].outputBus.SignalCount()
}

// InputIndex returns the index of the named input and true, or (0, false)
// if no input has that name.
func (c *Component) InputIndex(name string) (int, bool) {
	for i, n := range c.inputNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// OutputIndex returns the index of the named output and true, or (0,
// false) if no output has that name.
func (c *Component) OutputIndex(name string) (int, bool) {
	for i, n := range c.outputNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// ConnectInput validates arities, disconnects any prior wire into dstInput,
// records the new wire, and increments src's fan-out counter for
// srcOutput across all of src's buffers. It returns false on an arity
// mismatch, leaving c unmodified.
func (c *Component) ConnectInput(src *Component, srcOutput, dstInput int) bool {
	if src == nil {
		return false
	}
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	if dstInput < 0 || dstInput >= len(c.inputWires) {
		return false
	}
	if srcOutput < 0 || srcOutput >= src.OutputCount() {
		return false
	}
	c.disconnectInputLocked(dstInput)
	c.inputWires[dstInput] = Wire{Source: src, SourceOutput: srcOutput, DestInput: dstInput}
	src.incRefTotal(srcOutput)
	return true
}

// DisconnectInput removes any wire feeding dstInput.
func (c *Component) DisconnectInput(dstInput int) {
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	c.disconnectInputLocked(dstInput)
}

func (c *Component) disconnectInputLocked(dstInput int) {
	if dstInput < 0 || dstInput >= len(c.inputWires) {
		return
	}
	w := c.inputWires[dstInput]
	if !w.connected() {
		return
	}
	w.Source.decRefTotal(w.SourceOutput)
	c.inputWires[dstInput] = Wire{}
}

// DisconnectInputSrc removes every wire sourced from src.
func (c *Component) DisconnectInputSrc(src *Component) {
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	for i, w := range c.inputWires {
		if w.connected() && w.Source == src {
			c.disconnectInputLocked(i)
		}
	}
}

// DisconnectAllInputs removes every input wire.
func (c *Component) DisconnectAllInputs() {
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	for i := range c.inputWires {
		c.disconnectInputLocked(i)
	}
}

func (c *Component) incRefTotal(output int) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	for _, b := range c.buffers {
		b.refTable.IncTotal(output)
	}
}

func (c *Component) decRefTotal(output int) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	for _, b := range c.buffers {
		b.refTable.DecTotal(output)
	}
}

// SetBufferCount resizes c to n independent buffers, each with its own
// input/output buses, tick status, ref table, feedback set and
// ComponentThread, and rebuilds the InOrder release-flag ring. It must
// only be called while the owning circuit is quiescent.
func (c *Component) SetBufferCount(n int) {
	if n < 1 {
		n = 1
	}
	c.wiringMu.Lock()
	fallbackInputN := len(c.inputWires)
	c.wiringMu.Unlock()

	c.bufMu.Lock()
	defer c.bufMu.Unlock()

	inputN, outputN := fallbackInputN, 0
	if len(c.buffers) > 0 {
		inputN = c.buffers[0].inputBus.SignalCount()
		outputN = c.buffers[0].outputBus.SignalCount()
	}

	buffers := make([]*componentBuf, n)
	for i := range buffers {
		b := &componentBuf{}
		b.inputBus.SetSignalCount(inputN)
		b.outputBus.SetSignalCount(outputN)
		b.refTable.SetOutputCount(outputN)
		b.thread = NewComponentThread(c, i, c.pool)
		buffers[i] = b
	}
	c.buffers = buffers

	flags := make([]*releaseFlag, n)
	for i := range flags {
		flags[i] = newReleaseFlag(i == 0)
	}
	c.releaseFlags = flags
}

// SetThreadPool attaches pool to c for Parallel-mode dispatch. A nil pool,
// or a pool configured with zero threads per buffer, means "run
// synchronously" — DoTick executes inline on the calling goroutine instead
// of being handed to a worker.
func (c *Component) SetThreadPool(pool *ThreadPool) {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	c.pool = pool
	for i, b := range c.buffers {
		b.thread = NewComponentThread(c, i, pool)
	}
}

func (c *Component) bufferCount() int {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return len(c.buffers)
}

func (c *Component) buf(buffer int) *componentBuf {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	if buffer < 0 || buffer >= len(c.buffers) {
		return nil
	}
	return c.buffers[buffer]
}

// Tick drives one tick of c on the given buffer. It returns false iff c
// was already in the TickStarted state on buffer, meaning the caller
// arrived via a feedback edge; it returns true otherwise, including when
// c is already Ticking or has already completed this tick's pull phase.
func (c *Component) Tick(mode TickMode, buffer int) bool {
	b := c.buf(buffer)
	if b == nil {
		return true
	}

	b.statusMu.Lock()
	switch b.status {
	case statusTickStarted:
		b.statusMu.Unlock()
		return false
	case statusTicking:
		b.statusMu.Unlock()
		return true
	}
	b.status = statusTickStarted
	b.statusMu.Unlock()

	b.inputBus.ClearAll()

	pool := c.currentPool()
	if mode == Parallel && pool != nil && pool.ThreadsPerBuffer() > 0 {
		c.tickParallel(b, buffer)
	} else {
		c.tickSeries(b, buffer)
	}
	return true
}

func (c *Component) currentPool() *ThreadPool {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.pool
}

func (c *Component) setStatus(b *componentBuf, s tickStatus) {
	b.statusMu.Lock()
	b.status = s
	b.statusMu.Unlock()
}

func (c *Component) wires() []Wire {
	c.wiringMu.Lock()
	defer c.wiringMu.Unlock()
	out := make([]Wire, len(c.inputWires))
	copy(out, c.inputWires)
	return out
}

// tickSeries implements the Series pull phase: recursively tick each
// upstream source (its return value is discarded, the recursion already
// suffices to break cycles via the TickStarted guard above), then pull its
// output.
func (c *Component) tickSeries(b *componentBuf, buffer int) {
	for i, w := range c.wires() {
		if !w.connected() {
			continue
		}
		w.Source.Tick(Series, buffer)
		w.Source.getOutput(buffer, w.SourceOutput, &b.inputBus, i)
	}
	c.setStatus(b, statusTicking)
	c.runProcess(b, buffer)
}

// tickParallel implements the Parallel pull phase: kick off every upstream
// source's tick synchronously (recording which wires bounced off a
// feedback edge), then hand this component's own DoTick to the thread
// pool.
func (c *Component) tickParallel(b *componentBuf, buffer int) {
	wires := c.wires()
	feedback := make(map[int]bool)
	for i, w := range wires {
		if !w.connected() {
			continue
		}
		if !w.Source.Tick(Parallel, buffer) {
			feedback[i] = true
		}
	}
	b.feedbackMu.Lock()
	b.feedbackWires = feedback
	b.feedbackMu.Unlock()

	c.setStatus(b, statusTicking)
	b.thread.TickAsync()
}

// DoTick is invoked either inline (no pool) or from a pool worker. For
// each non-feedback wire it waits for the source's ComponentThread to
// finish before pulling the source's output; feedback wires are pulled
// immediately, observing whatever the source's output cell held before
// this tick (its previous tick's value).
func (c *Component) DoTick(buffer int) {
	b := c.buf(buffer)
	if b == nil {
		return
	}
	wires := c.wires()
	b.feedbackMu.Lock()
	feedback := b.feedbackWires
	b.feedbackMu.Unlock()

	for i, w := range wires {
		if !w.connected() {
			continue
		}
		if !feedback[i] {
			w.Source.buf(buffer).thread.Wait()
		}
		w.Source.getOutput(buffer, w.SourceOutput, &b.inputBus, i)
	}
	c.runProcess(b, buffer)
}

// runProcess applies the InOrder release-flag rendezvous (when relevant),
// clears c's own outputs, and invokes the user Process.
func (c *Component) runProcess(b *componentBuf, buffer int) {
	n := c.bufferCount()
	inOrder := c.processOrder == InOrder && n > 1
	if inOrder {
		c.releaseFlagAt(buffer).wait()
	}

	b.outputBus.ClearAll()
	c.processor.Process(&b.inputBus, &b.outputBus)

	if inOrder {
		c.releaseFlagAt((buffer + 1) % n).release()
	}
}

func (c *Component) releaseFlagAt(i int) *releaseFlag {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return c.releaseFlags[i]
}

// getOutput is invoked by a downstream component reading one of c's
// outputs into dest at destIndex. If the cell is empty it leaves dest
// untouched. Otherwise it increments the consumed counter for that output
// and either copies (if more readers remain) or moves/swaps (if this is
// the last reader, resetting consumed to zero). The increment and
// copy/move are serialized by a per-cell mutex only when fan-out exceeds
// one and c has a thread pool with live workers — a single reader, or no
// pool dispatching concurrent DoTick calls, has no race to guard against.
func (c *Component) getOutput(buffer, output int, dest *SignalBus, destIndex int) {
	b := c.buf(buffer)
	if b == nil {
		return
	}
	cell, ok := b.outputBus.Get(output)
	if !ok {
		return
	}
	rc := b.refTable.counter(output)
	if rc == nil {
		return
	}

	pool := c.currentPool()
	locked := rc.total > 1 && pool != nil && pool.ThreadsPerBuffer() > 0
	if locked {
		rc.mu.Lock()
	}
	if !cell.HasValue() {
		if locked {
			rc.mu.Unlock()
		}
		return
	}
	rc.consumed++
	last := rc.total <= 0 || rc.consumed >= rc.total
	if last {
		rc.consumed = 0
		dest.Move(destIndex, cell)
	} else {
		dest.Set(destIndex, cell)
	}
	if locked {
		rc.mu.Unlock()
	}
}

// Reset waits for any pool-dispatched work for this component+buffer to
// finish, clears the input bus, and returns the tick state machine to
// NotTicked.
func (c *Component) Reset(buffer int) {
	b := c.buf(buffer)
	if b == nil {
		return
	}
	if b.thread != nil {
		b.thread.Wait()
	}
	b.inputBus.ClearAll()
	c.setStatus(b, statusNotTicked)
}
