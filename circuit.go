// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Circuit owns a component list, a buffer pool, the wiring API, and an
// optional auto-tick driver. Wiring operations (AddComponent,
// RemoveComponent, ConnectOutToIn, SetBufferCount, ...) pause auto-tick if
// it is running, perform the change, and resume it — a circuit is always
// observed quiescent by its own mutations.
type Circuit struct {
	mu         sync.Mutex
	components []*Component
	byID       map[ComponentID]*Component

	bufferCount      int // always >= 1; unbuffered mode is pipelined == false.
	threadsPerBuffer int
	pipelined        bool
	pool             *ThreadPool
	ctGroups         []*CircuitThread
	nextBuffer       int

	pauseDepth int

	auto autoTickState

	logger *slog.Logger
}

type autoTickState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	running bool
	paused  bool
	pauseAck chan struct{}
	mode    TickMode
	stop    bool
	done    chan struct{}
}

// NewCircuit returns an empty, unbuffered (single synchronous buffer)
// Circuit.
func NewCircuit() *Circuit {
	c := &Circuit{
		byID:        make(map[ComponentID]*Component),
		bufferCount: 1,
		logger:      slog.Default(),
	}
	c.auto.cond = sync.NewCond(&c.auto.mu)
	return c
}

// SetLogger overrides the slog.Logger c uses for off-hot-path diagnostics
// (recovered auto-tick panics). A nil logger disables logging. The plugin
// package does not use this logger; it logs through slog's default logger.
func (c *Circuit) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.logger = l
}

// AddComponent registers p (wrapped with the given processing order) with
// c and returns the engine Component handle used for further wiring.
func (c *Circuit) AddComponent(p Processor, order ProcessOrder) *Component {
	comp := NewComponent(p, order)
	c.withQuiescence(func() {
		comp.id = ComponentID(uuid.New())
		comp.SetBufferCount(c.perComponentBufferCount())
		comp.SetThreadPool(c.pool)
		c.components = append(c.components, comp)
		c.byID[comp.id] = comp
		c.reorderLocked()
	})
	return comp
}

// GetComponent looks up a previously added component by id.
func (c *Circuit) GetComponent(id ComponentID) (*Component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.byID[id]
	return comp, ok
}

// RemoveComponent detaches every wire touching comp (both as a source and
// as a destination) and drops c's reference to it.
func (c *Circuit) RemoveComponent(comp *Component) {
	c.withQuiescence(func() {
		c.disconnectLocked(comp)
		for i, other := range c.components {
			if other == comp {
				c.components = append(c.components[:i], c.components[i+1:]...)
				break
			}
		}
		delete(c.byID, comp.id)
	})
}

// DisconnectComponent removes every wire touching comp without removing it
// from the circuit.
func (c *Circuit) DisconnectComponent(comp *Component) {
	c.withQuiescence(func() {
		c.disconnectLocked(comp)
	})
}

func (c *Circuit) disconnectLocked(comp *Component) {
	comp.DisconnectAllInputs()
	for _, other := range c.components {
		if other != comp {
			other.DisconnectInputSrc(comp)
		}
	}
}

// ConnectOutToIn wires src's srcOutput to dst's dstInput, pausing auto-tick
// for the duration of the change. It returns false on an arity mismatch.
func (c *Circuit) ConnectOutToIn(src *Component, srcOutput int, dst *Component, dstInput int) bool {
	var ok bool
	c.withQuiescence(func() {
		ok = dst.ConnectInput(src, srcOutput, dstInput)
		c.reorderLocked()
	})
	return ok
}

// ConnectNamedOutToIn resolves srcOutputName and dstInputName to pin
// indices via OutputIndex/InputIndex and wires them exactly as
// ConnectOutToIn. It returns false if either name is unknown on its
// component, or on the same arity mismatch ConnectOutToIn would reject.
// This is the named-pin counterpart spec.md §4.2's optional
// set_input_count/set_output_count names exist for: a caller that only
// knows pin names — a dynamically loaded component, say — can wire it up
// without hardcoding positional indices.
func (c *Circuit) ConnectNamedOutToIn(src *Component, srcOutputName string, dst *Component, dstInputName string) bool {
	srcOutput, ok := src.OutputIndex(srcOutputName)
	if !ok {
		return false
	}
	dstInput, ok := dst.InputIndex(dstInputName)
	if !ok {
		return false
	}
	return c.ConnectOutToIn(src, srcOutput, dst, dstInput)
}

// perComponentBufferCount returns the buffer count each Component should
// be configured with, given the circuit's current pipelining state.
func (c *Circuit) perComponentBufferCount() int {
	if c.pipelined {
		return c.bufferCount
	}
	return 1
}

// SetBufferCount configures c for B-deep tick pipelining across
// threadsPerBuffer workers per buffer. B == 0 (or 1) selects the
// synchronous single-buffer mode; threadsPerBuffer == 0 disables the
// per-component thread pool, so Parallel-mode components run their
// DoTick inline instead of on a worker.
func (c *Circuit) SetBufferCount(b, threadsPerBuffer int) {
	c.withQuiescence(func() {
		for _, g := range c.ctGroups {
			g.Stop()
		}
		c.ctGroups = nil
		if c.pool != nil {
			c.pool.Close()
			c.pool = nil
		}

		pipelined := b > 1
		bufferCount := b
		if bufferCount < 1 {
			bufferCount = 1
		}
		if threadsPerBuffer < 0 {
			threadsPerBuffer = 0
		}

		var pool *ThreadPool
		if pipelined && threadsPerBuffer > 0 {
			pool = NewThreadPool(bufferCount, threadsPerBuffer)
		}

		c.pipelined = pipelined
		c.bufferCount = bufferCount
		c.threadsPerBuffer = threadsPerBuffer
		c.pool = pool
		c.nextBuffer = 0

		perComp := 1
		if pipelined {
			perComp = bufferCount
		}
		for _, comp := range c.components {
			comp.SetBufferCount(perComp)
			comp.SetThreadPool(pool)
		}

		if pipelined {
			groups := make([]*CircuitThread, bufferCount)
			for i := range groups {
				i := i
				g := NewCircuitThread()
				g.Start(c.snapshotComponents, i, threadsPerBuffer)
				groups[i] = g
			}
			c.ctGroups = groups
		}
	})
}

// snapshotComponents returns the current component list. It is called by
// CircuitThread workers, which run concurrently with wiring changes only
// insofar as withQuiescence prevents that — workers are paused (mid
// rendezvous) during every mutation.
func (c *Circuit) snapshotComponents() []*Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Component, len(c.components))
	copy(out, c.components)
	return out
}

// Tick advances the circuit by one logical step using the given mode.
func (c *Circuit) Tick(mode TickMode) {
	c.mu.Lock()
	pipelined := c.pipelined
	c.mu.Unlock()
	if !pipelined {
		c.tickUnbuffered(mode)
		return
	}
	c.tickBuffered(mode)
}

func (c *Circuit) tickUnbuffered(mode TickMode) {
	comps := c.snapshotComponents()
	for _, comp := range comps {
		comp.Tick(mode, 0)
	}
	for _, comp := range comps {
		comp.Reset(0)
	}
}

func (c *Circuit) tickBuffered(mode TickMode) {
	c.mu.Lock()
	b := c.nextBuffer
	c.nextBuffer = (c.nextBuffer + 1) % c.bufferCount
	grp := c.ctGroups[b]
	c.mu.Unlock()
	grp.SyncAndResume(mode)
}

// GetCircuitPosition returns the longest path, in wire hops, from any
// source component to comp, starting at offset. It is used to keep the
// component list roughly sources-first. Cycles are broken by a
// visited-set guard (a component already on the current recursion path
// contributes offset and no further), so a feedback loop yields an
// approximation rather than non-termination.
func (c *Circuit) GetCircuitPosition(comp *Component, offset int) int {
	return circuitPosition(comp, offset, map[*Component]bool{})
}

func circuitPosition(comp *Component, offset int, visiting map[*Component]bool) int {
	if comp == nil || visiting[comp] {
		return offset
	}
	visiting[comp] = true
	best := offset
	for _, w := range comp.wires() {
		if !w.connected() {
			continue
		}
		p := circuitPosition(w.Source, offset+1, visiting)
		if p > best {
			best = p
		}
	}
	delete(visiting, comp)
	return best
}

// reorderLocked stable-sorts c.components by circuit position, sources
// first. Callers must already hold c.mu (via withQuiescence).
func (c *Circuit) reorderLocked() {
	positions := make(map[*Component]int, len(c.components))
	for _, comp := range c.components {
		positions[comp] = c.GetCircuitPosition(comp, 0)
	}
	sort.SliceStable(c.components, func(i, j int) bool {
		return positions[c.components[i]] < positions[c.components[j]]
	})
}

// withQuiescence pauses auto-tick (if running), runs fn while holding c.mu,
// then resumes auto-tick. pauseDepth counts overlapping calls so that only
// the first to enter pauses and only the last to leave resumes. fn must not
// call withQuiescence itself: c.mu is already held, so that call deadlocks.
func (c *Circuit) withQuiescence(fn func()) {
	c.mu.Lock()
	c.pauseDepth++
	top := c.pauseDepth == 1
	c.mu.Unlock()

	if top {
		c.pauseAutoTickInternal()
	}

	c.mu.Lock()
	fn()
	c.mu.Unlock()

	c.mu.Lock()
	c.pauseDepth--
	bottom := c.pauseDepth == 0
	c.mu.Unlock()

	if bottom {
		c.resumeAutoTickInternal()
	}
}
