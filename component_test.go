package dspatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu    sync.Mutex
	calls [][2]any // (in0, in1) per call
}

func (r *recordingProcessor) Process(inputs *SignalBus, outputs *SignalBus) {
	a, _ := inputs.Value(0)
	var b any
	if inputs.SignalCount() > 1 {
		b, _ = inputs.Value(1)
	}
	r.mu.Lock()
	r.calls = append(r.calls, [2]any{a, b})
	r.mu.Unlock()
	if in0, ok := inputs.Get(0); ok {
		outputs.Set(0, in0)
	}
}

func newTestComponent(inputs, outputs int) (*Component, *recordingProcessor) {
	p := &recordingProcessor{}
	c := NewComponent(p, OutOfOrder)
	c.SetInputCount(inputs)
	c.SetOutputCount(outputs)
	return c, p
}

func TestConnectInputRejectsArityMismatch(t *testing.T) {
	src, _ := newTestComponent(0, 1)
	dst, _ := newTestComponent(1, 0)

	assert.False(t, dst.ConnectInput(src, 5, 0), "out-of-range source output must be rejected")
	assert.False(t, dst.ConnectInput(src, 0, 5), "out-of-range dest input must be rejected")
	assert.True(t, dst.ConnectInput(src, 0, 0))
}

func TestFanOutConservation(t *testing.T) {
	src, _ := newTestComponent(0, 1)
	dst1, _ := newTestComponent(1, 0)
	dst2, _ := newTestComponent(1, 0)
	require.True(t, dst1.ConnectInput(src, 0, 0))
	require.True(t, dst2.ConnectInput(src, 0, 0))

	b := src.buf(0)
	assert.Equal(t, 2, b.refTable.Total(0))

	srcOut, _ := b.outputBus.Get(0)
	srcOut.Emplace(1)

	src.getOutput(0, 0, &dst1.buf(0).inputBus, 0)
	assert.Equal(t, 1, b.refTable.counter(0).consumed, "first of two readers must copy, not move")
	assert.True(t, srcOut.HasValue(), "copy must leave the source cell intact")

	src.getOutput(0, 0, &dst2.buf(0).inputBus, 0)
	assert.Equal(t, 0, b.refTable.counter(0).consumed, "consumed resets to 0 mod total on the last reader")
}

func TestLastReaderMoveOnFanOutOne(t *testing.T) {
	src, _ := newTestComponent(0, 1)
	dst, _ := newTestComponent(1, 0)
	require.True(t, dst.ConnectInput(src, 0, 0))

	b := src.buf(0)
	out, _ := b.outputBus.Get(0)
	out.Emplace(42)

	src.getOutput(0, 0, &dst.buf(0).inputBus, 0)

	assert.False(t, out.HasValue(), "fan-out 1's single reader must move, leaving the source cell empty")
	v, ok := GetValue[int](&dst.buf(0).inputBus, 0)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestReentrantTickReturnsFalse(t *testing.T) {
	c, _ := newTestComponent(0, 0)
	b := c.buf(0)
	b.statusMu.Lock()
	b.status = statusTickStarted
	b.statusMu.Unlock()

	assert.False(t, c.Tick(Series, 0), "tick() during TickStarted must report feedback")
}

type constSource struct{ v int }

func (s *constSource) Process(_ *SignalBus, outputs *SignalBus) {
	SetValue(outputs, 0, s.v)
}

func TestTickIdempotentUnderReset(t *testing.T) {
	src := NewComponent(&constSource{v: 1}, OutOfOrder)
	src.SetOutputCount(1)

	dst, p := newTestComponent(1, 0)
	require.True(t, dst.ConnectInput(src, 0, 0))

	dst.Tick(Series, 0)
	dst.Reset(0)
	src.Reset(0)

	src.processor.(*constSource).v = 2
	dst.Tick(Series, 0)
	dst.Reset(0)

	require.Len(t, p.calls, 2)
	assert.Equal(t, 1, p.calls[0][0])
	assert.Equal(t, 2, p.calls[1][0])
}
