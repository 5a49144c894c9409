package dspatch_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfkiwl/dspatch"
	"github.com/mfkiwl/dspatch/dsplib"
)

// bufferRecorder records, for every Process call, which buffer it ran on
// (identified by the stable identity of the input bus it receives) and the
// global order the call landed in. It never looks at signal values — the
// InOrder release-flag ring is what this type is built to observe.
type bufferRecorder struct {
	mu      sync.Mutex
	indices map[*dspatch.SignalBus]int
	calls   []int
}

func (r *bufferRecorder) Process(inputs *dspatch.SignalBus, _ *dspatch.SignalBus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indices == nil {
		r.indices = make(map[*dspatch.SignalBus]int)
	}
	idx, ok := r.indices[inputs]
	if !ok {
		idx = len(r.indices)
		r.indices[inputs] = idx
	}
	r.calls = append(r.calls, idx)
}

func TestSerialChain(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	count := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	count.SetOutputCount(1)

	prev := count
	for i := 1; i <= 5; i++ {
		off := circuit.AddComponent(dsplib.Offset(i), dspatch.OutOfOrder)
		off.SetInputCount(1)
		off.SetOutputCount(1)
		require.True(t, circuit.ConnectOutToIn(prev, 0, off, 0))
		prev = off
	}

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(prev, 0, probeComp, 0))

	for i := 0; i < 100; i++ {
		circuit.Tick(dspatch.Series)
	}

	history := probe.History()
	require.Len(t, history, 100)
	for n, row := range history {
		require.True(t, row[0].Present)
		assert.Equal(t, n+15, row[0].Value)
	}
}

func TestParallelFanOut(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	count := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	count.SetOutputCount(1)

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(5)

	for i := 1; i <= 5; i++ {
		off := circuit.AddComponent(dsplib.Offset(i), dspatch.OutOfOrder)
		off.SetInputCount(1)
		off.SetOutputCount(1)
		require.True(t, circuit.ConnectOutToIn(count, 0, off, 0))
		require.True(t, circuit.ConnectOutToIn(off, 0, probeComp, i-1))
	}

	for tick := 0; tick < 10; tick++ {
		circuit.Tick(dspatch.Parallel)
	}

	history := probe.History()
	require.Len(t, history, 10)
	for n, row := range history {
		for i, sample := range row {
			require.True(t, sample.Present)
			assert.Equal(t, n+i+1, sample.Value)
		}
	}
}

func TestFeedbackAdderProducesTriangularNumbers(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	count := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	count.SetOutputCount(1)

	adder := circuit.AddComponent(dsplib.Adder(), dspatch.OutOfOrder)
	adder.SetInputCount(2)
	adder.SetOutputCount(1)

	pass := circuit.AddComponent(dsplib.PassThrough(), dspatch.OutOfOrder)
	pass.SetInputCount(1)
	pass.SetOutputCount(1)

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1)

	require.True(t, circuit.ConnectOutToIn(count, 0, adder, 0))
	require.True(t, circuit.ConnectOutToIn(pass, 0, adder, 1))
	require.True(t, circuit.ConnectOutToIn(adder, 0, pass, 0))
	require.True(t, circuit.ConnectOutToIn(adder, 0, probeComp, 0))

	want := []int{0, 1, 3, 6, 10, 15}
	for range want {
		circuit.Tick(dspatch.Series)
	}

	history := probe.History()
	require.Len(t, history, len(want))
	for n, row := range history {
		assert.Equal(t, want[n], row[0].Value)
	}
}

func TestChangingSignalType(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	rot := circuit.AddComponent(dsplib.TypeRotator(), dspatch.OutOfOrder)
	rot.SetOutputCount(1)

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(rot, 0, probeComp, 0))

	for i := 0; i < 4; i++ {
		circuit.Tick(dspatch.Series)
	}

	history := probe.History()
	require.Len(t, history, 4)
	assert.Equal(t, 0, history[0][0].Value)
	assert.Equal(t, float64(1), history[1][0].Value)
	assert.Equal(t, "tick", history[2][0].Value)
	assert.Equal(t, []int{3, 3}, history[3][0].Value)
}

func TestSporadicProducerAbsentOnAlternatingTicks(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	prod := circuit.AddComponent(dsplib.Sporadic(), dspatch.OutOfOrder)
	prod.SetOutputCount(1)

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(prod, 0, probeComp, 0))

	for i := 0; i < 6; i++ {
		circuit.Tick(dspatch.Series)
	}

	history := probe.History()
	require.Len(t, history, 6)
	for n, row := range history {
		if n%2 == 0 {
			assert.True(t, row[0].Present)
			assert.Equal(t, n, row[0].Value)
		} else {
			assert.False(t, row[0].Present)
		}
	}
}

func TestBufferCountChangeWhileAutoTicking(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	count := circuit.AddComponent(dsplib.Counter(), dspatch.InOrder)
	count.SetOutputCount(1)

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.InOrder)
	probeComp.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(count, 0, probeComp, 0))

	circuit.SetBufferCount(0, 1)
	circuit.StartAutoTick(dspatch.Series)

	time.Sleep(20 * time.Millisecond)
	circuit.SetBufferCount(4, 2)
	time.Sleep(20 * time.Millisecond)

	circuit.StopAutoTick()

	history := probe.History()
	require.NotEmpty(t, history)
	for n, row := range history {
		assert.Equal(t, n, row[0].Value, "counter must advance by exactly one tick issued, across the buffer-count change")
	}
}

func TestInOrderSerializesAcrossBuffers(t *testing.T) {
	circuit := dspatch.NewCircuit()

	count := circuit.AddComponent(dsplib.Counter(), dspatch.InOrder)
	count.SetOutputCount(1)

	rec := &bufferRecorder{}
	sink := circuit.AddComponent(rec, dspatch.InOrder)
	sink.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(count, 0, sink, 0))

	circuit.SetBufferCount(3, 2)

	const rounds = 4
	for i := 0; i < 3*rounds; i++ {
		circuit.Tick(dspatch.Series)
	}
	circuit.Close() // drains every in-flight round before calls is read

	rec.mu.Lock()
	calls := append([]int(nil), rec.calls...)
	rec.mu.Unlock()

	require.Len(t, calls, 3*rounds)
	for i, buf := range calls {
		assert.Equal(t, i%3, buf, "call %d observed buffer %d, want %d", i, buf, i%3)
	}
}

func TestReentrantTickIsDetectedAsFeedback(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	comp := circuit.AddComponent(dsplib.PassThrough(), dspatch.OutOfOrder)
	comp.SetInputCount(1)
	comp.SetOutputCount(1)
	require.True(t, circuit.ConnectOutToIn(comp, 0, comp, 0))

	circuit.Tick(dspatch.Series)
}

// countingPassThrough is PassThrough plus a call counter, used to prove a
// removed component never runs Process again.
type countingPassThrough struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPassThrough) Process(inputs *dspatch.SignalBus, outputs *dspatch.SignalBus) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if v, ok := inputs.Get(0); ok {
		outputs.Set(0, v)
	}
}

func (p *countingPassThrough) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestRemoveComponentDetachesWiresAndStopsTicking(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	count := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	count.SetOutputCount(1)

	mid := &countingPassThrough{}
	midComp := circuit.AddComponent(mid, dspatch.OutOfOrder)
	midComp.SetInputCount(1)
	midComp.SetOutputCount(1)
	require.True(t, circuit.ConnectOutToIn(count, 0, midComp, 0))

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(midComp, 0, probeComp, 0))

	for i := 0; i < 5; i++ {
		circuit.Tick(dspatch.Series)
	}
	require.Equal(t, 5, mid.callCount())

	_, ok := circuit.GetComponent(midComp.ID())
	require.True(t, ok, "midComp must be registered before removal")

	circuit.RemoveComponent(midComp)

	_, ok = circuit.GetComponent(midComp.ID())
	assert.False(t, ok, "GetComponent must not find a removed component")

	for i := 0; i < 5; i++ {
		circuit.Tick(dspatch.Series)
	}

	assert.Equal(t, 5, mid.callCount(), "a removed component must never run Process again")

	history := probe.History()
	require.Len(t, history, 10)
	for n, row := range history {
		if n < 5 {
			assert.True(t, row[0].Present, "row %d ticked before removal, must carry a value", n)
		} else {
			assert.False(t, row[0].Present, "row %d ticked after removal, its feeding wire is gone", n)
		}
	}
}

func TestDisconnectComponentKeepsTickingButDropsWires(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	src := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	src.SetOutputCount(1)

	dst := &countingPassThrough{}
	dstComp := circuit.AddComponent(dst, dspatch.OutOfOrder)
	dstComp.SetInputCount(1)
	dstComp.SetOutputCount(1)
	require.True(t, circuit.ConnectOutToIn(src, 0, dstComp, 0))

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1)
	require.True(t, circuit.ConnectOutToIn(dstComp, 0, probeComp, 0))

	circuit.Tick(dspatch.Series)
	circuit.DisconnectComponent(dstComp)

	_, ok := circuit.GetComponent(dstComp.ID())
	assert.True(t, ok, "DisconnectComponent must leave the component registered, unlike RemoveComponent")

	circuit.Tick(dspatch.Series)

	assert.Equal(t, 2, dst.callCount(), "a disconnected (not removed) component must keep ticking")

	history := probe.History()
	require.Len(t, history, 2)
	assert.True(t, history[0][0].Present, "wired before the disconnect")
	assert.False(t, history[1][0].Present, "its feeding wire was dropped by DisconnectComponent")
}

func TestConnectNamedOutToIn(t *testing.T) {
	circuit := dspatch.NewCircuit()
	defer circuit.Close()

	src := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	src.SetOutputCount(1, "out")

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1, "in")

	assert.False(t, circuit.ConnectNamedOutToIn(src, "nope", probeComp, "in"), "unknown source pin name must fail")
	assert.False(t, circuit.ConnectNamedOutToIn(src, "out", probeComp, "nope"), "unknown dest pin name must fail")
	require.True(t, circuit.ConnectNamedOutToIn(src, "out", probeComp, "in"))

	circuit.Tick(dspatch.Series)
	history := probe.History()
	require.Len(t, history, 1)
	require.True(t, history[0][0].Present)
	assert.Equal(t, 0, history[0][0].Value)
}
