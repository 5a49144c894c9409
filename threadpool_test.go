package dspatch

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadPoolNilConfigRunsInline(t *testing.T) {
	p := NewThreadPool(2, 0)
	assert.Equal(t, 0, p.ThreadsPerBuffer())

	var ran int32
	task := p.Enqueue(0, func() { atomic.StoreInt32(&ran, 1) })
	task.Wait()
	assert.Equal(t, int32(1), ran)
}

func TestThreadPoolDispatchesAndWaits(t *testing.T) {
	p := NewThreadPool(3, 2)
	defer p.Close()

	var sum int64
	tasks := make([]*Task, 0, 20)
	for i := 0; i < 20; i++ {
		i := i
		tasks = append(tasks, p.Enqueue(i%3, func() {
			atomic.AddInt64(&sum, int64(i))
		}))
	}
	for _, task := range tasks {
		task.Wait()
	}
	assert.Equal(t, int64(190), sum)
}

func TestThreadPoolBucketFIFO(t *testing.T) {
	p := NewThreadPool(1, 1)
	defer p.Close()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		task := p.Enqueue(0, func() {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
		if i == 4 {
			task.Wait()
		}
	}
	<-done
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
