package benchmarks

import (
	"testing"
	"time"

	"github.com/andrewerf/compgraph/pkg/compgraph/delayqueue"
)

// BenchmarkDelayQueue_PushPop measures the cost of an immediate push
// followed by a pop, the hot path for a worker pool submitting work with
// zero delay.
func BenchmarkDelayQueue_PushPop(b *testing.B) {
	q := delayqueue.New[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(i, 0)
		_, _ = q.Pop()
	}
}

// BenchmarkDelayQueue_PopWaitReady measures PopWait when an element is
// already available, avoiding the timer path entirely.
func BenchmarkDelayQueue_PopWaitReady(b *testing.B) {
	q := delayqueue.New[int]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(i, 0)
		_, _ = q.PopWait(time.Second)
	}
}
