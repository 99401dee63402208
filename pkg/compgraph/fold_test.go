package compgraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldNode_NotReadyUntilAllArrive(t *testing.T) {
	f := newFoldNode[int, int](0, Buffered, func(acc, v int) int { return acc + v }, 0)
	f.declare()
	f.declare()

	f.add(1)
	assert.False(t, f.IsReady())

	f.add(2)
	assert.True(t, f.IsReady())

	require.NoError(t, f.Run())
	v, ok := f.Result()
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestFoldNode_BufferedPreservesArrivalOrder(t *testing.T) {
	f := newFoldNode[string, string](0, Buffered, func(acc, v string) string { return acc + v }, "")
	f.declare()
	f.declare()
	f.declare()

	f.add("a")
	f.add("b")
	f.add("c")

	require.NoError(t, f.Run())
	v, _ := f.Result()
	assert.Equal(t, "abc", v)
}

func TestFoldNode_EagerCASCorrectnessUnderConcurrency(t *testing.T) {
	const leaves = 10
	const runs = 1000

	for i := 0; i < runs; i++ {
		f := newFoldNode[int, int](0, Eager, func(acc, v int) int { return acc + v }, 0)
		var wg sync.WaitGroup
		for l := 0; l < leaves; l++ {
			f.declare()
		}
		wg.Add(leaves)
		for l := 0; l < leaves; l++ {
			go func() {
				defer wg.Done()
				f.add(1)
			}()
		}
		wg.Wait()

		require.True(t, f.IsReady())
		require.NoError(t, f.Run())
		v, ok := f.Result()
		require.True(t, ok)
		require.Equal(t, leaves, v, "no CAS contention should drop an update")
	}
}

func TestFoldNode_VectorFanInCountsAsOneArrival(t *testing.T) {
	f := newFoldNode[int, int](0, Eager, func(acc, v int) int { return acc + v }, 10)
	f.declare() // the vector producer's single declared slot

	assert.False(t, f.IsReady())
	f.addBatch([]int{1, 2, 3, 4})
	assert.True(t, f.IsReady(), "a batch delivery must satisfy exactly one declared slot")

	require.NoError(t, f.Run())
	v, ok := f.Result()
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestFoldNode_RunBeforeReadyFails(t *testing.T) {
	f := newFoldNode[int, int](0, Buffered, func(acc, v int) int { return acc + v }, 0)
	f.declare()

	err := f.Run()
	require.Error(t, err)
	assert.True(t, IsKind(err, InputsNotReady))
}

func TestFoldNode_ChainsIntoAnotherNode(t *testing.T) {
	f := newFoldNode[int, int](0, Buffered, func(acc, v int) int { return acc + v }, 0)
	f.declare()
	f.declare()

	var downstream int
	f.addCallback(1, func(v int) { downstream = v * 2 })

	f.add(3)
	f.add(4)
	require.NoError(t, f.Run())

	assert.Equal(t, 14, downstream)
	assert.Equal(t, []ID{1}, f.Outputs())
}
