package compgraph

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/andrewerf/compgraph/pkg/compgraph/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_LinearChain(t *testing.T) {
	g := NewGraph(2)
	defer g.Close()

	a := AddInput[int](g)
	b := AddNode1(g, func(x int) (int, error) { return x * x, nil }, a)
	c := AddNode1(g, func(x int) (int, error) { return x + 1, nil }, b)

	require.NoError(t, SetInput(g, a.ID(), 3))
	require.NoError(t, g.Run(context.Background()))

	av, ok := a.Result()
	require.True(t, ok)
	assert.Equal(t, 3, av)

	bv, ok := b.Result()
	require.True(t, ok)
	assert.Equal(t, 9, bv)

	cv, ok := c.Result()
	require.True(t, ok)
	assert.Equal(t, 10, cv)
}

func TestGraph_DiamondWithBufferedFold(t *testing.T) {
	g := NewGraph(4)
	defer g.Close()

	i := AddInput[float64](g)
	s := AddNode1(g, func(x float64) (float64, error) { return x * x, nil }, i)
	r := AddNode1(g, func(x float64) (float64, error) { return math.Sqrt(x), nil }, i)
	f := AddFold(g, Buffered, func(acc, v float64) float64 { return acc + v }, 0.0, s, r)

	require.NoError(t, SetInput(g, i.ID(), 10.0))
	require.NoError(t, g.Run(context.Background()))

	fv, ok := f.Result()
	require.True(t, ok)
	assert.InDelta(t, 103.1623, fv, 1e-3)
}

func TestGraph_VectorFanIn(t *testing.T) {
	g := NewGraph(2)
	defer g.Close()

	i := AddInput[int](g)
	vec := AddNode1(g, func(x int) ([]int, error) { return []int{1, 2, 3, 4}, nil }, i)
	f := AddFold[int, int](g, Eager, func(acc, v int) int { return acc + v }, 10)
	ConnectFoldVector(f, vec)

	require.NoError(t, SetInput(g, i.ID(), 0))
	require.NoError(t, g.Run(context.Background()))

	fv, ok := f.Result()
	require.True(t, ok)
	assert.Equal(t, 20, fv)
}

func TestGraph_RunDirectlyOnUnreadyNodeFails(t *testing.T) {
	g := NewGraph(1)
	defer g.Close()

	a := AddInput[int](g)
	b := AddInput[int](g)
	sum := AddNode2(g, func(x, y int) (int, error) { return x + y, nil }, a, b)

	// Only a's slot gets set; b's is left unset, so sum is not ready.
	require.NoError(t, SetInput(g, a.ID(), 1))

	err := sum.Run()
	require.Error(t, err)
	assert.True(t, IsKind(err, InputsNotReady))
}

func TestGraph_SetInputOnWrongTypeFails(t *testing.T) {
	g := NewGraph(1)
	defer g.Close()

	a := AddInput[int](g)
	err := SetInput(g, a.ID(), "not an int")
	require.Error(t, err)
	assert.True(t, IsKind(err, BadInputNode))
}

func TestGraph_SetInputOutOfRangeFails(t *testing.T) {
	g := NewGraph(1)
	defer g.Close()

	err := SetInput(g, 42, 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, BadInputNode))
}

func TestGraph_RunTwiceFails(t *testing.T) {
	g := NewGraph(1)
	defer g.Close()

	a := AddInput[int](g)
	require.NoError(t, SetInput(g, a.ID(), 1))
	require.NoError(t, g.Run(context.Background()))

	err := g.Run(context.Background())
	require.Error(t, err)
}

func TestGraph_ComputationFailureShortCircuitsRun(t *testing.T) {
	g := NewGraph(2)
	defer g.Close()

	boom := errors.New("boom")
	a := AddInput[int](g)
	_ = AddNode1(g, func(x int) (int, error) { return 0, boom }, a)

	require.NoError(t, SetInput(g, a.ID(), 1))
	err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ComputationFailure))
}

func TestGraph_CycleDetected(t *testing.T) {
	g := NewGraph(1)
	defer g.Close()

	a := AddInput[int](g)
	b := AddNode1(g, func(x int) (int, error) { return x, nil }, a)
	// Manually create a cycle: make b's own output feed back into it via
	// a second connection with matching shape.
	b.addCallback(b.ID(), func(int) {})

	require.NoError(t, SetInput(g, a.ID(), 1))
	err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, CycleDetected))
}

func TestGraph_RunTimeoutFailsSlowNode(t *testing.T) {
	g := NewGraph(1, WithRunTimeout(10*time.Millisecond))
	defer g.Close()

	a := AddInput[int](g)
	_ = AddNode1(g, func(x int) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return x, nil
	}, a)

	require.NoError(t, SetInput(g, a.ID(), 1))
	err := g.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ComputationFailure))
}

func TestGraph_RunTimeoutZeroMeansNoTimeout(t *testing.T) {
	g := NewGraph(1)
	defer g.Close()

	a := AddInput[int](g)
	b := AddNode1(g, func(x int) (int, error) {
		time.Sleep(20 * time.Millisecond)
		return x * 2, nil
	}, a)

	require.NoError(t, SetInput(g, a.ID(), 5))
	require.NoError(t, g.Run(context.Background()))

	v, ok := b.Result()
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestNewGraphFromConfig(t *testing.T) {
	cfg := config.GraphConfig{
		RunTimeout: 0,
		Pool:       config.PoolConfig{Workers: 2, MaxIdle: time.Millisecond},
	}
	g := NewGraphFromConfig(cfg)
	defer g.Close()

	a := AddInput[int](g)
	b := AddNode1(g, func(x int) (int, error) { return x + 1, nil }, a)

	require.NoError(t, SetInput(g, a.ID(), 41))
	require.NoError(t, g.Run(context.Background()))

	v, ok := b.Result()
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGraph_MultipleIndependentLeaves(t *testing.T) {
	g := NewGraph(4)
	defer g.Close()

	a := AddInput[int](g)
	b := AddInput[int](g)
	sum := AddNode2(g, func(x, y int) (int, error) { return x + y, nil }, a, b)

	require.NoError(t, SetInput(g, a.ID(), 2))
	require.NoError(t, SetInput(g, b.ID(), 5))
	require.NoError(t, g.Run(context.Background()))

	v, ok := sum.Result()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}
