package compgraph

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrewerf/compgraph/pkg/compgraph/config"
	"github.com/andrewerf/compgraph/pkg/compgraph/observability"
	"github.com/andrewerf/compgraph/pkg/compgraph/workerpool"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Graph is a fixed collection of nodes, wired into a DAG at construction
// time and executed once by Run. A Graph is not reusable across runs.
type Graph struct {
	name string

	mu      sync.Mutex
	nodes   []NodeErased
	leafIDs []ID

	pool        *workerpool.Pool
	poolMaxIdle time.Duration
	runTimeout  time.Duration

	ran atomic.Bool

	isScheduled []atomic.Bool
	scheduledMu sync.Mutex

	completedMu    sync.Mutex
	allCompleted   *sync.Cond
	completedCount int
	runErr         error

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewGraph creates an empty Graph whose scheduler dispatches ready nodes
// onto threadCount worker goroutines.
func NewGraph(threadCount int, opts ...Option) *Graph {
	g := &Graph{
		name:        "graph",
		poolMaxIdle: time.Millisecond,
		logger:      slog.Default(),
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
	}
	g.allCompleted = sync.NewCond(&g.completedMu)
	for _, o := range opts {
		o(g)
	}

	g.pool = workerpool.New(threadCount,
		workerpool.WithLogger(g.logger),
		workerpool.WithMetrics(g.metrics),
		workerpool.WithMaxIdle(g.poolMaxIdle),
		workerpool.WithName(g.name+".pool"),
	)
	return g
}

// NewGraphFromConfig creates a Graph sized and tuned from cfg (worker
// count, pool idle window, run timeout), with opts applied on top so a
// caller can still override any individual field.
func NewGraphFromConfig(cfg config.GraphConfig, opts ...Option) *Graph {
	all := append([]Option{
		WithPoolMaxIdle(cfg.Pool.MaxIdle),
		WithRunTimeout(cfg.RunTimeout),
	}, opts...)
	return NewGraph(cfg.Pool.Workers, all...)
}

// addNodeToGraph reserves the next dense id, constructs the node under
// that id, and appends it to the graph in one locked step so concurrent
// construction can never hand out the same id twice.
func addNodeToGraph[N NodeErased](g *Graph, ctor func(id ID) N) N {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ID(len(g.nodes))
	n := ctor(id)
	g.nodes = append(g.nodes, n)
	return n
}

// AddInput adds a leaf node whose value is supplied later via SetInput.
func AddInput[T any](g *Graph) *InputNode[T] {
	node := addNodeToGraph(g, func(id ID) *InputNode[T] { return newInputNode[T](id) })
	g.mu.Lock()
	g.leafIDs = append(g.leafIDs, node.ID())
	g.mu.Unlock()
	return node
}

// AddNode1 adds a node computing fn(p1) once p1 has fired.
func AddNode1[O, I1 any](g *Graph, fn func(I1) (O, error), p1 Producer[I1]) *Node1[O, I1] {
	node := addNodeToGraph(g, func(id ID) *Node1[O, I1] { return newNode1[O, I1](id, fn) })
	p1.addCallback(node.ID(), node.setInput1)
	return node
}

// AddNode2 adds a node computing fn(p1, p2) once both producers have fired.
func AddNode2[O, I1, I2 any](g *Graph, fn func(I1, I2) (O, error), p1 Producer[I1], p2 Producer[I2]) *Node2[O, I1, I2] {
	node := addNodeToGraph(g, func(id ID) *Node2[O, I1, I2] { return newNode2[O, I1, I2](id, fn) })
	p1.addCallback(node.ID(), node.setInput1)
	p2.addCallback(node.ID(), node.setInput2)
	return node
}

// AddNode3 adds a node computing fn(p1, p2, p3) once all producers have
// fired.
func AddNode3[O, I1, I2, I3 any](g *Graph, fn func(I1, I2, I3) (O, error), p1 Producer[I1], p2 Producer[I2], p3 Producer[I3]) *Node3[O, I1, I2, I3] {
	node := addNodeToGraph(g, func(id ID) *Node3[O, I1, I2, I3] { return newNode3[O, I1, I2, I3](id, fn) })
	p1.addCallback(node.ID(), node.setInput1)
	p2.addCallback(node.ID(), node.setInput2)
	p3.addCallback(node.ID(), node.setInput3)
	return node
}

// AddNode4 adds a node computing fn(p1, p2, p3, p4) once all producers
// have fired.
func AddNode4[O, I1, I2, I3, I4 any](g *Graph, fn func(I1, I2, I3, I4) (O, error), p1 Producer[I1], p2 Producer[I2], p3 Producer[I3], p4 Producer[I4]) *Node4[O, I1, I2, I3, I4] {
	node := addNodeToGraph(g, func(id ID) *Node4[O, I1, I2, I3, I4] { return newNode4[O, I1, I2, I3, I4](id, fn) })
	p1.addCallback(node.ID(), node.setInput1)
	p2.addCallback(node.ID(), node.setInput2)
	p3.addCallback(node.ID(), node.setInput3)
	p4.addCallback(node.ID(), node.setInput4)
	return node
}

// AddFold adds a fold node reducing producers, all of type T, into one O
// via fn starting from init, in the given mode. Producers may be added
// later too, through ConnectFoldVector for vector fan-in, as long as it
// happens before Run.
func AddFold[O, T any](g *Graph, mode FoldMode, fn func(O, T) O, init O, producers ...Producer[T]) *FoldNode[O, T] {
	node := addNodeToGraph(g, func(id ID) *FoldNode[O, T] { return newFoldNode[O, T](id, mode, fn, init) })
	for _, p := range producers {
		node.declare()
		p.addCallback(node.ID(), node.add)
	}
	return node
}

// ConnectFoldVector wires a producer of []T into fold, enumerating each
// firing's slice elements as individual deliveries while counting the
// whole firing as a single declared/arrived increment.
func ConnectFoldVector[O, T any](fold *FoldNode[O, T], producer Producer[[]T]) {
	fold.declare()
	producer.addCallback(fold.ID(), fold.addBatch)
}

// SetInput assigns value to the leaf node identified by id. It fails with
// BadInputNode if id is out of range or does not name a leaf of type T.
func SetInput[T any](g *Graph, id ID, value T) error {
	g.mu.Lock()
	if int(id) < 0 || int(id) >= len(g.nodes) {
		g.mu.Unlock()
		return &Error{Kind: BadInputNode, NodeID: id, Msg: "id out of range"}
	}
	n := g.nodes[id]
	g.mu.Unlock()

	input, ok := n.(*InputNode[T])
	if !ok {
		return &Error{Kind: BadInputNode, NodeID: id, Msg: "node is not a leaf of the requested type"}
	}
	input.setValue(value)
	return nil
}

// checkAcyclic walks the successor graph looking for a back-edge. It is
// run once at the start of Run so a malformed graph fails fast instead of
// hanging forever waiting for a completion count that can never be
// reached.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.nodes))

	var visit func(id ID) error
	visit = func(id ID) error {
		color[id] = gray
		for _, childID := range g.nodes[id].Outputs() {
			switch color[childID] {
			case gray:
				return &Error{Kind: CycleDetected, NodeID: childID, Msg: "cycle detected in graph"}
			case white:
				if err := visit(childID); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range g.nodes {
		if color[id] == white {
			if err := visit(ID(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run fires every leaf node, then lets the dependency scheduler fire the
// rest of the graph as their inputs become ready, blocking until every
// node has fired or one has failed. A Graph supports exactly one Run.
func (g *Graph) Run(ctx context.Context) error {
	if !g.ran.CompareAndSwap(false, true) {
		return &Error{Kind: ComputationFailure, Msg: "graph has already been run"}
	}

	g.mu.Lock()
	n := len(g.nodes)
	leaves := append([]ID{}, g.leafIDs...)
	g.mu.Unlock()

	if err := g.checkAcyclic(); err != nil {
		return err
	}

	g.isScheduled = make([]atomic.Bool, n)
	g.completedCount = 0
	g.runErr = nil

	runID := uuid.NewString()
	ctx, span := g.spans.StartRunSpan(ctx, g.name, runID)
	start := time.Now()
	observability.LogRunStart(g.logger, runID, n)

	runCtx := ctx
	if g.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.runTimeout)
		defer cancel()

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-runCtx.Done():
				g.fail(&Error{Kind: ComputationFailure, Msg: "run exceeded timeout before all nodes completed"})
			case <-done:
			}
		}()
	}

	for _, leafID := range leaves {
		if err := g.nodes[leafID].Run(); err != nil {
			return g.finishRun(ctx, span, runID, start, n, err)
		}
		g.isScheduled[leafID].Store(true)
	}

	for _, leafID := range leaves {
		g.onComplete(runCtx, leafID)
	}

	g.completedMu.Lock()
	for g.completedCount != n && g.runErr == nil {
		g.allCompleted.Wait()
	}
	err := g.runErr
	g.completedMu.Unlock()

	return g.finishRun(ctx, span, runID, start, n, err)
}

func (g *Graph) finishRun(ctx context.Context, span trace.Span, runID string, start time.Time, nodeCount int, err error) error {
	duration := time.Since(start)
	g.spans.EndSpanWithError(span, err)
	g.metrics.RecordGraphRun(ctx, err == nil, duration, nodeCount)
	if err != nil {
		observability.LogRunError(g.logger, runID, err, float64(duration.Milliseconds()), "")
		return err
	}
	observability.LogRunComplete(g.logger, runID, float64(duration.Milliseconds()), nodeCount)
	return nil
}

// onComplete is called once a node has fired. For each successor whose
// inputs are now all set, it submits that successor's run to the pool and
// recurses once that submission completes.
func (g *Graph) onComplete(ctx context.Context, id ID) {
	node := g.nodes[id]
	for _, childID := range node.Outputs() {
		child := g.nodes[childID]
		if !child.IsReady() {
			continue
		}
		if g.isScheduled[childID].Load() {
			continue
		}

		g.scheduledMu.Lock()
		if g.isScheduled[childID].Load() {
			g.scheduledMu.Unlock()
			continue
		}
		g.isScheduled[childID].Store(true)
		g.scheduledMu.Unlock()

		g.submitChild(ctx, childID, child)
	}
	g.markDone()
}

func (g *Graph) submitChild(ctx context.Context, id ID, node NodeErased) {
	label := strconv.Itoa(int(id))
	observability.LogNodeScheduled(g.logger, label)

	g.pool.Submit(func() {
		start := time.Now()
		err := node.Run()
		g.metrics.RecordNodeFired(ctx, label, time.Since(start), err)
		if err != nil {
			observability.LogNodeError(g.logger, label, err)
			g.fail(err)
			return
		}
		observability.LogNodeFired(g.logger, label, float64(time.Since(start).Milliseconds()))
		g.onComplete(ctx, id)
	})
}

func (g *Graph) markDone() {
	g.completedMu.Lock()
	g.completedCount++
	if g.completedCount == len(g.nodes) {
		g.allCompleted.Broadcast()
	}
	g.completedMu.Unlock()
}

func (g *Graph) fail(err error) {
	g.completedMu.Lock()
	if g.runErr == nil {
		g.runErr = err
	}
	g.allCompleted.Broadcast()
	g.completedMu.Unlock()
}

// Close shuts down the graph's worker pool. Call it once Run has
// returned; it is safe to call even if Run was never called.
func (g *Graph) Close() {
	g.pool.Close()
}
