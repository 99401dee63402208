// Package compgraph builds and executes typed, directed-acyclic graphs of
// pure computations.
//
// A Graph is a fixed collection of Nodes: leaf (input) nodes that hold a
// caller-supplied constant, plain nodes that apply a function to their
// upstream results, and fold nodes that reduce a variable number of
// same-typed inputs into one value. Edges are wired at construction time
// through AddNode/AddFold; once Run is called the graph's shape is frozen
// and every node fires exactly once, driven by a dependency scheduler
// backed by a workerpool.Pool.
//
// The library does not define how nodes are declared by user code, how a
// graph is serialized, or how to resume a partially-run graph - it only
// provides the node/fold/graph primitives and their scheduler.
package compgraph
