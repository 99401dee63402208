package compgraph

import (
	"sync"
	"sync/atomic"
)

// FoldMode selects how a FoldNode accumulates its inputs.
type FoldMode int

const (
	// Eager folds each input into the accumulator as soon as it arrives,
	// using a lock-free compare-and-swap loop. The fold function must be
	// commutative and associative, since arrival order is not preserved.
	Eager FoldMode = iota
	// Buffered appends each input to a mutex-guarded buffer and folds the
	// whole buffer, in arrival order, once the node fires.
	Buffered
)

// FoldNode reduces a variable number of same-typed inputs into one value
// of type O. Producers are declared once, at connect time, incrementing a
// declared-inputs counter; the node becomes ready once a matching number
// of deliveries have arrived.
type FoldNode[O, T any] struct {
	id   ID
	mode FoldMode
	fold func(O, T) O
	init O

	acc atomic.Value // holds O, used only in Eager mode

	bufMu  sync.Mutex
	buffer []T // used only in Buffered mode

	counterMu sync.Mutex
	declared  int
	arrived   int

	resultMu  sync.Mutex
	result    O
	hasResult bool

	outMu     sync.Mutex
	outputs   []ID
	callbacks []func(O)
}

func newFoldNode[O, T any](id ID, mode FoldMode, fn func(O, T) O, init O) *FoldNode[O, T] {
	f := &FoldNode[O, T]{id: id, mode: mode, fold: fn, init: init}
	if mode == Eager {
		f.acc.Store(init)
	}
	return f
}

func (f *FoldNode[O, T]) ID() ID { return f.id }

// declare registers a new upstream connection, incrementing the declared
// count. Called once per connect, regardless of whether the producer
// delivers one value or (for vector fan-in) a batch per firing.
func (f *FoldNode[O, T]) declare() {
	f.counterMu.Lock()
	f.declared++
	f.counterMu.Unlock()
}

// absorb folds a single value into the accumulator without advancing the
// arrived counter.
func (f *FoldNode[O, T]) absorb(v T) {
	switch f.mode {
	case Eager:
		for {
			old := f.acc.Load().(O)
			next := f.fold(old, v)
			if f.acc.CompareAndSwap(old, next) {
				return
			}
		}
	case Buffered:
		f.bufMu.Lock()
		f.buffer = append(f.buffer, v)
		f.bufMu.Unlock()
	}
}

// arrive advances the arrived counter by one delivery event.
func (f *FoldNode[O, T]) arrive() {
	f.counterMu.Lock()
	f.arrived++
	f.counterMu.Unlock()
}

// add is the single-value delivery path used when a producer yields T
// directly: absorb the value, then count the delivery.
func (f *FoldNode[O, T]) add(v T) {
	f.absorb(v)
	f.arrive()
}

// addBatch is the vector fan-in delivery path: every element of vs is
// absorbed into the accumulator, but the whole batch counts as a single
// delivery, matching the one D/R increment per upstream firing.
func (f *FoldNode[O, T]) addBatch(vs []T) {
	for _, v := range vs {
		f.absorb(v)
	}
	f.arrive()
}

func (f *FoldNode[O, T]) IsReady() bool {
	f.counterMu.Lock()
	defer f.counterMu.Unlock()
	return f.arrived == f.declared
}

func (f *FoldNode[O, T]) Run() error {
	if !f.IsReady() {
		return &Error{Kind: InputsNotReady, NodeID: f.id}
	}

	var out O
	switch f.mode {
	case Eager:
		out = f.acc.Load().(O)
	case Buffered:
		f.bufMu.Lock()
		buf := append([]T{}, f.buffer...)
		f.bufMu.Unlock()

		out = f.init
		for _, v := range buf {
			out = f.fold(out, v)
		}
	}

	f.resultMu.Lock()
	f.result = out
	f.hasResult = true
	f.resultMu.Unlock()

	f.outMu.Lock()
	callbacks := append([]func(O){}, f.callbacks...)
	f.outMu.Unlock()

	for _, cb := range callbacks {
		cb(out)
	}
	return nil
}

func (f *FoldNode[O, T]) Result() (O, bool) {
	f.resultMu.Lock()
	defer f.resultMu.Unlock()
	return f.result, f.hasResult
}

func (f *FoldNode[O, T]) Outputs() []ID {
	f.outMu.Lock()
	defer f.outMu.Unlock()
	return append([]ID{}, f.outputs...)
}

func (f *FoldNode[O, T]) addCallback(consumer ID, cb func(O)) {
	f.outMu.Lock()
	defer f.outMu.Unlock()
	f.callbacks = append(f.callbacks, cb)
	f.outputs = append(f.outputs, consumer)
}

var _ Producer[int] = (*FoldNode[int, int])(nil)
