package compgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesKindAndNode(t *testing.T) {
	err := &Error{Kind: ArityMismatch, NodeID: 3, Msg: "expected 2 producers"}
	assert.Contains(t, err.Error(), "ArityMismatch")
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "expected 2 producers")
}

func TestError_WrapsUnderlyingError(t *testing.T) {
	inner := errors.New("division by zero")
	err := &Error{Kind: ComputationFailure, NodeID: 1, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestIsKind(t *testing.T) {
	err := &Error{Kind: CycleDetected, NodeID: 0}
	assert.True(t, IsKind(err, CycleDetected))
	assert.False(t, IsKind(err, TypeMismatch))
	assert.False(t, IsKind(errors.New("plain"), CycleDetected))
}

func TestErrorKind_String(t *testing.T) {
	cases := map[ErrorKind]string{
		InputsNotReady:      "InputsNotReady",
		BadInputNode:        "BadInputNode",
		ArityMismatch:       "ArityMismatch",
		TypeMismatch:        "TypeMismatch",
		ComputationFailure:  "ComputationFailure",
		CycleDetected:       "CycleDetected",
		ErrorKind(99):       "Unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
