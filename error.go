package esdr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pipelined/esdr/graph"
)

var (
	// ErrUnknownBlockKind is returned when node kind is not in the
	// registry.
	ErrUnknownBlockKind = errors.New("unknown block kind")
	// ErrMissingRequiredInput is returned when declared input is absent
	// or scalar input is not bound.
	ErrMissingRequiredInput = errors.New("missing required input")
	// ErrPortTypeMismatch is returned when stream and scalar contract is
	// violated or connected streams carry different signals.
	ErrPortTypeMismatch = errors.New("port type mismatch")
	// ErrDuplicateConnection is returned when input has more than one
	// incoming edge.
	ErrDuplicateConnection = errors.New("duplicate connection")
	// ErrEngineConnectFailure is returned when edge cannot be connected
	// in the engine.
	ErrEngineConnectFailure = errors.New("engine connect failure")
	// ErrMessagePortResolution is returned when unit doesn't expose a
	// message port for an updatable field.
	ErrMessagePortResolution = errors.New("message port resolution failure")
	// ErrEngineStart is returned when engine fails to start.
	ErrEngineStart = errors.New("engine start failure")
)

// CompileError is returned when graph cannot be compiled. No engine
// resources are allocated when it's returned.
type CompileError struct {
	// Err is one of compile error sentinels.
	Err  error
	Node graph.NodeID
	Port string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if !e.Node.IsZero() {
		fmt.Fprintf(&b, ": node %v", e.Node)
	}
	if e.Port != "" {
		fmt.Fprintf(&b, " port %q", e.Port)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the sentinel and the cause.
func (e *CompileError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// CallError is returned when live update or stop of the running pipeline
// fails. The pipeline stays running after failed update.
type CallError struct {
	Op    string
	Node  graph.NodeID
	Field string
	Err   error
}

func (e *CallError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %v.%s: %v", e.Op, e.Node, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}
