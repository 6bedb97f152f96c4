// Package engine executes flowgraphs of stream-connected blocks. Every
// block runs in its own goroutine and accepts asynchronous message
// calls while the flowgraph is running.
package engine

import (
	"context"

	"github.com/pipelined/esdr/signal"
)

// Stream port names. A block has at most one input and one output
// stream port.
const (
	InputPort  = "in"
	OutputPort = "out"
)

type (
	// BlockID identifies a block within a flowgraph.
	BlockID int

	// PortID identifies a message port within a block.
	PortID int

	// SourceFunc fills the buffer and returns the number of samples
	// written. io.EOF signals the end of the stream.
	SourceFunc func(out signal.Signal) (int, error)

	// ProcessFunc processes the input buffer and returns the output.
	// Input buffers are shared between receivers and must not be
	// modified. Output may be empty.
	ProcessFunc func(in signal.Signal) (signal.Signal, error)

	// SinkFunc consumes the input buffer. Input buffers are shared
	// between receivers and must not be modified.
	SinkFunc func(in signal.Signal) error

	// StartFunc is a hook called before the block starts processing.
	StartFunc func(ctx context.Context) error

	// FlushFunc is a hook called after the block is done processing.
	FlushFunc func(ctx context.Context) error

	// MessageFunc handles a value delivered to a message port.
	MessageFunc func(value float64) error

	// MessagePort is a named message port of the block.
	MessagePort struct {
		Name    string
		Handler MessageFunc
	}

	// Unit is an executable processing unit. Exactly one of SourceFunc,
	// ProcessFunc or SinkFunc must be set and match Input and Output.
	Unit struct {
		Name     string
		Input    signal.Kind
		Output   signal.Kind
		Messages []MessagePort
		SourceFunc
		ProcessFunc
		SinkFunc
		StartFunc
		FlushFunc
	}
)

// MessagePortID returns id of the message port with provided name.
func (u Unit) MessagePortID(name string) (PortID, bool) {
	for i := range u.Messages {
		if u.Messages[i].Name == name {
			return PortID(i), true
		}
	}
	return 0, false
}

// validate checks that unit functions match its stream ports.
func (u Unit) validate() error {
	switch {
	case u.SourceFunc != nil && u.ProcessFunc == nil && u.SinkFunc == nil:
		if u.Input == 0 && u.Output != 0 {
			return nil
		}
	case u.ProcessFunc != nil && u.SourceFunc == nil && u.SinkFunc == nil:
		if u.Input != 0 && u.Output != 0 {
			return nil
		}
	case u.SinkFunc != nil && u.SourceFunc == nil && u.ProcessFunc == nil:
		if u.Input != 0 && u.Output == 0 {
			return nil
		}
	}
	return ErrInvalidUnit
}

func (u Unit) hasPort(name string) bool {
	switch name {
	case InputPort:
		return u.Input != 0
	case OutputPort:
		return u.Output != 0
	}
	return false
}
