package engine

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownBlock is returned when block id is not registered.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrUnknownPort is returned when port is not declared by the block.
	ErrUnknownPort = errors.New("unknown port")
	// ErrSignalMismatch is returned when connected ports carry
	// different signal kinds.
	ErrSignalMismatch = errors.New("signal kind mismatch")
	// ErrAlreadyConnected is returned when input port already has a
	// connection.
	ErrAlreadyConnected = errors.New("input already connected")
	// ErrStarted is returned when flowgraph is modified or started
	// after it was started.
	ErrStarted = errors.New("flowgraph already started")
	// ErrInvalidUnit is returned when unit functions don't match its
	// stream ports.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrTerminated is returned when a call is made to a terminated
	// flowgraph or a block that is done.
	ErrTerminated = errors.New("flowgraph terminated")
)

// execErrors wraps errors that might occur when a block fails to
// execute and then to flush.
type execErrors []error

func (e execErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Unwrap returns wrapped errors.
func (e execErrors) Unwrap() []error {
	return e
}

// ret returns untyped nil if error is list is empty.
func (e execErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
