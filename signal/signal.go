// Package signal defines the sample buffers that flow between stream
// ports of a running flowgraph.
package signal

import (
	"fmt"
	"time"
)

// Kind is the sample type carried by a stream port.
type Kind int

const (
	// Complex is a stream of I/Q samples.
	Complex Kind = iota + 1
	// Real is a stream of real-valued samples.
	Real
)

func (k Kind) String() string {
	switch k {
	case Complex:
		return "complex"
	case Real:
		return "real"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type (
	// Signal is a buffer of samples of a certain kind.
	Signal interface {
		Kind() Kind
		Len() int
	}

	// ComplexBuffer is a buffer of I/Q samples.
	ComplexBuffer []complex64

	// RealBuffer is a buffer of real samples.
	RealBuffer []float32
)

// Kind returns Complex.
func (ComplexBuffer) Kind() Kind { return Complex }

// Len returns number of samples.
func (b ComplexBuffer) Len() int { return len(b) }

// Kind returns Real.
func (RealBuffer) Kind() Kind { return Real }

// Len returns number of samples.
func (b RealBuffer) Len() int { return len(b) }

// Alloc returns an empty buffer of the kind with provided length.
func (k Kind) Alloc(length int) Signal {
	switch k {
	case Complex:
		return make(ComplexBuffer, length)
	case Real:
		return make(RealBuffer, length)
	}
	panic(fmt.Sprintf("alloc signal of unknown %v", k))
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// Slice returns the first n samples of s.
func Slice(s Signal, n int) Signal {
	switch v := s.(type) {
	case ComplexBuffer:
		return v[:n]
	case RealBuffer:
		return v[:n]
	}
	panic(fmt.Sprintf("slice signal of unknown type %T", s))
}
