package block

import (
	"fmt"

	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/signal"
)

type (
	// Direction of the port.
	Direction int

	// PortKind defines how the input is satisfied. Stream inputs accept
	// only connections, scalar inputs accept only constants.
	PortKind int

	// Port describes a single port of the block kind.
	Port struct {
		Name      string
		Direction Direction
		Kind      PortKind
		// Signal is the sample type of stream ports.
		Signal signal.Kind
		// Default and Updatable are defined for scalar ports.
		Default   float64
		Updatable bool
	}

	// Scalars are resolved values of scalar inputs.
	Scalars map[string]float64
)

const (
	// Input port.
	Input Direction = iota + 1
	// Output port.
	Output
)

const (
	// Stream port carries samples between blocks.
	Stream PortKind = iota + 1
	// Scalar port is a configuration value.
	Scalar
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (k PortKind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Scalar:
		return "scalar"
	}
	return fmt.Sprintf("PortKind(%d)", int(k))
}

func inputStream(s signal.Kind) Port {
	return Port{
		Name:      engine.InputPort,
		Direction: Input,
		Kind:      Stream,
		Signal:    s,
	}
}

func outputStream(s signal.Kind) Port {
	return Port{
		Name:      engine.OutputPort,
		Direction: Output,
		Kind:      Stream,
		Signal:    s,
	}
}

func scalar(name string, value float64, updatable bool) Port {
	return Port{
		Name:      name,
		Direction: Input,
		Kind:      Scalar,
		Default:   value,
		Updatable: updatable,
	}
}

// get returns the value of the scalar. Missing value is a programming
// error.
func (s Scalars) get(k Kind, name string) float64 {
	v, ok := s[name]
	if !ok {
		panic(fmt.Sprintf("%v: missing scalar %q", k, name))
	}
	return v
}
