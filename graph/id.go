package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when id cannot be parsed.
var ErrInvalidID = errors.New("invalid id")

type (
	// handle is an index of arena slot with its generation. Zero handle
	// is never valid.
	handle struct {
		index      uint32
		generation uint32
	}

	// NodeID identifies a node.
	NodeID struct{ handle }

	// InputID identifies an input port of a node.
	InputID struct{ handle }

	// OutputID identifies an output port of a node.
	OutputID struct{ handle }
)

func (h handle) String() string {
	return fmt.Sprintf("%dv%d", h.index, h.generation)
}

// IsZero returns true for zero value handle.
func (h handle) IsZero() bool {
	return h.generation == 0
}

// MarshalText implements encoding.TextMarshaler.
func (h handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func parseHandle(s string) (handle, error) {
	i := strings.IndexByte(s, 'v')
	if i < 0 {
		return handle{}, fmt.Errorf("%q: %w", s, ErrInvalidID)
	}
	index, err := strconv.ParseUint(s[:i], 10, 32)
	if err != nil {
		return handle{}, fmt.Errorf("%q: %w", s, ErrInvalidID)
	}
	generation, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil || generation == 0 {
		return handle{}, fmt.Errorf("%q: %w", s, ErrInvalidID)
	}
	return handle{index: uint32(index), generation: uint32(generation)}, nil
}

// ParseNodeID parses node id from its string representation.
func ParseNodeID(s string) (NodeID, error) {
	h, err := parseHandle(s)
	return NodeID{h}, err
}

// ParseInputID parses input id from its string representation.
func ParseInputID(s string) (InputID, error) {
	h, err := parseHandle(s)
	return InputID{h}, err
}

// ParseOutputID parses output id from its string representation.
func ParseOutputID(s string) (OutputID, error) {
	h, err := parseHandle(s)
	return OutputID{h}, err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(text []byte) (err error) {
	*id, err = ParseNodeID(string(text))
	return
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *InputID) UnmarshalText(text []byte) (err error) {
	*id, err = ParseInputID(string(text))
	return
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *OutputID) UnmarshalText(text []byte) (err error) {
	*id, err = ParseOutputID(string(text))
	return
}
