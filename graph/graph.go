// Package graph is the editable model of a flowgraph. The model can be
// inconsistent: it doesn't check port types or duplicate connections,
// that is done when the graph is compiled.
package graph

import (
	"errors"
	"fmt"

	"github.com/pipelined/esdr/block"
)

var (
	// ErrNotFound is returned when id doesn't address an existing
	// element of the graph.
	ErrNotFound = errors.New("not found")
	// ErrUnknownPort is returned when node has no port with provided
	// name.
	ErrUnknownPort = errors.New("unknown port")
	// ErrNotScalar is returned when scalar value is set to an input
	// that is not bound to a constant.
	ErrNotScalar = errors.New("input is not a constant scalar")
)

type (
	// Binding is the value source of an input port. It's either
	// ConstantScalar or StreamConnection.
	Binding interface {
		binding()
	}

	// ConstantScalar binds input to a constant value.
	ConstantScalar struct {
		Value     float64
		Updatable bool
	}

	// StreamConnection binds input to an output of another node.
	StreamConnection struct {
		Source OutputID
	}

	// Node is a block placed in the graph.
	Node struct {
		ID      NodeID
		Kind    block.Kind
		Inputs  map[string]InputID
		Outputs map[string]OutputID
	}

	// Input is an input port of the node.
	Input struct {
		ID      InputID
		Node    NodeID
		Name    string
		Binding Binding
	}

	// Output is an output port of the node.
	Output struct {
		ID   OutputID
		Node NodeID
		Name string
	}

	// Edge is a stream connection between two ports.
	Edge struct {
		Source OutputID
		Dest   InputID
	}

	// Graph is a set of nodes and edges between their ports.
	Graph struct {
		nodes   arena[Node]
		inputs  arena[Input]
		outputs arena[Output]
		edges   []Edge
	}
)

func (ConstantScalar) binding()   {}
func (StreamConnection) binding() {}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode adds the node of the kind. Scalar inputs are bound to their
// default values, stream inputs are left unbound.
func (g *Graph) AddNode(kind block.Kind) NodeID {
	h := g.nodes.insert(func(h handle) Node {
		return Node{
			ID:      NodeID{h},
			Kind:    kind,
			Inputs:  make(map[string]InputID),
			Outputs: make(map[string]OutputID),
		}
	})
	id := NodeID{h}
	n, _ := g.nodes.get(h)
	for _, p := range kind.Ports() {
		p := p
		if p.Direction == block.Output {
			oh := g.outputs.insert(func(oh handle) Output {
				return Output{ID: OutputID{oh}, Node: id, Name: p.Name}
			})
			n.Outputs[p.Name] = OutputID{oh}
			continue
		}
		var b Binding
		if p.Kind == block.Scalar {
			b = ConstantScalar{Value: p.Default, Updatable: p.Updatable}
		}
		ih := g.inputs.insert(func(ih handle) Input {
			return Input{ID: InputID{ih}, Node: id, Name: p.Name, Binding: b}
		})
		n.Inputs[p.Name] = InputID{ih}
	}
	return id
}

// RemoveNode removes the node, its ports and all edges connected to
// them. Inputs bound to removed outputs become unbound.
func (g *Graph) RemoveNode(id NodeID) error {
	n, ok := g.nodes.get(id.handle)
	if !ok {
		return fmt.Errorf("node %v: %w", id, ErrNotFound)
	}
	removed := make(map[OutputID]struct{}, len(n.Outputs))
	for _, o := range n.Outputs {
		removed[o] = struct{}{}
		g.outputs.remove(o.handle)
	}
	inputs := make(map[InputID]struct{}, len(n.Inputs))
	for _, i := range n.Inputs {
		inputs[i] = struct{}{}
		g.inputs.remove(i.handle)
	}
	g.nodes.remove(id.handle)

	edges := g.edges[:0]
	for _, e := range g.edges {
		_, src := removed[e.Source]
		_, dst := inputs[e.Dest]
		if !src && !dst {
			edges = append(edges, e)
		}
	}
	g.edges = edges
	g.inputs.each(func(i *Input) {
		if c, ok := i.Binding.(StreamConnection); ok {
			if _, ok := removed[c.Source]; ok {
				i.Binding = nil
			}
		}
	})
	return nil
}

// Len returns number of nodes.
func (g *Graph) Len() int {
	return g.nodes.len
}

// Node returns the node with provided id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes.get(id.handle)
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in stable order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, g.nodes.len)
	g.nodes.each(func(n *Node) {
		nodes = append(nodes, *n)
	})
	return nodes
}

// Input returns the input with provided id.
func (g *Graph) Input(id InputID) (Input, bool) {
	i, ok := g.inputs.get(id.handle)
	if !ok {
		return Input{}, false
	}
	return *i, true
}

// Output returns the output with provided id.
func (g *Graph) Output(id OutputID) (Output, bool) {
	o, ok := g.outputs.get(id.handle)
	if !ok {
		return Output{}, false
	}
	return *o, true
}

// NodeInput returns id of the node input with provided name.
func (g *Graph) NodeInput(id NodeID, name string) (InputID, error) {
	n, ok := g.nodes.get(id.handle)
	if !ok {
		return InputID{}, fmt.Errorf("node %v: %w", id, ErrNotFound)
	}
	i, ok := n.Inputs[name]
	if !ok {
		return InputID{}, fmt.Errorf("%v input %q: %w", n.Kind, name, ErrUnknownPort)
	}
	return i, nil
}

// NodeOutput returns id of the node output with provided name.
func (g *Graph) NodeOutput(id NodeID, name string) (OutputID, error) {
	n, ok := g.nodes.get(id.handle)
	if !ok {
		return OutputID{}, fmt.Errorf("node %v: %w", id, ErrNotFound)
	}
	o, ok := n.Outputs[name]
	if !ok {
		return OutputID{}, fmt.Errorf("%v output %q: %w", n.Kind, name, ErrUnknownPort)
	}
	return o, nil
}

// Connect adds an edge from src output to dst input and binds the input
// to the output.
func (g *Graph) Connect(src OutputID, dst InputID) error {
	if _, ok := g.outputs.get(src.handle); !ok {
		return fmt.Errorf("output %v: %w", src, ErrNotFound)
	}
	i, ok := g.inputs.get(dst.handle)
	if !ok {
		return fmt.Errorf("input %v: %w", dst, ErrNotFound)
	}
	g.edges = append(g.edges, Edge{Source: src, Dest: dst})
	i.Binding = StreamConnection{Source: src}
	return nil
}

// Disconnect removes all edges from src output to dst input. Input
// bound to the src becomes unbound.
func (g *Graph) Disconnect(src OutputID, dst InputID) error {
	i, ok := g.inputs.get(dst.handle)
	if !ok {
		return fmt.Errorf("input %v: %w", dst, ErrNotFound)
	}
	edges := g.edges[:0]
	found := false
	for _, e := range g.edges {
		if e.Source == src && e.Dest == dst {
			found = true
			continue
		}
		edges = append(edges, e)
	}
	g.edges = edges
	if !found {
		return fmt.Errorf("edge %v -> %v: %w", src, dst, ErrNotFound)
	}
	if c, ok := i.Binding.(StreamConnection); ok && c.Source == src {
		i.Binding = nil
	}
	return nil
}

// Edges returns all edges in order they were added.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// Bind sets the binding of the input as is. Nil binding unbinds the
// input.
func (g *Graph) Bind(id InputID, b Binding) error {
	i, ok := g.inputs.get(id.handle)
	if !ok {
		return fmt.Errorf("input %v: %w", id, ErrNotFound)
	}
	i.Binding = b
	return nil
}

// SetScalar sets the value of the constant scalar input of the node.
func (g *Graph) SetScalar(id NodeID, field string, value float64) error {
	iid, err := g.NodeInput(id, field)
	if err != nil {
		return err
	}
	i, _ := g.inputs.get(iid.handle)
	c, ok := i.Binding.(ConstantScalar)
	if !ok {
		return fmt.Errorf("%v input %q: %w", id, field, ErrNotScalar)
	}
	c.Value = value
	i.Binding = c
	return nil
}
