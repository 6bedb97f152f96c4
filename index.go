package esdr

import (
	"sort"

	"github.com/davecgh/go-spew/spew"

	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/graph"
)

type (
	// Index maps graph identifiers to engine identifiers of a compiled
	// graph. It doesn't change after compilation.
	Index struct {
		blocks map[graph.NodeID]engine.BlockID
		nodes  map[engine.BlockID]graph.NodeID
		ports  map[Field]Port
	}

	// Field is a scalar input of the node.
	Field struct {
		Node graph.NodeID
		Name string
	}

	// Port is the message port of the updatable field.
	Port struct {
		Block engine.BlockID
		ID    engine.PortID
		// mapping is applied to the value before it's delivered.
		mapping func(float64) float64
	}
)

func newIndex() *Index {
	return &Index{
		blocks: make(map[graph.NodeID]engine.BlockID),
		nodes:  make(map[engine.BlockID]graph.NodeID),
		ports:  make(map[Field]Port),
	}
}

func (i *Index) addBlock(node graph.NodeID, block engine.BlockID) {
	i.blocks[node] = block
	i.nodes[block] = node
}

func (i *Index) addPort(f Field, p Port) {
	i.ports[f] = p
}

// Block returns engine block id of the node.
func (i *Index) Block(node graph.NodeID) (engine.BlockID, bool) {
	b, ok := i.blocks[node]
	return b, ok
}

// Node returns the node of engine block.
func (i *Index) Node(block engine.BlockID) (graph.NodeID, bool) {
	n, ok := i.nodes[block]
	return n, ok
}

// Port returns message port of the updatable field.
func (i *Index) Port(node graph.NodeID, field string) (Port, bool) {
	p, ok := i.ports[Field{Node: node, Name: field}]
	return p, ok
}

// Len returns number of blocks.
func (i *Index) Len() int {
	return len(i.blocks)
}

// String dumps the node to block mapping. It's only evaluated when the
// index is formatted.
func (i *Index) String() string {
	return spew.Sdump(i.blocks)
}

// Fields returns all updatable fields ordered by node and name.
func (i *Index) Fields() []Field {
	fields := make([]Field, 0, len(i.ports))
	for f := range i.ports {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(a, b int) bool {
		if fields[a].Node != fields[b].Node {
			return i.blocks[fields[a].Node] < i.blocks[fields[b].Node]
		}
		return fields[a].Name < fields[b].Name
	})
	return fields
}

// Map applies the pre-update mapping of the port.
func (p Port) Map(value float64) float64 {
	if p.mapping == nil {
		return value
	}
	return p.mapping(value)
}
