package control

import (
	"sort"

	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/graph"
)

type (
	// KindView describes a block kind.
	KindView struct {
		Name  string     `json:"name"`
		Ports []PortView `json:"ports"`
	}

	// PortView describes a port of the block kind.
	PortView struct {
		Name      string  `json:"name"`
		Direction string  `json:"direction"`
		Kind      string  `json:"kind"`
		Signal    string  `json:"signal,omitempty"`
		Default   float64 `json:"default,omitempty"`
		Updatable bool    `json:"updatable,omitempty"`
	}

	// GraphView is the state of the session.
	GraphView struct {
		Nodes   []NodeView   `json:"nodes"`
		Edges   []graph.Edge `json:"edges"`
		Running bool         `json:"running"`
	}

	// NodeView is a node with its inputs.
	NodeView struct {
		ID      graph.NodeID              `json:"id"`
		Kind    block.Kind                `json:"kind"`
		Inputs  []InputView               `json:"inputs"`
		Outputs map[string]graph.OutputID `json:"outputs"`
	}

	// InputView is a node input with its binding.
	InputView struct {
		ID        graph.InputID   `json:"id"`
		Name      string          `json:"name"`
		Value     *float64        `json:"value,omitempty"`
		Updatable bool            `json:"updatable,omitempty"`
		Source    *graph.OutputID `json:"source,omitempty"`
	}

	// AddNodeRequest is the body of node creation.
	AddNodeRequest struct {
		Kind block.Kind `json:"kind"`
	}

	// NodeRef is the id of the created node.
	NodeRef struct {
		ID graph.NodeID `json:"id"`
	}

	// PortRef addresses the port by node and name.
	PortRef struct {
		Node graph.NodeID `json:"node"`
		Port string       `json:"port"`
	}

	// ConnectRequest is the body of edge creation.
	ConnectRequest struct {
		Source PortRef `json:"source"`
		Dest   PortRef `json:"dest"`
	}

	// ScalarRequest is the body of scalar update.
	ScalarRequest struct {
		Value float64 `json:"value"`
	}

	// ErrorResponse is returned with failed requests.
	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func kindView(k block.Kind) KindView {
	ports := k.Ports()
	v := KindView{
		Name:  k.String(),
		Ports: make([]PortView, 0, len(ports)),
	}
	for _, p := range ports {
		pv := PortView{
			Name:      p.Name,
			Direction: p.Direction.String(),
			Kind:      p.Kind.String(),
			Default:   p.Default,
			Updatable: p.Updatable,
		}
		if p.Kind == block.Stream {
			pv.Signal = p.Signal.String()
		}
		v.Ports = append(v.Ports, pv)
	}
	return v
}

func graphView(g *graph.Graph) GraphView {
	nodes := g.Nodes()
	v := GraphView{
		Nodes: make([]NodeView, 0, len(nodes)),
		Edges: g.Edges(),
	}
	for _, n := range nodes {
		nv := NodeView{
			ID:      n.ID,
			Kind:    n.Kind,
			Inputs:  make([]InputView, 0, len(n.Inputs)),
			Outputs: n.Outputs,
		}
		for name, id := range n.Inputs {
			in, _ := g.Input(id)
			iv := InputView{ID: id, Name: name}
			switch b := in.Binding.(type) {
			case graph.ConstantScalar:
				value := b.Value
				iv.Value = &value
				iv.Updatable = b.Updatable
			case graph.StreamConnection:
				source := b.Source
				iv.Source = &source
			}
			nv.Inputs = append(nv.Inputs, iv)
		}
		sort.Slice(nv.Inputs, func(i, j int) bool {
			return nv.Inputs[i].Name < nv.Inputs[j].Name
		})
		v.Nodes = append(v.Nodes, nv)
	}
	return v
}
