package graph_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/graph"
)

func TestAddNode(t *testing.T) {
	g := graph.New()
	id := g.AddNode(block.SoapySDR)
	n, ok := g.Node(id)
	assert.True(t, ok)
	assert.Equal(t, block.SoapySDR, n.Kind)
	assert.Equal(t, id, n.ID)
	assert.Equal(t, 2, len(n.Inputs))
	assert.Equal(t, 1, len(n.Outputs))

	freq, err := g.NodeInput(id, "freq")
	assert.Nil(t, err)
	in, ok := g.Input(freq)
	assert.True(t, ok)
	assert.Equal(t, id, in.Node)
	assert.Equal(t, "freq", in.Name)
	assert.Equal(t, graph.ConstantScalar{Value: 90900000, Updatable: true}, in.Binding)

	gain, err := g.NodeInput(id, "gain")
	assert.Nil(t, err)
	in, _ = g.Input(gain)
	assert.Equal(t, graph.ConstantScalar{Value: 30}, in.Binding)

	out, err := g.NodeOutput(id, "out")
	assert.Nil(t, err)
	o, ok := g.Output(out)
	assert.True(t, ok)
	assert.Equal(t, graph.Output{ID: out, Node: id, Name: "out"}, o)

	_, err = g.NodeInput(id, "in")
	assert.True(t, errors.Is(err, graph.ErrUnknownPort))
	_, err = g.NodeOutput(id, "freq")
	assert.True(t, errors.Is(err, graph.ErrUnknownPort))

	// stream inputs are unbound
	shift := g.AddNode(block.Shift)
	sin, err := g.NodeInput(shift, "in")
	assert.Nil(t, err)
	in, _ = g.Input(sin)
	assert.Nil(t, in.Binding)
	assert.Equal(t, 2, g.Len())
}

func TestRemoveNode(t *testing.T) {
	g := graph.New()
	src := g.AddNode(block.SoapySDR)
	dst := g.AddNode(block.Shift)
	out, _ := g.NodeOutput(src, "out")
	in, _ := g.NodeInput(dst, "in")
	assert.Nil(t, g.Connect(out, in))
	assert.Equal(t, 1, len(g.Edges()))

	assert.Nil(t, g.RemoveNode(src))
	assert.Equal(t, 0, len(g.Edges()))
	i, _ := g.Input(in)
	assert.Nil(t, i.Binding)
	_, ok := g.Node(src)
	assert.False(t, ok)
	_, ok = g.Output(out)
	assert.False(t, ok)
	assert.True(t, errors.Is(g.RemoveNode(src), graph.ErrNotFound))

	// slot is reused with new generation, stale id doesn't alias
	reused := g.AddNode(block.FMDemodulator)
	assert.NotEqual(t, src, reused)
	_, ok = g.Node(src)
	assert.False(t, ok)
	n, ok := g.Node(reused)
	assert.True(t, ok)
	assert.Equal(t, block.FMDemodulator, n.Kind)
	assert.True(t, errors.Is(g.Connect(out, in), graph.ErrNotFound))

	// removing the destination drops its edges
	out, _ = g.NodeOutput(dst, "out")
	in, _ = g.NodeInput(reused, "in")
	assert.Nil(t, g.Connect(out, in))
	assert.Nil(t, g.RemoveNode(reused))
	assert.Equal(t, 0, len(g.Edges()))
}

func TestConnect(t *testing.T) {
	g := graph.New()
	src := g.AddNode(block.SoapySDR)
	dst := g.AddNode(block.Shift)
	out, _ := g.NodeOutput(src, "out")
	in, _ := g.NodeInput(dst, "in")

	assert.Nil(t, g.Connect(out, in))
	// duplicates are kept for the compiler to report
	assert.Nil(t, g.Connect(out, in))
	assert.Equal(t, []graph.Edge{{Source: out, Dest: in}, {Source: out, Dest: in}}, g.Edges())
	i, _ := g.Input(in)
	assert.Equal(t, graph.StreamConnection{Source: out}, i.Binding)

	assert.Nil(t, g.Disconnect(out, in))
	assert.Equal(t, 0, len(g.Edges()))
	i, _ = g.Input(in)
	assert.Nil(t, i.Binding)
	assert.True(t, errors.Is(g.Disconnect(out, in), graph.ErrNotFound))
	assert.True(t, errors.Is(g.Connect(graph.OutputID{}, in), graph.ErrNotFound))
	assert.True(t, errors.Is(g.Connect(out, graph.InputID{}), graph.ErrNotFound))
}

func TestScalars(t *testing.T) {
	g := graph.New()
	id := g.AddNode(block.SoapySDR)
	assert.Nil(t, g.SetScalar(id, "freq", 100000000))
	freq, _ := g.NodeInput(id, "freq")
	in, _ := g.Input(freq)
	assert.Equal(t, graph.ConstantScalar{Value: 100000000, Updatable: true}, in.Binding)

	assert.True(t, errors.Is(g.SetScalar(id, "volume", 1), graph.ErrUnknownPort))
	assert.True(t, errors.Is(g.SetScalar(graph.NodeID{}, "freq", 1), graph.ErrNotFound))

	assert.Nil(t, g.Bind(freq, nil))
	assert.True(t, errors.Is(g.SetScalar(id, "freq", 1), graph.ErrNotScalar))
	assert.True(t, errors.Is(g.Bind(graph.InputID{}, nil), graph.ErrNotFound))
}

func TestNodesOrder(t *testing.T) {
	g := graph.New()
	kinds := []block.Kind{block.SoapySDR, block.Shift, block.Resampler}
	for _, k := range kinds {
		g.AddNode(k)
	}
	for i, n := range g.Nodes() {
		assert.Equal(t, kinds[i], n.Kind)
	}
}

func TestIDs(t *testing.T) {
	g := graph.New()
	id := g.AddNode(block.Shift)
	assert.Equal(t, "0v1", id.String())
	assert.False(t, id.IsZero())
	assert.True(t, graph.NodeID{}.IsZero())

	parsed, err := graph.ParseNodeID(id.String())
	assert.Nil(t, err)
	assert.Equal(t, id, parsed)

	for _, s := range []string{"", "0", "v1", "0v0", "-1v1", "1vx"} {
		_, err := graph.ParseNodeID(s)
		assert.True(t, errors.Is(err, graph.ErrInvalidID), s)
	}

	out, _ := g.NodeOutput(id, "out")
	b, err := json.Marshal(struct {
		Output graph.OutputID `json:"output"`
	}{out})
	assert.Nil(t, err)
	assert.Equal(t, `{"output":"0v1"}`, string(b))

	var decoded struct {
		Node graph.NodeID `json:"node"`
	}
	assert.Nil(t, json.Unmarshal([]byte(`{"node":"3v2"}`), &decoded))
	assert.Equal(t, "3v2", decoded.Node.String())

	in, _ := g.NodeInput(id, "in")
	pin, err := graph.ParseInputID(in.String())
	assert.Nil(t, err)
	assert.Equal(t, in, pin)
	pout, err := graph.ParseOutputID(out.String())
	assert.Nil(t, err)
	assert.Equal(t, out, pout)
}
