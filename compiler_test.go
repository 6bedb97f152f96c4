package esdr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pipelined/esdr"
	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// chain is the FM receiver graph.
type chain struct {
	source, shift, resamp1, demod, resamp2, sink graph.NodeID
}

func (c chain) nodes() []graph.NodeID {
	return []graph.NodeID{c.source, c.shift, c.resamp1, c.demod, c.resamp2, c.sink}
}

func fmChain(t *testing.T, g *graph.Graph) chain {
	t.Helper()
	c := chain{
		source:  g.AddNode(block.SoapySDR),
		shift:   g.AddNode(block.Shift),
		resamp1: g.AddNode(block.Resampler),
		demod:   g.AddNode(block.FMDemodulator),
		resamp2: g.AddNode(block.FilterResampler),
		sink:    g.AddNode(block.AudioOutput),
	}
	nodes := c.nodes()
	for i := 1; i < len(nodes); i++ {
		connect(t, g, nodes[i-1], nodes[i])
	}
	return c
}

func connect(t *testing.T, g *graph.Graph, src, dst graph.NodeID) {
	t.Helper()
	out, err := g.NodeOutput(src, engine.OutputPort)
	assert.Nil(t, err)
	in, err := g.NodeInput(dst, engine.InputPort)
	assert.Nil(t, err)
	assert.Nil(t, g.Connect(out, in))
}

func mockCompiler(e *mock.Engine, options ...esdr.Option) *esdr.Compiler {
	options = append(options, esdr.WithEngine(func() esdr.Engine { return e }))
	return esdr.NewCompiler(block.DefaultEnv(), options...)
}

func TestCompileChain(t *testing.T) {
	g := graph.New()
	c := fmChain(t, g)
	e := mock.NewEngine()

	p, err := mockCompiler(e).CompileAndStart(context.Background(), g)
	require.NoError(t, err)
	defer p.Stop(context.Background())

	index := p.Index()
	assert.Equal(t, 6, index.Len())
	assert.Equal(t, 6, len(e.Blocks))
	assert.True(t, e.Started)

	// node to block mapping is a bijection
	seen := map[engine.BlockID]struct{}{}
	for _, n := range c.nodes() {
		b, ok := index.Block(n)
		assert.True(t, ok)
		node, ok := index.Node(b)
		assert.True(t, ok)
		assert.Equal(t, n, node)
		seen[b] = struct{}{}
	}
	assert.Equal(t, 6, len(seen))

	// every edge is exactly one connection
	nodes := c.nodes()
	expected := make([]mock.Connection, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		src, _ := index.Block(nodes[i-1])
		dst, _ := index.Block(nodes[i])
		expected = append(expected, mock.Connection{Src: src, SrcPort: "out", Dst: dst, DstPort: "in"})
	}
	assert.Equal(t, expected, e.Connections)

	assert.Equal(t, []esdr.Field{{Node: c.source, Name: "freq"}}, index.Fields())
	port, ok := index.Port(c.source, "freq")
	assert.True(t, ok)
	source, _ := index.Block(c.source)
	assert.Equal(t, source, port.Block)
	_, ok = index.Port(c.source, "gain")
	assert.False(t, ok)
	assert.Equal(t, "Soapy SDR", e.Blocks[source].Name)
}

func TestCompileUnconnectedInput(t *testing.T) {
	g := graph.New()
	shift := g.AddNode(block.Shift)
	resamp := g.AddNode(block.Resampler)
	connect(t, g, shift, resamp)

	e := mock.NewEngine()
	p, err := mockCompiler(e).CompileAndStart(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 2, len(e.Blocks))
	assert.Equal(t, 1, len(e.Connections))
	assert.Nil(t, p.Stop(context.Background()))

	// real engine idles the block until stop
	p, err = esdr.NewCompiler(block.DefaultEnv()).CompileAndStart(context.Background(), g)
	require.NoError(t, err)
	assert.Nil(t, p.Stop(context.Background()))
	assert.Equal(t, esdr.Stopped, p.State())
}

func TestCompileFanOut(t *testing.T) {
	g := graph.New()
	c := fmChain(t, g)
	rec := g.AddNode(block.WavRecorder)
	connect(t, g, c.resamp2, rec)

	e := mock.NewEngine()
	p, err := mockCompiler(e).CompileAndStart(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 7, len(e.Blocks))
	assert.Equal(t, 6, len(e.Connections))
	assert.Nil(t, p.Stop(context.Background()))
}

func TestCompileErrors(t *testing.T) {
	errEngine := errors.New("engine error")
	var tests = []struct {
		name     string
		graph    func(*testing.T, *graph.Graph) graph.NodeID
		hooks    mock.Hooks
		expected error
		port     string
		// engine resources are used before the failure
		registered bool
	}{
		{
			name: "unknown kind",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				fmChain(t, g)
				return g.AddNode(block.Kind(100))
			},
			expected: esdr.ErrUnknownBlockKind,
		},
		{
			name: "unbound scalar",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				c := fmChain(t, g)
				freq, err := g.NodeInput(c.source, "freq")
				assert.Nil(t, err)
				assert.Nil(t, g.Bind(freq, nil))
				return c.source
			},
			expected: esdr.ErrMissingRequiredInput,
			port:     "freq",
		},
		{
			name: "scalar bound to connection",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				c := fmChain(t, g)
				out, _ := g.NodeOutput(c.resamp2, "out")
				cutoff, _ := g.NodeInput(c.resamp2, "cutoff")
				assert.Nil(t, g.Bind(cutoff, graph.StreamConnection{Source: out}))
				return c.resamp2
			},
			expected: esdr.ErrPortTypeMismatch,
			port:     "cutoff",
		},
		{
			name: "edge into scalar",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				c := fmChain(t, g)
				out, _ := g.NodeOutput(c.demod, "out")
				cutoff, _ := g.NodeInput(c.resamp2, "cutoff")
				assert.Nil(t, g.Connect(out, cutoff))
				return c.resamp2
			},
			expected: esdr.ErrPortTypeMismatch,
			port:     "cutoff",
		},
		{
			name: "stream bound to constant",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				c := fmChain(t, g)
				in, _ := g.NodeInput(c.sink, "in")
				assert.Nil(t, g.Bind(in, graph.ConstantScalar{Value: 1}))
				return c.sink
			},
			expected: esdr.ErrPortTypeMismatch,
			port:     "in",
		},
		{
			name: "signal mismatch",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				demod := g.AddNode(block.FMDemodulator)
				shift := g.AddNode(block.Shift)
				connect(t, g, demod, shift)
				return shift
			},
			expected: esdr.ErrPortTypeMismatch,
			port:     "in",
		},
		{
			name: "duplicate connection",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				c := fmChain(t, g)
				connect(t, g, c.source, c.shift)
				return c.shift
			},
			expected: esdr.ErrDuplicateConnection,
			port:     "in",
		},
		{
			name: "fan in",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				c := fmChain(t, g)
				other := g.AddNode(block.WavSource)
				connect(t, g, other, c.shift)
				return c.shift
			},
			expected: esdr.ErrDuplicateConnection,
			port:     "in",
		},
		{
			name: "engine connect",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				return fmChain(t, g).resamp1
			},
			hooks: mock.Hooks{
				ErrorOnConnect: errEngine,
				ConnectFailsAt: 1,
			},
			expected:   esdr.ErrEngineConnectFailure,
			port:       "in",
			registered: true,
		},
		{
			name: "engine start",
			graph: func(t *testing.T, g *graph.Graph) graph.NodeID {
				fmChain(t, g)
				return graph.NodeID{}
			},
			hooks: mock.Hooks{
				ErrorOnStart: errEngine,
			},
			expected:   esdr.ErrEngineStart,
			registered: true,
		},
	}
	for _, c := range tests {
		t.Run(c.name, func(t *testing.T) {
			g := graph.New()
			node := c.graph(t, g)
			e := mock.NewEngine()
			e.Hooks = c.hooks

			p, err := mockCompiler(e).CompileAndStart(context.Background(), g)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, c.expected), "expected %v got %v", c.expected, err)
			var ce *esdr.CompileError
			assert.True(t, errors.As(err, &ce))
			assert.Equal(t, node, ce.Node)
			assert.Equal(t, c.port, ce.Port)
			if c.hooks.ErrorOnConnect != nil || c.hooks.ErrorOnStart != nil {
				assert.True(t, errors.Is(err, errEngine))
			}

			// no engine resources are left behind
			assert.Equal(t, 0, len(e.Blocks))
			assert.False(t, e.Started)
			if c.registered {
				assert.Equal(t, len(e.Added), len(e.Removed))
				assert.NotEqual(t, 0, len(e.Added))
			} else {
				assert.Equal(t, 0, len(e.Added))
			}
		})
	}
}

func TestCompilerEnv(t *testing.T) {
	env := block.DefaultEnv()
	env.FreqOffset = 1
	c := esdr.NewCompiler(env)
	assert.Equal(t, env.FreqOffset, c.Env().FreqOffset)
}
