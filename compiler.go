package esdr

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/log"
	"github.com/pipelined/esdr/metric"
)

const defaultRequestBuffer = 16

type (
	// Engine assembles and starts flowgraphs.
	Engine interface {
		AddBlock(engine.Unit) engine.BlockID
		RemoveBlock(engine.BlockID) error
		ConnectStream(src engine.BlockID, srcPort string, dst engine.BlockID, dstPort string) error
		Start(context.Context) (engine.Task, engine.Handle, error)
	}

	// Compiler compiles graphs into running pipelines. Every compilation
	// uses a new engine.
	Compiler struct {
		env           block.Env
		newEngine     func() Engine
		instantiate   func(block.Kind, block.Env, block.Scalars) engine.Unit
		logger        logrus.FieldLogger
		metrics       *metric.Metrics
		requestBuffer int
	}

	// Option configures the compiler.
	Option func(*Compiler)

	// nodePlan is a validated node ready to be instantiated.
	nodePlan struct {
		node      graph.NodeID
		kind      block.Kind
		scalars   block.Scalars
		updatable []string
	}

	// edgePlan is a validated edge.
	edgePlan struct {
		src     graph.NodeID
		srcPort string
		dst     graph.NodeID
		dstPort string
	}
)

// WithEngine sets the engine constructor.
func WithEngine(fn func() Engine) Option {
	return func(c *Compiler) {
		c.newEngine = fn
	}
}

// WithLogger sets the logger of compiler and its pipelines.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// WithMetrics enables metrics of compiler, pipelines and engine blocks.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// WithRequestBuffer sets the number of live updates that can be queued
// in the pipeline.
func WithRequestBuffer(size int) Option {
	return func(c *Compiler) {
		c.requestBuffer = size
	}
}

// NewCompiler returns a compiler for provided environment.
func NewCompiler(env block.Env, options ...Option) *Compiler {
	c := Compiler{
		env:           env,
		logger:        log.Silent(),
		requestBuffer: defaultRequestBuffer,
		instantiate:   block.Kind.Instantiate,
	}
	for _, option := range options {
		option(&c)
	}
	if c.newEngine == nil {
		c.newEngine = func() Engine {
			return engine.New(
				engine.WithLogger(c.logger),
				engine.WithMetrics(c.metrics),
				engine.WithBufferSize(c.env.BufferSize),
			)
		}
	}
	return &c
}

// Env returns the environment of the compiler.
func (c *Compiler) Env() block.Env {
	return c.env
}

// CompileAndStart compiles the graph and starts the pipeline. The graph
// is not retained. Context bounds the compilation only, values are
// passed to the engine.
func (c *Compiler) CompileAndStart(ctx context.Context, g *graph.Graph) (*Pipeline, error) {
	p, err := c.compileAndStart(ctx, g)
	c.metrics.Compiled(err)
	if err != nil {
		c.logger.WithError(err).Warn("compilation failed")
		return nil, err
	}
	c.metrics.Started()
	return p, nil
}

func (c *Compiler) compileAndStart(ctx context.Context, g *graph.Graph) (*Pipeline, error) {
	nodes, edges, err := validate(g)
	if err != nil {
		return nil, err
	}

	e := c.newEngine()
	reg := registration{engine: e, logger: c.logger}
	defer reg.release()

	index := newIndex()
	for _, n := range nodes {
		unit := c.instantiate(n.kind, c.env, n.scalars)
		id := reg.add(unit)
		index.addBlock(n.node, id)
		for _, field := range n.updatable {
			port, ok := unit.MessagePortID(field)
			if !ok {
				return nil, &CompileError{Err: ErrMessagePortResolution, Node: n.node, Port: field}
			}
			index.addPort(Field{Node: n.node, Name: field}, Port{
				Block:   id,
				ID:      port,
				mapping: n.kind.Mapping(c.env, field),
			})
		}
	}

	for _, edge := range edges {
		src, dst := index.blocks[edge.src], index.blocks[edge.dst]
		if err := e.ConnectStream(src, edge.srcPort, dst, edge.dstPort); err != nil {
			return nil, &CompileError{Err: ErrEngineConnectFailure, Node: edge.dst, Port: edge.dstPort, Cause: err}
		}
	}

	// pipeline outlives the compile call, it's stopped with Stop
	task, handle, err := e.Start(context.WithoutCancel(ctx))
	if err != nil {
		return nil, &CompileError{Err: ErrEngineStart, Cause: err}
	}
	reg.commit()
	c.logger.WithFields(logrus.Fields{
		"blocks":      index.Len(),
		"connections": len(edges),
	}).Debugf("pipeline started: %v", index)
	return newPipeline(index, task, handle, c.logger, c.metrics, c.requestBuffer), nil
}

// validate checks the graph and resolves scalar inputs. No engine
// resources are used.
func validate(g *graph.Graph) ([]nodePlan, []edgePlan, error) {
	nodes := g.Nodes()
	plans := make([]nodePlan, 0, len(nodes))
	for _, n := range nodes {
		if !n.Kind.Valid() {
			return nil, nil, &CompileError{Err: ErrUnknownBlockKind, Node: n.ID, Cause: fmt.Errorf("%v", n.Kind)}
		}
		plan := nodePlan{
			node:    n.ID,
			kind:    n.Kind,
			scalars: block.Scalars{},
		}
		for _, p := range n.Kind.Ports() {
			if p.Direction != block.Input {
				continue
			}
			in, ok := input(g, n, p.Name)
			if !ok {
				return nil, nil, &CompileError{Err: ErrMissingRequiredInput, Node: n.ID, Port: p.Name}
			}
			switch b := in.Binding.(type) {
			case graph.ConstantScalar:
				if p.Kind != block.Scalar {
					return nil, nil, &CompileError{Err: ErrPortTypeMismatch, Node: n.ID, Port: p.Name,
						Cause: fmt.Errorf("constant bound to %v input", p.Kind)}
				}
				plan.scalars[p.Name] = b.Value
				if p.Updatable {
					plan.updatable = append(plan.updatable, p.Name)
				}
			case graph.StreamConnection:
				if p.Kind != block.Stream {
					return nil, nil, &CompileError{Err: ErrPortTypeMismatch, Node: n.ID, Port: p.Name,
						Cause: fmt.Errorf("connection bound to %v input", p.Kind)}
				}
			case nil:
				// unconnected stream input is accepted
				if p.Kind == block.Scalar {
					return nil, nil, &CompileError{Err: ErrMissingRequiredInput, Node: n.ID, Port: p.Name}
				}
			}
		}
		plans = append(plans, plan)
	}

	edges := g.Edges()
	edgePlans := make([]edgePlan, 0, len(edges))
	connected := make(map[graph.InputID]struct{}, len(edges))
	for _, e := range edges {
		src, ok := g.Output(e.Source)
		if !ok {
			return nil, nil, &CompileError{Err: ErrEngineConnectFailure, Cause: fmt.Errorf("output %v: %w", e.Source, graph.ErrNotFound)}
		}
		dst, ok := g.Input(e.Dest)
		if !ok {
			return nil, nil, &CompileError{Err: ErrEngineConnectFailure, Cause: fmt.Errorf("input %v: %w", e.Dest, graph.ErrNotFound)}
		}
		srcNode, _ := g.Node(src.Node)
		dstNode, _ := g.Node(dst.Node)
		srcPort, _ := srcNode.Kind.Port(src.Name)
		dstPort, _ := dstNode.Kind.Port(dst.Name)
		if srcPort.Kind != block.Stream || dstPort.Kind != block.Stream {
			return nil, nil, &CompileError{Err: ErrPortTypeMismatch, Node: dst.Node, Port: dst.Name,
				Cause: fmt.Errorf("edge between %v and %v ports", srcPort.Kind, dstPort.Kind)}
		}
		if srcPort.Signal != dstPort.Signal {
			return nil, nil, &CompileError{Err: ErrPortTypeMismatch, Node: dst.Node, Port: dst.Name,
				Cause: fmt.Errorf("%v %v connected to %v %v", srcNode.Kind, srcPort.Signal, dstNode.Kind, dstPort.Signal)}
		}
		if _, ok := connected[e.Dest]; ok {
			return nil, nil, &CompileError{Err: ErrDuplicateConnection, Node: dst.Node, Port: dst.Name}
		}
		connected[e.Dest] = struct{}{}
		edgePlans = append(edgePlans, edgePlan{
			src:     src.Node,
			srcPort: src.Name,
			dst:     dst.Node,
			dstPort: dst.Name,
		})
	}
	return plans, edgePlans, nil
}

// input returns the named input of the node.
func input(g *graph.Graph, n graph.Node, name string) (graph.Input, bool) {
	id, ok := n.Inputs[name]
	if !ok {
		return graph.Input{}, false
	}
	return g.Input(id)
}

// registration tracks blocks added to the engine. Blocks are removed on
// release unless the registration was committed.
type registration struct {
	engine    Engine
	logger    logrus.FieldLogger
	blocks    []engine.BlockID
	committed bool
}

func (r *registration) add(u engine.Unit) engine.BlockID {
	id := r.engine.AddBlock(u)
	r.blocks = append(r.blocks, id)
	return id
}

func (r *registration) commit() {
	r.committed = true
}

func (r *registration) release() {
	if r.committed {
		return
	}
	for i := len(r.blocks) - 1; i >= 0; i-- {
		if err := r.engine.RemoveBlock(r.blocks[i]); err != nil {
			r.logger.WithError(err).WithField("block", r.blocks[i]).Error("failed to release block")
		}
	}
	r.blocks = nil
}
