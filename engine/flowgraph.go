package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/esdr/log"
	"github.com/pipelined/esdr/metric"
	"github.com/pipelined/esdr/mutable"
	"github.com/pipelined/esdr/signal"
)

// DefaultBufferSize is the number of samples produced by source blocks
// per iteration.
const DefaultBufferSize = 8192

type (
	// Flowgraph is an assembly of blocks and stream connections. It can
	// be started once.
	Flowgraph struct {
		logger     logrus.FieldLogger
		metrics    *metric.Metrics
		bufferSize int
		linkSize   int
		nextID     BlockID
		units      map[BlockID]Unit
		links      []link
		started    bool
	}

	// link is a stream connection between output of src and input of
	// dst.
	link struct {
		src BlockID
		dst BlockID
	}

	// Option allows to configure the flowgraph.
	Option func(*Flowgraph)
)

// WithLogger sets the logger of the flowgraph.
func WithLogger(l logrus.FieldLogger) Option {
	return func(fg *Flowgraph) {
		fg.logger = l
	}
}

// WithMetrics enables block metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(fg *Flowgraph) {
		fg.metrics = m
	}
}

// WithBufferSize sets number of samples produced by sources per
// iteration.
func WithBufferSize(size int) Option {
	return func(fg *Flowgraph) {
		fg.bufferSize = size
	}
}

// WithLinkSize sets number of buffers queued between two blocks.
func WithLinkSize(size int) Option {
	return func(fg *Flowgraph) {
		fg.linkSize = size
	}
}

// New returns an empty flowgraph.
func New(options ...Option) *Flowgraph {
	fg := Flowgraph{
		logger:     log.Silent(),
		bufferSize: DefaultBufferSize,
		linkSize:   1,
		units:      make(map[BlockID]Unit),
	}
	for _, option := range options {
		option(&fg)
	}
	return &fg
}

// AddBlock registers the unit and returns its id. Ids are never reused
// within a flowgraph.
func (fg *Flowgraph) AddBlock(u Unit) BlockID {
	id := fg.nextID
	fg.nextID++
	fg.units[id] = u
	fg.logger.WithFields(logrus.Fields{"block": id, "name": u.Name}).Debug("block added")
	return id
}

// RemoveBlock removes the block and all its stream connections.
func (fg *Flowgraph) RemoveBlock(id BlockID) error {
	if fg.started {
		return ErrStarted
	}
	if _, ok := fg.units[id]; !ok {
		return fmt.Errorf("remove block %d: %w", id, ErrUnknownBlock)
	}
	delete(fg.units, id)
	links := fg.links[:0]
	for _, l := range fg.links {
		if l.src != id && l.dst != id {
			links = append(links, l)
		}
	}
	fg.links = links
	fg.logger.WithField("block", id).Debug("block removed")
	return nil
}

// Len returns number of registered blocks.
func (fg *Flowgraph) Len() int {
	return len(fg.units)
}

// ConnectStream connects output port of src block to input port of dst
// block. Output can be connected to multiple inputs, input accepts a
// single connection.
func (fg *Flowgraph) ConnectStream(src BlockID, srcPort string, dst BlockID, dstPort string) error {
	if fg.started {
		return ErrStarted
	}
	su, ok := fg.units[src]
	if !ok {
		return fmt.Errorf("connect source %d: %w", src, ErrUnknownBlock)
	}
	du, ok := fg.units[dst]
	if !ok {
		return fmt.Errorf("connect destination %d: %w", dst, ErrUnknownBlock)
	}
	if srcPort != OutputPort || !su.hasPort(srcPort) {
		return fmt.Errorf("connect %s.%s: %w", su.Name, srcPort, ErrUnknownPort)
	}
	if dstPort != InputPort || !du.hasPort(dstPort) {
		return fmt.Errorf("connect %s.%s: %w", du.Name, dstPort, ErrUnknownPort)
	}
	if su.Output != du.Input {
		return fmt.Errorf("connect %s(%v) to %s(%v): %w", su.Name, su.Output, du.Name, du.Input, ErrSignalMismatch)
	}
	for _, l := range fg.links {
		if l.dst == dst {
			return fmt.Errorf("connect %s.%s: %w", du.Name, dstPort, ErrAlreadyConnected)
		}
	}
	fg.links = append(fg.links, link{src: src, dst: dst})
	fg.logger.WithFields(logrus.Fields{"src": src, "dst": dst}).Debug("stream connected")
	return nil
}

// Start starts all blocks of the flowgraph. Returned task and handle
// share the same run.
func (fg *Flowgraph) Start(ctx context.Context) (Task, Handle, error) {
	if fg.started {
		return nil, nil, ErrStarted
	}
	for id, u := range fg.units {
		if err := u.validate(); err != nil {
			return nil, nil, fmt.Errorf("block %d %s: %w", id, u.Name, err)
		}
	}
	fg.started = true

	inputs := make(map[BlockID]chan signal.Signal)
	outputs := make(map[BlockID]sender)
	for _, l := range fg.links {
		c := make(chan signal.Signal, fg.linkSize)
		inputs[l.dst] = c
		outputs[l.src] = append(outputs[l.src], c)
	}

	ctx, cancelFn := context.WithCancel(ctx)
	r := newRun(ctx, cancelFn, fg.logger)
	pusher := mutable.NewPusher()
	for id, u := range fg.units {
		mc := mutable.NewDestination()
		b := block{
			name:      u.Name,
			Context:   mutable.Mutable(),
			mutations: mc,
			startFn:   u.StartFunc,
			flushFn:   u.FlushFunc,
			meter:     fg.metrics.Meter(u.Name),
			sender:    outputs[id],
		}
		pusher.AddDestination(b.Context, mc)
		r.blocks[id] = execution{
			Context:  b.Context,
			messages: u.Messages,
			executor: newExecutor(u, b, inputs[id], fg.bufferSize),
		}
	}
	r.start(pusher)
	fg.logger.WithFields(logrus.Fields{"blocks": len(fg.units), "links": len(fg.links)}).Debug("flowgraph started")
	return r, r, nil
}

func newExecutor(u Unit, b block, input <-chan signal.Signal, bufferSize int) executor {
	switch {
	case u.SourceFunc != nil:
		return &source{
			block:      b,
			SourceFunc: u.SourceFunc,
			kind:       u.Output,
			bufferSize: bufferSize,
		}
	case u.ProcessFunc != nil:
		return &processor{
			block:       b,
			ProcessFunc: u.ProcessFunc,
			input:       input,
		}
	default:
		return &sink{
			block:    b,
			SinkFunc: u.SinkFunc,
			input:    input,
		}
	}
}
