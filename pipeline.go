package esdr

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/metric"
)

// State of the pipeline.
type State int32

const (
	// Running pipeline accepts live updates.
	Running State = iota
	// Stopping pipeline is terminating the engine.
	Stopping
	// Stopped pipeline released all resources.
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type (
	// Pipeline is a running compiled graph. Live updates and stop are
	// delivered to the engine by a single control goroutine.
	Pipeline struct {
		id       xid.ID
		index    *Index
		task     engine.Task
		handle   engine.Handle
		logger   logrus.FieldLogger
		metrics  *metric.Metrics
		state    atomic.Int32
		requests chan request
		stopc    chan stopRequest
		cancelFn context.CancelFunc
		ctx      context.Context
		done     chan struct{}
	}

	// request is a live update.
	request struct {
		ctx   context.Context
		field Field
		port  Port
		value float64
		reply chan error
	}

	// stopRequest carries the context of the stop call.
	stopRequest struct {
		ctx   context.Context
		reply chan error
	}
)

func newPipeline(index *Index, task engine.Task, handle engine.Handle, logger logrus.FieldLogger, metrics *metric.Metrics, buffer int) *Pipeline {
	ctx, cancelFn := context.WithCancel(context.Background())
	p := Pipeline{
		id:       xid.New(),
		index:    index,
		task:     task,
		handle:   handle,
		metrics:  metrics,
		requests: make(chan request, buffer),
		stopc:    make(chan stopRequest, 1),
		ctx:      ctx,
		cancelFn: cancelFn,
		done:     make(chan struct{}),
	}
	p.logger = logger.WithField("pipeline", p.id)
	go p.loop()
	return &p
}

// ID returns unique id of the pipeline.
func (p *Pipeline) ID() xid.ID {
	return p.id
}

// Index returns the runtime index of the pipeline.
func (p *Pipeline) Index() *Index {
	return p.index
}

// State returns current state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Done is closed when the pipeline is stopped.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the engine finishes. Engine finishes on its own when
// all sources reach the end of stream or any block fails. Stop must be
// called to release the pipeline anyway.
func (p *Pipeline) Wait(ctx context.Context) error {
	return p.task.Wait(ctx)
}

// UpdateScalar delivers new value of the field to the running block. It
// does nothing if the field is not updatable or the pipeline is not
// running. Failed update doesn't stop the pipeline.
func (p *Pipeline) UpdateScalar(ctx context.Context, node graph.NodeID, field string, value float64) error {
	port, ok := p.index.Port(node, field)
	if !ok {
		return nil
	}
	if p.State() != Running {
		return nil
	}
	r := request{
		ctx:   ctx,
		field: Field{Node: node, Name: field},
		port:  port,
		value: value,
		reply: make(chan error, 1),
	}
	select {
	case p.requests <- r:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-r.reply:
		return err
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the engine and waits until all blocks are done. Queued
// updates are discarded. Only the first call stops the pipeline, the
// rest return nil immediately. Pipeline is stopped even if the engine
// fails to terminate.
func (p *Pipeline) Stop(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		return nil
	}
	// abort the update in flight
	p.cancelFn()
	r := stopRequest{ctx: ctx, reply: make(chan error, 1)}
	p.stopc <- r
	return <-r.reply
}

// loop serves live updates until the pipeline is stopped.
func (p *Pipeline) loop() {
	defer close(p.done)
	finished := p.task.Done()
	for {
		select {
		case r := <-p.requests:
			p.update(r)
		case r := <-p.stopc:
			r.reply <- p.terminate(r.ctx)
			return
		case <-finished:
			finished = nil
			if err := p.task.Wait(p.ctx); err != nil {
				p.logger.WithError(err).Error("engine failed")
			} else {
				p.logger.Info("engine finished")
			}
		}
	}
}

func (p *Pipeline) update(r request) {
	ctx, cancelFn := mergeDone(r.ctx, p.ctx)
	defer cancelFn()
	var err error
	if err = p.handle.Call(ctx, r.port.Block, r.port.ID, r.port.Map(r.value)); err != nil {
		err = &CallError{Op: "update", Node: r.field.Node, Field: r.field.Name, Err: err}
		p.logger.WithError(err).Warn("live update failed")
	}
	p.metrics.Updated(err)
	r.reply <- err
}

// terminate discards queued updates, terminates the engine and waits
// for the task.
func (p *Pipeline) terminate(ctx context.Context) error {
	defer func() {
		p.state.Store(int32(Stopped))
		p.metrics.Stopped()
	}()
	for discarded := false; !discarded; {
		select {
		case r := <-p.requests:
			r.reply <- nil
		default:
			discarded = true
		}
	}

	var errs []error
	if err := p.handle.Terminate(ctx); err != nil {
		errs = append(errs, fmt.Errorf("terminate: %w", err))
	}
	if err := p.task.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.WithError(err).Error("pipeline stopped with error")
		return &CallError{Op: "stop", Err: err}
	}
	p.logger.Debug("pipeline stopped")
	return nil
}

// mergeDone returns a context that is done when either of contexts is
// done. Values are taken from the first one.
func mergeDone(ctx, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelFn := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancelFn)
	return ctx, func() {
		stop()
		cancelFn()
	}
}
