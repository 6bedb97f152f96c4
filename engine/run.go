package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/esdr/mutable"
)

type (
	// Task is the background computation of a started flowgraph.
	Task interface {
		// Done is closed when all blocks are done.
		Done() <-chan struct{}
		// Wait blocks until all blocks are done and returns the first
		// error that occurred.
		Wait(ctx context.Context) error
	}

	// Handle allows to control a started flowgraph.
	Handle interface {
		// Call delivers value to the message port of the block and waits
		// for the handler result.
		Call(ctx context.Context, block BlockID, port PortID, value float64) error
		// Terminate stops all blocks and waits until they are done.
		Terminate(ctx context.Context) error
	}

	// execution is a running block with its message ports.
	execution struct {
		mutable.Context
		messages []MessagePort
		executor
		done <-chan struct{}
	}

	// call is a message call request.
	call struct {
		block BlockID
		port  PortID
		value float64
		reply chan error
	}

	// run is a started flowgraph.
	run struct {
		ctx      context.Context
		cancelFn context.CancelFunc
		logger   logrus.FieldLogger
		blocks   map[BlockID]execution
		merger   *errorMerger
		calls    chan call
		done     chan struct{}
		err      error
	}
)

func newRun(ctx context.Context, cancelFn context.CancelFunc, logger logrus.FieldLogger) *run {
	return &run{
		ctx:      ctx,
		cancelFn: cancelFn,
		logger:   logger,
		blocks:   make(map[BlockID]execution),
		merger:   newMerger(cancelFn),
		calls:    make(chan call),
		done:     make(chan struct{}),
	}
}

// start all blocks and the control loop.
func (r *run) start(p mutable.Pusher) {
	for id, e := range r.blocks {
		errc := start(r.ctx, e.executor)
		e.done = r.merger.watch(errc)
		r.blocks[id] = e
	}
	go r.merger.wait()
	go r.loop(p)
}

// loop routes message calls to blocks until all blocks are done or the
// first error occurs.
func (r *run) loop(p mutable.Pusher) {
	defer close(r.done)
	for {
		select {
		case c := <-r.calls:
			e := r.blocks[c.block]
			select {
			case <-e.done:
				c.reply <- ErrTerminated
				continue
			default:
			}
			handler := e.messages[c.port].Handler
			p.Put(e.Context.Mutate(func() error {
				c.reply <- handler(c.value)
				return nil
			}))
			p.Push(r.ctx)
		case err, ok := <-r.merger.errorChan:
			// merger has buffer of one error, if more errors happen, they
			// will be ignored.
			if ok {
				r.logger.WithError(err).Debug("flowgraph failed")
				r.cancelFn()
				r.merger.drain()
				r.err = err
			}
			r.cancelFn()
			return
		}
	}
}

// Call delivers value to the message port of the block.
func (r *run) Call(ctx context.Context, id BlockID, port PortID, value float64) error {
	e, ok := r.blocks[id]
	if !ok {
		return fmt.Errorf("call block %d: %w", id, ErrUnknownBlock)
	}
	if port < 0 || int(port) >= len(e.messages) {
		return fmt.Errorf("call block %d port %d: %w", id, port, ErrUnknownPort)
	}
	c := call{
		block: id,
		port:  port,
		value: value,
		reply: make(chan error, 1),
	}
	select {
	case r.calls <- c:
	case <-r.done:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.reply:
		return err
	case <-e.done:
		return ErrTerminated
	case <-r.done:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate cancels all blocks and waits until they are done.
func (r *run) Terminate(ctx context.Context) error {
	r.cancelFn()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when all blocks are done.
func (r *run) Done() <-chan struct{} {
	return r.done
}

// Wait for all blocks to be done and return the first error.
func (r *run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
