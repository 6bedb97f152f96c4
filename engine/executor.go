package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/pipelined/esdr/metric"
	"github.com/pipelined/esdr/mutable"
	"github.com/pipelined/esdr/signal"
)

type (
	// executor executes a single block operation.
	executor interface {
		Execute(context.Context) error
		Start(context.Context) error
		Flush(context.Context) error
		// Close closes outputs of the block.
		Close()
	}

	// block is the state shared by all executors.
	block struct {
		name string
		mutable.Context
		mutations <-chan mutable.Mutations
		startFn   StartFunc
		flushFn   FlushFunc
		meter     metric.ResetFunc
		measure   metric.MeasureFunc
		sender
	}

	// sender fans out buffers to all connected inputs.
	sender []chan signal.Signal

	source struct {
		block
		SourceFunc
		kind       signal.Kind
		bufferSize int
	}

	processor struct {
		block
		ProcessFunc
		input <-chan signal.Signal
	}

	sink struct {
		block
		SinkFunc
		input <-chan signal.Signal
	}
)

// start runs the executor in its own goroutine. Returned channel is
// closed when the executor is done.
func start(ctx context.Context, e executor) <-chan error {
	errc := make(chan error, 1)
	go execute(ctx, e, errc)
	return errc
}

func execute(ctx context.Context, e executor, errc chan<- error) {
	defer close(errc)
	defer e.Close()
	if err := e.Start(ctx); err != nil {
		errc <- fmt.Errorf("error starting block: %w", err)
		return
	}

	var errs execErrors
	var err error
	for err == nil {
		err = e.Execute(ctx)
	}
	if err != io.EOF {
		errs = append(errs, fmt.Errorf("error running block: %w", err))
	}
	if err := e.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error flushing block: %w", err))
	}
	if err := errs.ret(); err != nil {
		errc <- err
	}
}

// Start resets the meter and calls the start hook.
func (b *block) Start(ctx context.Context) error {
	b.measure = b.meter()
	return callHook(ctx, b.startFn)
}

// Flush calls the flush hook.
func (b *block) Flush(ctx context.Context) error {
	return callHook(ctx, b.flushFn)
}

func callHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

// apply mutations addressed to this block.
func (b *block) apply(ms mutable.Mutations) error {
	if err := ms.ApplyTo(b.Context); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}

// send the buffer to all outputs. False is returned if context is done.
func (s sender) send(ctx context.Context, out signal.Signal) bool {
	for _, c := range s {
		select {
		case c <- out:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// Close closes all outputs.
func (s sender) Close() {
	for _, c := range s {
		close(c)
	}
}

// Execute does a single iteration of source block. io.EOF is returned
// if context is done.
func (e *source) Execute(ctx context.Context) error {
	select {
	case ms := <-e.mutations:
		if err := e.apply(ms); err != nil {
			return err
		}
	case <-ctx.Done():
		return io.EOF
	default:
	}

	out := e.kind.Alloc(e.bufferSize)
	read, err := e.SourceFunc(out)
	if err != nil {
		return err
	}
	if read != out.Len() {
		out = signal.Slice(out, read)
	}
	e.measure(read)

	if !e.send(ctx, out) {
		return io.EOF
	}
	return nil
}

// Execute does a single iteration of processor block. Mutations are
// applied while waiting for input. io.EOF is returned if context is
// done or input is closed.
func (e *processor) Execute(ctx context.Context) error {
	select {
	case ms := <-e.mutations:
		return e.apply(ms)
	case in, ok := <-e.input:
		if !ok {
			return io.EOF
		}
		out, err := e.ProcessFunc(in)
		if err != nil {
			return err
		}
		e.measure(in.Len())
		if out == nil || out.Len() == 0 {
			return nil
		}
		if !e.send(ctx, out) {
			return io.EOF
		}
		return nil
	case <-ctx.Done():
		return io.EOF
	}
}

// Execute does a single iteration of sink block. Mutations are applied
// while waiting for input. io.EOF is returned if context is done or
// input is closed.
func (e *sink) Execute(ctx context.Context) error {
	select {
	case ms := <-e.mutations:
		return e.apply(ms)
	case in, ok := <-e.input:
		if !ok {
			return io.EOF
		}
		if err := e.SinkFunc(in); err != nil {
			return err
		}
		e.measure(in.Len())
		return nil
	case <-ctx.Done():
		return io.EOF
	}
}
