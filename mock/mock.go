// Package mock provides a recording engine that allows to test
// compilation and live updates without running blocks.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/pipelined/esdr/engine"
)

// ErrUnknownBlock is returned when block is not registered in the mock.
var ErrUnknownBlock = errors.New("unknown block")

type (
	// Engine mocks an engine. It records all operations.
	Engine struct {
		next        engine.BlockID
		Blocks      map[engine.BlockID]engine.Unit
		Added       []engine.BlockID
		Removed     []engine.BlockID
		Connections []Connection
		Started     bool
		Task        *Task
		Handle      *Handle
		Hooks
	}

	// Hooks allow to inject errors into the mock.
	Hooks struct {
		// ErrorOnConnect is returned by ConnectStream call number
		// ConnectFailsAt, counting from zero.
		ErrorOnConnect error
		ConnectFailsAt int
		ErrorOnStart   error
		ErrorOnRemove  error
	}

	// Connection is a recorded ConnectStream call.
	Connection struct {
		Src     engine.BlockID
		SrcPort string
		Dst     engine.BlockID
		DstPort string
	}

	// Call is a recorded message call.
	Call struct {
		Block engine.BlockID
		Port  engine.PortID
		Value float64
	}

	// Handle mocks engine handle. Calls are recorded, message handlers
	// are not executed.
	Handle struct {
		sync.Mutex
		task         *Task
		calls        []Call
		terminations int
		// Block delays every call until it's closed.
		Block            chan struct{}
		ErrorOnCall      error
		ErrorOnTerminate error
	}

	// Task mocks background task. It's done when the handle is
	// terminated or Finish is called.
	Task struct {
		once        sync.Once
		finish      sync.Once
		done        chan struct{}
		ErrorOnWait error
	}
)

// NewEngine returns new mock engine.
func NewEngine() *Engine {
	return &Engine{
		Blocks: make(map[engine.BlockID]engine.Unit),
	}
}

// AddBlock registers the unit.
func (e *Engine) AddBlock(u engine.Unit) engine.BlockID {
	id := e.next
	e.next++
	e.Blocks[id] = u
	e.Added = append(e.Added, id)
	return id
}

// RemoveBlock removes the unit.
func (e *Engine) RemoveBlock(id engine.BlockID) error {
	if e.ErrorOnRemove != nil {
		return e.ErrorOnRemove
	}
	if _, ok := e.Blocks[id]; !ok {
		return ErrUnknownBlock
	}
	delete(e.Blocks, id)
	e.Removed = append(e.Removed, id)
	return nil
}

// ConnectStream records the connection.
func (e *Engine) ConnectStream(src engine.BlockID, srcPort string, dst engine.BlockID, dstPort string) error {
	if e.ErrorOnConnect != nil && len(e.Connections) == e.ConnectFailsAt {
		return e.ErrorOnConnect
	}
	if _, ok := e.Blocks[src]; !ok {
		return ErrUnknownBlock
	}
	if _, ok := e.Blocks[dst]; !ok {
		return ErrUnknownBlock
	}
	e.Connections = append(e.Connections, Connection{
		Src:     src,
		SrcPort: srcPort,
		Dst:     dst,
		DstPort: dstPort,
	})
	return nil
}

// Start returns mocked task and handle.
func (e *Engine) Start(context.Context) (engine.Task, engine.Handle, error) {
	if e.ErrorOnStart != nil {
		return nil, nil, e.ErrorOnStart
	}
	e.Started = true
	if e.Task == nil {
		e.Task = &Task{}
	}
	if e.Handle == nil {
		e.Handle = &Handle{}
	}
	e.Task.init()
	e.Handle.task = e.Task
	return e.Task, e.Handle, nil
}

// Call records the call.
func (h *Handle) Call(ctx context.Context, block engine.BlockID, port engine.PortID, value float64) error {
	if h.Block != nil {
		select {
		case <-h.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.Lock()
	defer h.Unlock()
	if h.ErrorOnCall != nil {
		return h.ErrorOnCall
	}
	h.calls = append(h.calls, Call{Block: block, Port: port, Value: value})
	return nil
}

// Terminate finishes the task.
func (h *Handle) Terminate(context.Context) error {
	h.Lock()
	h.terminations++
	h.Unlock()
	h.task.Finish()
	return h.ErrorOnTerminate
}

// Calls returns recorded calls.
func (h *Handle) Calls() []Call {
	h.Lock()
	defer h.Unlock()
	calls := make([]Call, len(h.calls))
	copy(calls, h.calls)
	return calls
}

// Terminations returns number of Terminate calls.
func (h *Handle) Terminations() int {
	h.Lock()
	defer h.Unlock()
	return h.terminations
}

func (t *Task) init() {
	t.once.Do(func() {
		t.done = make(chan struct{})
	})
}

// Finish marks the task as done. It's safe to call multiple times.
func (t *Task) Finish() {
	t.init()
	t.finish.Do(func() {
		close(t.done)
	})
}

// Done is closed when the task is finished.
func (t *Task) Done() <-chan struct{} {
	t.init()
	return t.done
}

// Wait blocks until the task is finished.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.Done():
		return t.ErrorOnWait
	case <-ctx.Done():
		return ctx.Err()
	}
}
