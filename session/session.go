// Package session holds the edited graph and toggles its compiled
// pipeline. All session calls are serialized.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/esdr"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/log"
)

// ErrInvalidState is returned when session is not in the state required
// by the call.
var ErrInvalidState = errors.New("invalid session state")

type (
	// Compiler compiles graphs into running pipelines.
	Compiler interface {
		CompileAndStart(context.Context, *graph.Graph) (*esdr.Pipeline, error)
	}

	// Session is an editor session. It's idle or running one pipeline
	// compiled from the graph. Edits of the running session take effect
	// on the next run, except for updatable scalars.
	Session struct {
		mu       sync.Mutex
		graph    *graph.Graph
		compiler Compiler
		pipeline *esdr.Pipeline
		logger   logrus.FieldLogger
	}

	// Option of a session. It returns the option that restores the
	// previous value.
	Option func(*Session) Option
)

// WithLogger sets the session logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) Option {
		previous := s.logger
		s.logger = l
		return WithLogger(previous)
	}
}

// New creates a new idle session.
func New(g *graph.Graph, c Compiler, options ...Option) *Session {
	s := &Session{
		graph:    g,
		compiler: c,
		logger:   log.Silent(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Run compiles the graph and starts the pipeline.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// Stop stops the running pipeline. Session becomes idle even if the
// pipeline fails to stop.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop(ctx)
}

// Toggle runs idle session and stops the running one. Returns true if
// session is running after the call.
func (s *Session) Toggle(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		err := s.run(ctx)
		return err == nil, err
	}
	return false, s.stop(ctx)
}

// Close stops the session if it's running.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil
	}
	return s.stop(ctx)
}

func (s *Session) run(ctx context.Context) error {
	if s.pipeline != nil {
		return ErrInvalidState
	}
	p, err := s.compiler.CompileAndStart(ctx, s.graph)
	if err != nil {
		return err
	}
	s.pipeline = p
	s.logger.WithField("pipeline", p.ID()).Info("session running")
	return nil
}

func (s *Session) stop(ctx context.Context) error {
	if s.pipeline == nil {
		return ErrInvalidState
	}
	p := s.pipeline
	s.pipeline = nil
	err := p.Stop(ctx)
	s.logger.WithField("pipeline", p.ID()).Info("session stopped")
	return err
}

// Running returns true if session is running.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline != nil
}

// SetScalar sets constant value of the node input. If session is
// running, the value is delivered to the pipeline.
func (s *Session) SetScalar(ctx context.Context, node graph.NodeID, field string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.graph.SetScalar(node, field, value); err != nil {
		return err
	}
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.UpdateScalar(ctx, node, field, value)
}

// Edit calls fn with the graph.
func (s *Session) Edit(fn func(*graph.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.graph)
}

// View calls fn with the graph. Graph must not be modified.
func (s *Session) View(fn func(*graph.Graph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.graph)
}
