// Package control exposes the session over HTTP.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pipelined/esdr"
	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/log"
	"github.com/pipelined/esdr/session"
)

type (
	// Session is the edited graph with its pipeline.
	Session interface {
		Run(context.Context) error
		Stop(context.Context) error
		Running() bool
		SetScalar(ctx context.Context, node graph.NodeID, field string, value float64) error
		Edit(func(*graph.Graph) error) error
		View(func(*graph.Graph))
	}

	// Server serves the control API.
	Server struct {
		chi.Router
		session Session
		logger  logrus.FieldLogger
	}

	// Option configures the server.
	Option func(*Server)
)

// WithLogger sets the server logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New returns the control server of the session.
func New(s Session, options ...Option) *Server {
	srv := Server{
		Router:  chi.NewRouter(),
		session: s,
		logger:  log.Silent(),
	}
	for _, option := range options {
		option(&srv)
	}
	srv.Use(middleware.Recoverer)
	srv.Get("/kinds", srv.kinds)
	srv.Get("/graph", srv.graph)
	srv.Post("/nodes", srv.addNode)
	srv.Delete("/nodes/{node}", srv.removeNode)
	srv.Post("/edges", srv.connect)
	srv.Put("/nodes/{node}/scalars/{field}", srv.setScalar)
	srv.Post("/run", srv.run)
	srv.Post("/stop", srv.stop)
	return &srv
}

func (s *Server) kinds(w http.ResponseWriter, r *http.Request) {
	kinds := block.Kinds()
	resp := make([]KindView, 0, len(kinds))
	for _, k := range kinds {
		resp = append(resp, kindView(k))
	}
	s.respond(w, http.StatusOK, resp)
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	var resp GraphView
	s.session.View(func(g *graph.Graph) {
		resp = graphView(g)
	})
	resp.Running = s.session.Running()
	s.respond(w, http.StatusOK, resp)
}

func (s *Server) addNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !req.Kind.Valid() {
		s.respond(w, http.StatusBadRequest, ErrorResponse{Error: block.ErrUnknownKind.Error()})
		return
	}
	var id graph.NodeID
	s.session.Edit(func(g *graph.Graph) error {
		id = g.AddNode(req.Kind)
		return nil
	})
	s.logger.WithFields(logrus.Fields{"node": id, "kind": req.Kind}).Debug("node added")
	s.respond(w, http.StatusCreated, NodeRef{ID: id})
}

func (s *Server) removeNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.nodeParam(w, r)
	if !ok {
		return
	}
	err := s.session.Edit(func(g *graph.Graph) error {
		return g.RemoveNode(id)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}
	err := s.session.Edit(func(g *graph.Graph) error {
		out, err := g.NodeOutput(req.Source.Node, req.Source.Port)
		if err != nil {
			return err
		}
		in, err := g.NodeInput(req.Dest.Node, req.Dest.Port)
		if err != nil {
			return err
		}
		return g.Connect(out, in)
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) setScalar(w http.ResponseWriter, r *http.Request) {
	id, ok := s.nodeParam(w, r)
	if !ok {
		return
	}
	var req ScalarRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.session.SetScalar(r.Context(), id, chi.URLParam(r, "field"), req.Value); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Run(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Stop(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) nodeParam(w http.ResponseWriter, r *http.Request) (graph.NodeID, bool) {
	id, err := graph.ParseNodeID(chi.URLParam(r, "node"))
	if err != nil {
		s.respond(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return graph.NodeID{}, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.WithError(err).Debug("invalid request body")
		s.respond(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// fail responds with the status of the error.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var ce *esdr.CompileError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, graph.ErrNotFound), errors.Is(err, graph.ErrUnknownPort):
		status = http.StatusNotFound
	case errors.As(err, &ce), errors.Is(err, graph.ErrNotScalar):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	s.respond(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}
