package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/metrics"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json"

// Options tunes the API server
type Options struct {
	// ReadOnly rejects every request that could change the registry
	ReadOnly bool
}

// Server exposes the placement engine and node registry over HTTP/JSON
type Server struct {
	store  storage.Store
	sched  *scheduler.Scheduler
	broker *events.Broker
	opts   Options
	now    func() time.Time
	logger zerolog.Logger

	// placeMu serializes read-select-account so back-to-back placements
	// see each other's instance count and get distinct ports
	placeMu sync.Mutex

	// shutdownCh is closed when the HTTP server starts shutting down so
	// open event streams return instead of holding Shutdown open
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server. broker may be nil, which disables
// event publishing and the events stream.
func NewServer(store storage.Store, sched *scheduler.Scheduler, broker *events.Broker, opts Options) *Server {
	return &Server{
		store:      store,
		sched:      sched,
		broker:     broker,
		opts:       opts,
		now:        time.Now,
		logger:     log.WithComponent("api"),
		shutdownCh: make(chan struct{}),
	}
}

// Handler builds the chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	if s.opts.ReadOnly {
		r.Use(readOnly)
	}

	r.Get("/health", metrics.HealthHandler())
	r.Get("/ready", metrics.ReadyHandler())
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/placements", s.handlePlace)
		r.Get("/cluster/summary", s.handleSummary)

		r.Get("/nodes", s.handleListNodes)
		r.Route("/nodes/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetNode)
			r.Put("/", s.handlePutNode)
			r.Delete("/", s.handleDeleteNode)
			r.Put("/heartbeat", s.handleHeartbeat)
			r.Get("/drain", s.handleDrain)
		})

		r.Get("/policy", s.handleGetPolicy)
		r.Put("/policy", s.handlePutPolicy)

		r.Get("/events", s.handleEvents)
	})

	return r
}

// Start listens on addr and serves until Stop is called
func (s *Server) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Stop is called
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(s.closeStreams)

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	metrics.UpdateComponent(metrics.ComponentAPI, true, "")
	s.logger.Info().Str("addr", l.Addr().String()).Bool("read_only", s.opts.ReadOnly).Msg("API server listening")

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down. Open event streams are ended first.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		s.closeStreams()
		return nil
	}
	metrics.UpdateComponent(metrics.ComponentAPI, false, "shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

func (s *Server) closeStreams() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

func (s *Server) publish(event *events.Event) {
	if s.broker != nil {
		s.broker.Publish(event)
	}
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err onto an HTTP status
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scheduler.ErrNoCapacity):
		status = http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// decodeJSON decodes the request body into v; an empty body leaves v untouched
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
