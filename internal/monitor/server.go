package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	wslog "github.com/nao1215/wsspider/internal/log"
	"github.com/nao1215/wsspider/internal/model"
)

const shutdownTimeout = 5 * time.Second

// Controller is the run controller as seen by the server.
type Controller interface {
	Running() bool
	Toggle(ctx context.Context) error
}

// Queue reports the durable state.
type Queue interface {
	JobCount() int
	VisitedCount() int
	AutoStart() bool
	PanelOpen() bool
}

// Collector reports the state of the collector channel.
type Collector interface {
	Connected() bool
	Stats() model.CollectorStats
	ResetStats()
}

// Status is the body of GET /status.
type Status struct {
	Running   bool                 `json:"running"`
	Connected bool                 `json:"connected"`
	Queue     int                  `json:"queue"`
	Visited   int                  `json:"visited"`
	AutoStart bool                 `json:"autoStart"`
	PanelOpen bool                 `json:"panelOpen"`
	Stats     model.CollectorStats `json:"stats"`
	Log       []wslog.Entry        `json:"log"`
}

// Server is the monitoring HTTP server.
type Server struct {
	metrics    *Metrics
	controller Controller
	queue      Queue
	collector  Collector
	ring       *wslog.Ring
	logger     *slog.Logger

	// ctx is handed to Toggle so a crawl started over HTTP outlives the
	// request.
	ctx context.Context
}

// NewServer creates a Server. ring may be nil.
func NewServer(ctx context.Context, metrics *Metrics, controller Controller, queue Queue, collector Collector, ring *wslog.Ring, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		metrics:    metrics,
		controller: controller,
		queue:      queue,
		collector:  collector,
		ring:       ring,
		logger:     logger,
		ctx:        ctx,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /toggle", s.handleToggle)
	mux.HandleFunc("POST /log/clear", s.handleClearLog)
	return mux
}

// Snapshot returns the current status.
func (s *Server) Snapshot() Status {
	st := Status{
		Running:   s.controller.Running(),
		Connected: s.collector.Connected(),
		Queue:     s.queue.JobCount(),
		Visited:   s.queue.VisitedCount(),
		AutoStart: s.queue.AutoStart(),
		PanelOpen: s.queue.PanelOpen(),
		Stats:     s.collector.Stats(),
		Log:       []wslog.Entry{},
	}
	if s.ring != nil && s.ring.Len() > 0 {
		st.Log = s.ring.Entries()
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	if err := s.controller.Toggle(s.ctx); err != nil {
		s.logger.Warn("toggle failed", "error", err)
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.controller.Running()})
}

// handleClearLog empties the rolling log and zeroes the collector stats.
func (s *Server) handleClearLog(w http.ResponseWriter, _ *http.Request) {
	if s.ring != nil {
		s.ring.Clear()
	}
	s.collector.ResetStats()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger.Info("monitor listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
