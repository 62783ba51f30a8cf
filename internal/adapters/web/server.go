// Package web provides the HTTP surface of the photoperiod daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/transfer"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/view"
)

// maxImportBytes bounds an import request body.
const maxImportBytes = 1 << 20

// Schedule is what the server reads from and writes to; ports.Monitor implements it.
type Schedule interface {
	Snapshot() domain.Evaluation
	ImportConfig(ctx context.Context, payload []byte) (transfer.Result, error)
	ExportConfig(format transfer.Format) ([]byte, error)
}

// Server serves evaluations and config transfer over HTTP.
type Server struct {
	httpServer *http.Server
	schedule   Schedule
}

// New creates a Server. feed serves the WebSocket evaluation feed at /ws;
// nil leaves the route unmounted.
func New(addr string, schedule Schedule, feed http.Handler) *Server {
	s := &Server{schedule: schedule}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/evaluation", s.handleEvaluation)
	mux.HandleFunc("GET /api/config/export", s.handleExport)
	mux.HandleFunc("POST /api/config/import", s.handleImport)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if feed != nil {
		mux.Handle("GET /ws", feed)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view.NewEvaluation(s.schedule.Snapshot()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.schedule.ExportConfig(format)
	if err != nil {
		log.Error().Err(err).Msg("failed to export config")
		writeError(w, http.StatusInternalServerError, errors.New("failed to export config"))
		return
	}

	if format == transfer.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(out)
}

// ImportResponse is the body returned by a successful import.
type ImportResponse struct {
	Config  domain.Record `json:"config"`
	Applied []string      `json:"applied"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	res, err := s.schedule.ImportConfig(r.Context(), payload)
	if errors.Is(err, domain.ErrMalformedImportPayload) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to import config")
		writeError(w, http.StatusInternalServerError, errors.New("failed to import config"))
		return
	}

	applied := res.Applied
	if applied == nil {
		applied = []string{}
	}
	writeJSON(w, http.StatusOK, ImportResponse{Config: res.Record, Applied: applied})
}

// HealthResponse reports liveness and whether the live record is valid.
type HealthResponse struct {
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
	AsOf   string `json:"as_of"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ev := s.schedule.Snapshot()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Valid:  ev.Valid(),
		AsOf:   ev.AsOf.Format(time.RFC3339),
	})
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error(), Kind: domain.ErrorKind(err)})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
