// Package server exposes the bridge over HTTP: authenticated execution and
// index-trigger endpoints plus unauthenticated health and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/s950329/qmd-bridge/internal/auth"
	"github.com/s950329/qmd-bridge/internal/config"
	"github.com/s950329/qmd-bridge/internal/errors"
	"github.com/s950329/qmd-bridge/internal/gateway"
	"github.com/s950329/qmd-bridge/internal/indexer"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

// maxBodyBytes bounds request bodies; execution requests are a command name
// and a query, so anything near this limit is malformed.
const maxBodyBytes = 1 << 20

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

type Server struct {
	settings  func() config.Settings
	auth      *auth.Authenticator
	gw        *gateway.Gateway
	scheduler *indexer.Scheduler
	registry  *tenant.Registry
	metrics   *Metrics
	logger    *slog.Logger
}

func New(settings func() config.Settings, a *auth.Authenticator, gw *gateway.Gateway, sched *indexer.Scheduler, reg *tenant.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		settings:  settings,
		auth:      a,
		gw:        gw,
		scheduler: sched,
		registry:  reg,
		metrics:   NewMetrics(),
		logger:    logger,
	}
	gw.SetRecorder(s.metrics)
	return s
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("POST /v1/execute", s.authenticated(s.handleExecute))
	mux.Handle("POST /v1/index", s.authenticated(s.handleIndexTrigger))
	mux.Handle("GET /v1/index/status", s.authenticated(s.handleIndexStatus))
	return s.withRequestID(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.settings()
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type executeRequest struct {
	Command string `json:"command"`
	Query   string `json:"query"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, t tenant.Tenant) {
	var req executeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.Query) > gateway.MaxQueryLen {
		s.writeBadRequest(w, r, "query too long")
		return
	}

	resp, err := s.gw.Execute(r.Context(), gateway.Request{
		Command:    req.Command,
		Query:      req.Query,
		Collection: t.Collection,
	})
	if err != nil {
		s.writeBridgeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndexTrigger(w http.ResponseWriter, r *http.Request, t tenant.Tenant) {
	if s.scheduler.IsInProgress(t.Label) {
		s.writeBridgeError(w, r, errors.New(errors.CodeIndexInProgress))
		return
	}
	s.scheduler.TriggerIndex(t)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request, t tenant.Tenant) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"label":       t.Label,
		"in_progress": s.scheduler.IsInProgress(t.Label),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeBadRequest(w, r, "invalid json body")
		return false
	}
	return true
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusForCode maps the failure taxonomy onto HTTP status codes.
func statusForCode(code errors.Code) int {
	switch code {
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeInvalidCommand, errors.CodeInvalidPath:
		return http.StatusBadRequest
	case errors.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.CodeExecutionTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeExecutionFailed:
		return http.StatusBadGateway
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists, errors.CodeIndexInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeBridgeError renders a taxonomy failure. Only the code and its fixed
// message go to the client; the cause stays in the log.
func (s *Server) writeBridgeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	s.logger.Warn("request failed",
		"request_id", requestIDFrom(r.Context()),
		"path", r.URL.Path,
		"code", string(code),
		"error", err,
	)
	s.writeJSON(w, statusForCode(code), errorBody{
		Code:      string(code),
		Message:   errors.UserMessage(code),
		RequestID: requestIDFrom(r.Context()),
	})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{
		Code:      "BAD_REQUEST",
		Message:   msg,
		RequestID: requestIDFrom(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
