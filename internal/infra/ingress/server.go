package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"kiosk-voice/internal/application"
	"kiosk-voice/internal/domain"
)

const (
	maxTextBody = 4096
	callTimeout = 5 * time.Second
)

// Controller is the part of the pipeline the kiosk page and the camera talk to.
type Controller interface {
	ToggleRecording(ctx context.Context) error
	Restart(ctx context.Context) error
	SubmitFragment(ctx context.Context, f domain.TranscriptFragment) error
	ReportAge(ctx context.Context, age float64) error
	Snapshot(ctx context.Context) (application.Snapshot, error)
}

type Config struct {
	Addr      string
	AuthToken string
	// RateLimit is the number of mutating requests allowed per client per RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

// Server exposes the voice button, restart control, browser speech fragments
// and camera age estimates over HTTP.
type Server struct {
	cfg         Config
	controller  Controller
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
	extras   map[string]func() any
}

func NewServer(cfg Config, controller Controller, metrics http.Handler, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	s := &Server{
		cfg:         cfg,
		controller:  controller,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}

	s.mux.HandleFunc("POST /record", s.protect(s.handleRecord))
	s.mux.HandleFunc("POST /restart", s.protect(s.handleRestart))
	s.mux.HandleFunc("POST /transcript", s.protect(s.handleTranscript))
	s.mux.HandleFunc("POST /text", s.protect(s.handleText))
	s.mux.HandleFunc("POST /age", s.protect(s.handleAge))
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	return s
}

// AddStatus adds a named section to the status report. Call it before Start.
func (s *Server) AddStatus(name string, fn func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extras == nil {
		s.extras = make(map[string]func() any)
	}
	s.extras[name] = fn
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the bound address once the server is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      otelhttp.NewHandler(s.mux, "ingress"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("ingress server starting", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ingress server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// protect applies rate limiting and, when a token is configured, auth.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	authed := func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.cfg.AuthToken {
				s.logger.Warn("unauthorized ingress request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
	return s.rateLimiter.Middleware(authed)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	if err := s.controller.ToggleRecording(ctx); err != nil {
		s.fail(w, "toggling recording", err)
		return
	}
	s.accepted(w, map[string]any{"status": "ok"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	if err := s.controller.Restart(ctx); err != nil {
		s.fail(w, "restarting", err)
		return
	}
	s.logger.Info("restart requested", "remote_addr", r.RemoteAddr)
	s.accepted(w, map[string]any{"status": "restarting"})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var f domain.TranscriptFragment
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTextBody)).Decode(&f); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.submit(w, r, f)
}

// handleText takes a plain-text body as a final fragment.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxTextBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	s.submit(w, r, domain.TranscriptFragment{Text: string(data), IsFinal: true})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, f domain.TranscriptFragment) {
	if strings.TrimSpace(f.Text) == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	if err := s.controller.SubmitFragment(ctx, f); err != nil {
		s.fail(w, "submitting fragment", err)
		return
	}
	s.logger.Debug("fragment received", "text", f.Text, "final", f.IsFinal)
	s.accepted(w, map[string]any{"status": "received", "text": f.Text})
}

func (s *Server) handleAge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Age *float64 `json:"age"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTextBody)).Decode(&body); err != nil || body.Age == nil {
		http.Error(w, "expected {\"age\": number}", http.StatusBadRequest)
		return
	}
	if *body.Age < 0 || *body.Age > 150 {
		http.Error(w, "age out of range", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	if err := s.controller.ReportAge(ctx, *body.Age); err != nil {
		s.fail(w, "reporting age", err)
		return
	}
	s.accepted(w, map[string]any{"status": "ok", "group": domain.AgeGroupFor(*body.Age)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()

	snap, err := s.controller.Snapshot(ctx)
	if err != nil {
		s.fail(w, "reading status", err)
		return
	}

	report := map[string]any{"pipeline": snap}
	s.mu.Lock()
	for name, fn := range s.extras {
		report[name] = fn()
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	code := http.StatusOK
	if !running {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "running": running})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, application.ErrModeNotSupported) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.logger.Error(op, "error", err)
	http.Error(w, err.Error(), http.StatusServiceUnavailable)
}

func (s *Server) accepted(w http.ResponseWriter, body any) {
	writeJSON(w, http.StatusAccepted, body)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
