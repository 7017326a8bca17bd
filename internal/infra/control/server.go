package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ramu/internal/application"
	"ramu/internal/domain"
)

// Assistant is the part of the orchestrator the control surface drives.
type Assistant interface {
	ToggleAsync(ctx context.Context) (<-chan struct{}, error)
	SelectProfile(name string) error
	SetSpeakerEnabled(enabled bool)
	Profiles() []string
	Snapshot() application.Snapshot
	Process(ctx context.Context, audio []byte, profile string, speak bool) (application.ProcessResult, error)
}

// maxUploadBytes bounds a /process upload.
const maxUploadBytes = 10 * 1024 * 1024

// Server exposes the orchestrator over HTTP and streams its events over a
// websocket, standing in for a GUI.
type Server struct {
	addr        string
	authToken   string
	assistant   Assistant
	hub         *Hub
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(addr, authToken string, assistant Assistant, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		authToken:   authToken,
		assistant:   assistant,
		hub:         hub,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(60, time.Minute),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.mux.HandleFunc("POST /toggle", s.rateLimiter.Middleware(s.authorized(s.handleToggle)))
	s.mux.HandleFunc("PUT /profile", s.rateLimiter.Middleware(s.authorized(s.handleProfile)))
	s.mux.HandleFunc("PUT /speaker", s.rateLimiter.Middleware(s.authorized(s.handleSpeaker)))
	s.mux.HandleFunc("POST /process", s.rateLimiter.Middleware(s.authorized(s.handleProcess)))
	s.mux.HandleFunc("GET /profiles", s.handleProfiles)
	s.mux.HandleFunc("GET /status", s.authorized(s.handleStatus))
	s.mux.HandleFunc("GET /events", s.authorized(s.handleEvents))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// TrustProxyHeaders lets rate limiting key on proxy-supplied client
// addresses. Use it only behind a reverse proxy.
func (s *Server) TrustProxyHeaders(trust bool) {
	s.rateLimiter.TrustProxyHeaders(trust)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		s.logger.Info("control server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control server error", "error", err)
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

	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized control request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	// The turn keeps running after this response is written.
	ctx := context.WithoutCancel(r.Context())

	if _, err := s.assistant.ToggleAsync(ctx); err != nil {
		if errors.Is(err, application.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, application.ErrClosed) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, s.assistant.Snapshot())
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 256))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	name := strings.TrimSpace(string(data))
	if name == "" {
		http.Error(w, "empty profile name", http.StatusBadRequest)
		return
	}

	if err := s.assistant.SelectProfile(name); err != nil {
		if errors.Is(err, domain.ErrUnknownProfile) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, s.assistant.Snapshot().Profile)
}

func (s *Server) handleSpeaker(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 16))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var enabled bool
	switch strings.ToLower(strings.TrimSpace(string(data))) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
		enabled = false
	default:
		http.Error(w, "expected on or off", http.StatusBadRequest)
		return
	}

	s.assistant.SetSpeakerEnabled(enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"speakerEnabled": enabled})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		s.logger.Error("reading upload body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(data) > maxUploadBytes {
		http.Error(w, "audio too large", http.StatusRequestEntityTooLarge)
		return
	}

	query := r.URL.Query()
	speak := false
	switch strings.ToLower(query.Get("speak")) {
	case "1", "true", "on":
		speak = true
	}

	result, err := s.assistant.Process(r.Context(), data, strings.TrimSpace(query.Get("profile")), speak)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownProfile):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrNoCaptureData):
			http.Error(w, "empty audio", http.StatusBadRequest)
		case errors.Is(err, application.ErrClosed):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.logger.Info("processed upload", "bytes", len(data), "failed", result.Error != nil)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Profiles())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.logger.Info("event subscriber connected", "remote_addr", r.RemoteAddr)
	s.hub.Serve(conn, func() any { return s.assistant.Snapshot() })
	s.logger.Info("event subscriber disconnected", "remote_addr", r.RemoteAddr)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	snap := s.assistant.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"running":     running,
		"state":       snap.State,
		"subscribers": s.hub.Clients(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
