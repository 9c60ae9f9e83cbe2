// Package server provides the HTTP API of the interview engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/config"
	"github.com/jonathan/interview-engine/internal/server/middleware"
	"github.com/jonathan/interview-engine/internal/server/ratelimit"
	"github.com/jonathan/interview-engine/internal/session"
	"github.com/jonathan/interview-engine/internal/types"
	"go.uber.org/zap"
)

// Engine is the session API the server exposes.
type Engine interface {
	Schedule(ctx context.Context, req types.ScheduleSessionRequest) (types.SessionSnapshot, error)
	Start(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error)
	SubmitResponse(ctx context.Context, id uuid.UUID, req types.SubmitResponseRequest) (session.SubmitResult, error)
	Pause(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error)
	Resume(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error)
	Cancel(ctx context.Context, id uuid.UUID, req types.CancelSessionRequest) (types.SessionSnapshot, error)
	Snapshot(ctx context.Context, id uuid.UUID) (types.SessionSnapshot, error)
	CurrentQuestion(ctx context.Context, id uuid.UUID) (*types.QuestionView, error)
	Audit(ctx context.Context, id uuid.UUID) ([]types.AuditEntry, error)
}

var _ Engine = (*session.Engine)(nil)

// Config holds server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       *ratelimit.Config
	// JWT enables bearer authentication; nil serves every route anonymously.
	JWT *config.JWTConfig
}

// Server is the HTTP front of the engine.
type Server struct {
	httpServer      *http.Server
	engine          Engine
	rateLimiter     *ratelimit.Limiter
	jwtService      *JWTService
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// New creates a server over engine.
func New(cfg Config, engine Engine, logger *zap.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server requires an engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		engine:          engine,
		logger:          logger.Named("http"),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.JWT != nil {
		if err := cfg.JWT.Validate(); err != nil {
			return nil, fmt.Errorf("invalid JWT config: %w", err)
		}
		s.jwtService = NewJWTService(cfg.JWT)
	}
	s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

var (
	staff    = []string{middleware.RoleInterviewer, middleware.RoleService}
	everyone = []string{middleware.RoleInterviewer, middleware.RoleService, middleware.RoleCandidate}
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handle(mux, "POST /sessions", s.handleSchedule, staff)
	s.handle(mux, "GET /sessions/{id}", s.handleGetSession, everyone)
	s.handle(mux, "POST /sessions/{id}/start", s.handleStart, everyone)
	s.handle(mux, "POST /sessions/{id}/responses", s.handleSubmitResponse, everyone)
	s.handle(mux, "GET /sessions/{id}/current-question", s.handleCurrentQuestion, everyone)
	s.handle(mux, "POST /sessions/{id}/pause", s.handlePause, staff)
	s.handle(mux, "POST /sessions/{id}/resume", s.handleResume, staff)
	s.handle(mux, "POST /sessions/{id}/cancel", s.handleCancel, staff)
	s.handle(mux, "GET /sessions/{id}/audit", s.handleAudit, staff)

	return middleware.Logging(s.logger)(s.withRateLimit(mux))
}

// handle registers h behind authentication and a role check when auth is on.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, roles []string) {
	if s.jwtService == nil {
		mux.Handle(pattern, h)
		return
	}
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	mux.Handle(pattern, auth(middleware.RequireRole(roles...)(h)))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases background resources of a server that was never run.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		}
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())+1))
			}
			s.logger.Info("rate limit exceeded",
				zap.String("client", clientID(r)),
				zap.String("path", r.URL.Path))
			s.jsonResponse(w, http.StatusTooManyRequests, errorBody{
				Error:       "rate limit exceeded, please try again later",
				Code:        "rate_limited",
				Recoverable: true,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID uses the remote IP; forwarded headers are not trusted.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorPayload(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	s.jsonResponse(w, status, body)
}
