// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package server exposes the assistant over HTTP.
//
// Routes:
//   - POST /api/assistant/messages  process one user message
//   - GET  /api/assistant/tools     tools the caller may run
//   - GET  /health                  liveness and tool count
//   - GET  /metrics                 Prometheus, when enabled
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/observability"
	"github.com/galaxyco/copilot/pkg/tool"
)

// Assistant processes one user message. *assistant.Orchestrator
// implements it, as does the hot-reloading runtime.
type Assistant interface {
	ProcessMessage(ctx context.Context, text string, conv assistant.Conversation, caller auth.Caller) (*assistant.Response, error)
}

var _ Assistant = (*assistant.Orchestrator)(nil)

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// Server is the copilot HTTP server.
type Server struct {
	cfg       config.ServerConfig
	assistant Assistant
	tools     *tool.Registry

	auth           func(http.Handler) http.Handler
	metrics        observability.Metrics
	metricsPath    string
	metricsHandler http.Handler
	health         HealthFunc

	httpServer *http.Server
}

// Option configures the Server.
type Option func(*Server)

// WithAuth sets the middleware that attaches the auth.Caller to /api requests.
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.auth = mw
	}
}

// WithMetrics records a span and request metrics for every route.
func WithMetrics(m observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMetricsHandler mounts h at path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = h
	}
}

// WithHealthCheck makes /health report 503 while fn fails.
func WithHealthCheck(fn HealthFunc) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// New creates a Server. cfg should have defaults applied.
func New(cfg config.ServerConfig, a Assistant, tools *tool.Registry, opts ...Option) (*Server, error) {
	if a == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}

	s := &Server{cfg: cfg, assistant: a, tools: tools}
	for _, opt := range opts {
		opt(s)
	}
	if s.auth == nil {
		// Without an auth middleware no Caller is ever attached and /api
		// answers 401.
		s.auth = func(next http.Handler) http.Handler { return next }
	}
	return s, nil
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Order: recover -> request id -> metrics -> logging -> cors.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if s.metrics != nil {
		r.Use(observability.HTTPMiddleware(s.metrics, routePattern))
	}
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(s.cfg.CORS))

	r.Get("/health", s.handleHealth)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, s.metricsPath, s.metricsHandler)
	}

	r.Route("/api/assistant", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/messages", s.handleMessage)
		r.Get("/tools", s.handleTools)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", s.cfg.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.cfg.Address()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func corsMiddleware(cors *config.CORSConfig) func(http.Handler) http.Handler {
	if cors == nil {
		cors = &config.CORSConfig{}
	}
	methods := joinOr(cors.AllowedMethods, "GET, POST, OPTIONS")
	headers := joinOr(cors.AllowedHeaders, "Content-Type, Authorization")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				for _, allowed := range cors.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						break
					}
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			if config.BoolValue(cors.AllowCredentials, false) {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
