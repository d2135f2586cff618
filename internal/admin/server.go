// Package admin exposes a running queue over HTTP: status, recent tasks,
// pause, resume, kill and live concurrency changes.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Swind/go-simpleq/core"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Controller is the queue surface the admin API drives.
// *core.Queue satisfies it for any payload and result type.
type Controller interface {
	Stats() core.QueueStats
	RecentTasks(limit int) []core.TaskExecutionRecord
	Pause()
	Resume()
	Kill()
	SetConcurrency(n int) error
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h under /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// Server represents the admin API server.
type Server struct {
	router   chi.Router
	handlers *Handlers
	logger   core.Logger
	metrics  http.Handler
	origins  []string
}

// NewServer creates the admin API for ctrl.
func NewServer(ctrl Controller, logger core.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	s := &Server{
		router:   chi.NewRouter(),
		handlers: &Handlers{ctrl: ctrl, logger: logger},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	if len(s.origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1/queue", func(r chi.Router) {
		r.Get("/status", s.handlers.GetStatus)
		r.Get("/tasks", s.handlers.ListTasks)
		r.Post("/pause", s.handlers.Pause)
		r.Post("/resume", s.handlers.Resume)
		r.Post("/kill", s.handlers.Kill)
		r.Put("/concurrency", s.handlers.SetConcurrency)
	})

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}
}

// Router returns the chi router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("admin request",
			core.F("method", r.Method),
			core.F("path", r.URL.Path),
			core.F("status", ww.Status()),
			core.F("duration", time.Since(start)),
			core.F("request_id", middleware.GetReqID(r.Context())))
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	return ListenAndServe(ctx, addr, s.router, s.logger, ready)
}

// ListenAndServe serves h on addr until ctx is done. It is shared by the
// admin API and the standalone metrics endpoint.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger core.Logger, ready func(net.Addr)) error {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logger.Info("http listening", core.F("addr", ln.Addr().String()))
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
