package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-studio/internal/ai"
	"github.com/kozaktomas/face-studio/internal/config"
	"github.com/kozaktomas/face-studio/internal/pipeline"
	"github.com/kozaktomas/face-studio/internal/session"
	"github.com/kozaktomas/face-studio/internal/web/handlers"
	"github.com/kozaktomas/face-studio/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	session    *session.Manager
	provider   ai.Provider
	runner     *pipeline.Runner
	router     *chi.Mux
	httpServer *http.Server
	jobManager *handlers.JobManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, sess *session.Manager, provider ai.Provider, runner *pipeline.Runner, port int, host string) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:     cfg,
		session:    sess,
		provider:   provider,
		runner:     runner,
		router:     r,
		jobManager: handlers.NewJobManager(),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE and uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server. Running batch jobs are
// cancelled; their undispatched targets stay idle for the next start.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	for _, job := range s.jobManager.ListJobs() {
		if job.GetStatus() == handlers.JobStatusRunning {
			job.Cancel()
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
