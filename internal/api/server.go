package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mattjoyce/printmesh/internal/events"
	"github.com/mattjoyce/printmesh/internal/printjob"
	"github.com/mattjoyce/printmesh/internal/update"
)

// Dispatcher runs a print job on this host.
type Dispatcher interface {
	Dispatch(ctx context.Context, job printjob.Job) printjob.Result
}

// PrinterLister lists installed printer names.
type PrinterLister interface {
	List(ctx context.Context) []string
}

// PeerClient forwards jobs to and queries other agents.
type PeerClient interface {
	Forward(ctx context.Context, target printjob.PeerTarget, printType, printer, data string) error
	QueryInfo(ctx context.Context, target printjob.PeerTarget) *printjob.PeerInfo
}

// InfoSource describes this agent.
type InfoSource interface {
	Snapshot(ctx context.Context) printjob.PeerInfo
}

// UpdateChecker reports newer agent releases.
type UpdateChecker interface {
	Check(ctx context.Context) (*update.Info, error)
}

// Config holds API server configuration
type Config struct {
	Listen         string
	Application    string
	Version        string
	NetworkMode    bool
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Dispatcher Dispatcher
	Printers   PrinterLister
	Peers      PeerClient
	Local      InfoSource
	Updates    UpdateChecker
	Events     *events.Hub
}

// Server represents the HTTP API server
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	server *http.Server
	pid    int
	now    func() time.Time
}

// New creates a new API server instance
func New(config Config, deps Deps, logger *slog.Logger) *Server {
	if deps.Events == nil {
		deps.Events = events.NewHub(0)
	}
	return &Server{
		config: config,
		deps:   deps,
		logger: logger.With("component", "api"),
		pid:    currentPID(),
		now:    time.Now,
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen, "network_mode", s.config.NetworkMode, "version", s.config.Version)

	// Run server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler builds the routed handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware())

	r.Get("/", s.handleRoot)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/printer", s.handleListPrinters)

	r.Route("/print", func(r chi.Router) {
		r.Post("/zpl", s.handlePrintZPL)
		r.Post("/zpl/tcp", s.handlePrintZPLTCP)
		r.Post("/image", s.handlePrintImage)
		r.Post("/pdf", s.handlePrintPDF)
	})

	r.Route("/network", func(r chi.Router) {
		r.Get("/info", s.handleNetworkInfo)
		r.Get("/remote/info", s.handleRemoteInfo)
		r.Post("/print", s.handleNetworkPrint)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/update", s.handleUpdate)
	})

	r.Get("/events", s.handleEvents)

	return r
}

// corsMiddleware allows any origin in network mode, else only the
// configured front-end origins.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}
	if s.config.NetworkMode {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.New(opts).Handler
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
