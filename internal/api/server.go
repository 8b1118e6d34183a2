// Package api provides the HTTP API of the netenum scan engine.
// It mounts the scan, state and results endpoints under /api/v1 together
// with API docs and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/anstrom/netenum/docs/swagger" // registers the generated API docs
	apihandlers "github.com/anstrom/netenum/internal/api/handlers"
	"github.com/anstrom/netenum/internal/api/middleware"
	"github.com/anstrom/netenum/internal/auth"
	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics"
)

const (
	apiPrefix              = "/api/v1"
	defaultShutdownTimeout = 30 * time.Second
	maxHeaderBytes         = 1 << 20
)

// Dependencies are the services behind the handlers.
type Dependencies struct {
	Scans    apihandlers.ScanStarter
	Hub      *apihandlers.Hub
	State    apihandlers.StateReader
	Networks apihandlers.NetworkLister
	Graph    apihandlers.GraphBuilder
	Store    apihandlers.SnapshotOpener
	// Tokens guards every non-excluded route. Nil or empty disables auth.
	Tokens *auth.TokenSet
	// Metrics backs /metrics and the request metrics. Nil disables both.
	Metrics *metrics.PrometheusMetrics
}

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	config     *config.Config
	limiter    *middleware.RateLimiter
	logger     *logging.Logger
}

// New creates a new API server instance.
func New(cfg *config.Config, deps Dependencies, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api server requires a configuration")
	}
	if deps.Scans == nil || deps.State == nil || deps.Networks == nil || deps.Graph == nil || deps.Store == nil {
		return nil, fmt.Errorf("api server requires scan, state, network, graph and store services")
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger.WithComponent("api"),
	}
	if cfg.API.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.API.RateLimit.Requests, cfg.API.RateLimit.Window)
	}

	s.setupRoutes(deps)
	s.handler = s.setupMiddleware(deps.Tokens)

	s.httpServer = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}
	return s, nil
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(deps Dependencies) {
	health := apihandlers.NewHealthHandler(s.logger)
	scans := apihandlers.NewScanHandler(deps.Scans, deps.Hub, s.logger)
	results := apihandlers.NewResultsHandler(deps.State, deps.Networks, deps.Graph, deps.Store, s.logger)

	// API routes stay on the root router: a known path with the wrong
	// method must answer 405.
	s.router.HandleFunc(apiPrefix+"/health", health.Health).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/scan", scans.StartScan).Methods(http.MethodPost)
	s.router.HandleFunc(apiPrefix+"/scan/ws", scans.ScanWebSocket).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/state", results.GetState).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/networks", results.GetNetworks).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/graph", results.GetGraph).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/download", results.Download).Methods(http.MethodGet)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	s.router.NotFoundHandler = http.HandlerFunc(notFound)

	var recorder metrics.Recorder = metrics.Nop{}
	if deps.Metrics != nil {
		recorder = deps.Metrics
		if s.config.Metrics.Enabled {
			s.router.Handle(s.config.Metrics.Path, deps.Metrics.Handler()).Methods(http.MethodGet)
		}
	}
	s.router.Use(middleware.Metrics(recorder))

	s.router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
	))
	s.router.HandleFunc("/", redirectToSwagger).Methods(http.MethodGet)
}

// setupMiddleware wraps the router. Requests pass recovery, logging, CORS,
// rate limiting and authentication in that order.
func (s *Server) setupMiddleware(tokens *auth.TokenSet) http.Handler {
	var h http.Handler = s.router

	h = middleware.Authentication(tokens, s.config.API.ExcludePaths, s.logger)(h)
	if s.limiter != nil {
		h = middleware.RateLimit(s.limiter, s.logger)(h)
	}
	h = handlers.CORS(
		handlers.AllowedOrigins(s.config.API.CORSOrigins),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.ExposedHeaders([]string{"Content-Disposition", "X-Scan-ID", "X-Request-ID"}),
	)(h)
	h = middleware.Logging(s.logger)(h)
	return middleware.Recovery(s.logger)(h)
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled or serving fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting API server",
		"address", ln.Addr().String(),
		"read_timeout", s.httpServer.ReadTimeout,
		"rate_limit", s.limiter != nil)

	if s.limiter != nil {
		s.limiter.StartCleanup(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}

// redirectToSwagger redirects to the Swagger UI.
func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeRouteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeRouteError(w, http.StatusNotFound, "Not found")
}

func writeRouteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func redirectToSwagger(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/swagger/index.html", http.StatusFound)
}
