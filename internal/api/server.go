// Package api provides the HTTP API server and handlers for the Wellspring forum.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wellspringapp/wellspring-server/internal/auth"
	"github.com/wellspringapp/wellspring-server/internal/ratelimit"
	"github.com/wellspringapp/wellspring-server/internal/search"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// Options configures the HTTP layer.
type Options struct {
	// RequestTimeout bounds every request. Zero disables the deadline.
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
	// Production hides internal error messages from clients.
	Production bool
	Version    string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        *store.Store
	services     *Services
	search       *search.Service
	verifier     auth.Verifier
	writeLimiter *ratelimit.KeyedRateLimiter
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// writeLimiter may be nil to disable write rate limiting.
func NewServer(
	store *store.Store,
	services *Services,
	searchService *search.Service,
	verifier auth.Verifier,
	writeLimiter *ratelimit.KeyedRateLimiter,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:        store,
		services:     services,
		search:       searchService,
		verifier:     verifier,
		writeLimiter: writeLimiter,
		router:       chi.NewRouter(),
		logger:       logger,
	}

	s.setupMiddleware(opts)

	version := opts.Version
	if version == "" {
		version = "1.0.0"
	}
	humaConfig := huma.DefaultConfig("Wellspring Forum API", version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO or Firebase ID token",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler(opts.Production)

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, used by tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack. chi requires every
// middleware to be registered before the first route.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(opts.RequestTimeout))
	}
	s.router.Use(authMiddleware(s.verifier, s.logger))
}

// registerRoutes registers every huma operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerTopicRoutes()
	s.registerReplyRoutes()
	s.registerUserRoutes()
	s.registerNotificationRoutes()
	s.registerModerationRoutes()
}
