// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"peerhive/internal/config"
	"peerhive/internal/domain/identity"
	"peerhive/internal/metrics"
	"peerhive/internal/server/handlers"
)

// Tokens validates request tokens and mints anonymous sessions
type Tokens interface {
	identity.TokenManager
	handlers.AnonymousIssuer
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	feed handlers.FeedService,
	tokens Tokens,
	bus handlers.Subscriber,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(handlers.Authenticate(tokens))

	// Create handler dependencies
	postHandler := handlers.NewPostHandler(feed, logger)
	dashboardHandler := handlers.NewDashboardHandler(feed, cfg.Identity.AdminEmail, logger)
	sessionHandler := handlers.NewSessionHandler(tokens, cfg.Identity.TokenExpiry, logger)
	streamHandler := handlers.NewStreamHandler(
		feed, bus, cfg.Feed.EventsTopic, cfg.Identity.AdminEmail,
		handlers.DefaultWebSocketConfig(), logger,
	)

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Route("/session", func(r chi.Router) {
				r.Get("/", sessionHandler.CurrentIdentity)
				r.Post("/anonymous", sessionHandler.CreateAnonymous)
			})

			r.Post("/classify", postHandler.Classify)

			// Feed API
			r.Route("/posts", func(r chi.Router) {
				r.Get("/", postHandler.ListPosts)
				r.Post("/", postHandler.CreatePost)
				r.Get("/{id}", postHandler.GetPost)
				r.Post("/{id}/votes", postHandler.Vote)
			})

			r.Get("/dashboard", dashboardHandler.GetDashboard)
		})
	})

	// WebSocket endpoints for live sync
	router.Get("/ws/feed", streamHandler.Feed)
	router.Get("/ws/dashboard", streamHandler.Dashboard)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
