package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"treeviz-backend/infrastructure/di"
	"treeviz-backend/interfaces/http/rest/handlers"
	"treeviz-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(rt.logger))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.container.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API routes
	router.Route("/api", func(r chi.Router) {
		// Apply authentication middleware for API routes
		r.Use(middleware.Authenticate(rt.container.JWTValidator, rt.logger))

		// Chat endpoints
		r.Route("/chat", func(r chi.Router) {
			chatHandler := handlers.NewChatHandler(rt.container.ChatService, rt.logger)
			r.Post("/message", chatHandler.SendMessage)
			r.Get("/history/{sessionID}", chatHandler.GetHistory)
			r.Delete("/history/{sessionID}", chatHandler.ClearHistory)
		})

		// Tree session endpoints
		r.Route("/tree", func(r chi.Router) {
			treeHandler := handlers.NewTreeHandler(rt.container.TreeService, rt.logger)
			r.Post("/sessions", treeHandler.CreateSession)
			r.Get("/sessions", treeHandler.ListSessions)
			r.Get("/sessions/{sessionID}", treeHandler.GetSession)
			r.Put("/sessions/{sessionID}", treeHandler.UpdateSession)
			r.Delete("/sessions/{sessionID}", treeHandler.DeleteSession)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
