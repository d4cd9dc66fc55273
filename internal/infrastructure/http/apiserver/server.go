// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/http/handlers"
	"github.com/platewise/v1/internal/infrastructure/http/middleware"
	"github.com/platewise/v1/internal/ports/inbound"
)

// APIServer serves the catalog and menu upload REST API
type APIServer struct {
	config        *config.Config
	logger        *zap.Logger
	server        *http.Server
	router        *chi.Mux
	menuService   inbound.MenuService
	uploadService inbound.UploadService
}

// NewAPIServer creates a new API server instance
func NewAPIServer(
	cfg *config.Config,
	log *zap.Logger,
	menuService inbound.MenuService,
	uploadService inbound.UploadService,
) *APIServer {
	server := &APIServer{
		config:        cfg,
		logger:        log,
		menuService:   menuService,
		uploadService: uploadService,
	}

	server.router = server.setupRoutes()
	server.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        server.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return server
}

// setupRoutes configures JSON API routes
func (s *APIServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	if s.config.Server.EnableCORS {
		r.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	}

	// Pipeline runs synchronously inside the request, so the request
	// timeout must cover both LLM calls.
	r.Use(chimiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.JSONBody())

	r.Get("/health", s.handleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		s.setupAPIV1Routes(r)
	})

	return r
}

// setupAPIV1Routes configures API v1 endpoints
func (s *APIServer) setupAPIV1Routes(r chi.Router) {
	menuH := handlers.NewMenuAPIHandlers(s.menuService, s.logger)
	uploadH := handlers.NewUploadAPIHandlers(s.uploadService, s.config, s.logger)

	r.Route("/restaurants", func(r chi.Router) {
		r.Get("/", menuH.ListRestaurants)
		r.Post("/", menuH.CreateRestaurant)

		r.Route("/{restaurantID}", func(r chi.Router) {
			r.Get("/", menuH.GetRestaurant)
			r.Get("/sections", menuH.ListSections)
			r.Put("/sections/{sectionID}", menuH.UpdateSection)
			r.Delete("/sections/{sectionID}", menuH.DeleteSection)
			r.Get("/recipes", menuH.ListRecipes)
			r.Post("/recipes", menuH.CreateRecipe)
			r.Get("/uploads", uploadH.ListUploads)
			r.Post("/uploads", uploadH.CreateUpload)
		})
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Put("/{recipeID}", menuH.UpdateRecipe)
		r.Delete("/{recipeID}", menuH.DeleteRecipe)
		r.Get("/{recipeID}/details", menuH.GetRecipeDetails)
		r.Post("/{recipeID}/approve", menuH.ApproveRecipe)
	})

	r.Get("/uploads/{uploadID}", uploadH.GetUpload)
	r.Get("/allergens", menuH.ListAllergenMarkers)
}

// Start starts the API HTTP server
func (s *APIServer) Start() error {
	s.logger.Info("Starting API server",
		zap.String("address", s.server.Addr),
	)

	return s.server.ListenAndServe()
}

// Server returns the underlying HTTP server instance
func (s *APIServer) Server() *http.Server {
	return s.server
}

// Shutdown gracefully shuts down the API server
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// handleHealthCheck provides health check endpoint
func (s *APIServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, `{"status":"healthy","service":"%s","version":"%s","timestamp":%d}`,
		s.config.App.Name, s.config.App.Version, time.Now().Unix())
}
