package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ingest/internal/pipeline"
	"github.com/kozaktomas/photo-ingest/internal/store"
	"github.com/kozaktomas/photo-ingest/internal/web/handlers"
)

func (s *Server) setupRoutes(pipe *pipeline.Pipeline, st store.Store, signer *store.Signer, concurrency int) {
	ingestHandler := handlers.NewIngestHandler(pipe, concurrency)
	imagesHandler := handlers.NewImagesHandler(st, signer)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", ingestHandler.Ingest)

		r.Get("/images", imagesHandler.List)
		r.Get("/images/labels", imagesHandler.Labels)
		r.Get("/images/{id}/content", imagesHandler.Content)
		r.Post("/images/refresh", imagesHandler.Refresh)
	})
}
