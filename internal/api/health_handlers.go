package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the server",
		Tags:        []string{"Health"},
	}, s.handleHealth)
}

// HealthResponse contains health check data.
type HealthResponse struct {
	Status         string `json:"status" doc:"Overall status" example:"healthy"`
	Store          string `json:"store" doc:"Storage status"`
	IndexedTopics  uint64 `json:"indexed_topics" doc:"Topics in the local search index"`
	SearchDegraded bool   `json:"search_degraded,omitempty" doc:"Search index unavailable"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{Status: "healthy", Store: "ok"}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "health check: store unavailable", "error", err)
		resp.Status = "unhealthy"
		resp.Store = "unavailable"
	}

	if s.search != nil {
		n, err := s.search.DocumentCount()
		if err != nil {
			s.logger.WarnContext(ctx, "health check: search index unavailable", "error", err)
			resp.SearchDegraded = true
		}
		resp.IndexedTopics = n
	}

	return &HealthOutput{Body: resp}, nil
}
