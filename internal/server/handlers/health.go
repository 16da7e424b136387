package handlers

import (
	"context"

	"github.com/maruel/memoir/internal/server/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	svc     *Services
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *Services, version string) *HealthHandler {
	return &HealthHandler{svc: svc, version: version}
}

// Health handles health check requests.
func (h *HealthHandler) Health(ctx context.Context, _ *dto.HealthRequest) (*dto.HealthResponse, error) {
	resp := &dto.HealthResponse{Status: "ok", Version: h.version}
	if h.svc != nil {
		resp.Users = h.svc.Users.Count()
		resp.Notes = h.svc.Notes.Count()
	}
	return resp, nil
}
