package handlers

import (
	"context"

	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/storage"
)

// SchemaHandler describes the stored kinds.
type SchemaHandler struct {
	svc *Services
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(svc *Services) *SchemaHandler {
	return &SchemaHandler{svc: svc}
}

// GetSchema returns the JSON schema and record count of a kind.
func (h *SchemaHandler) GetSchema(_ context.Context, _ *storage.User, req *dto.GetSchemaRequest) (*dto.SchemaResponse, error) {
	k, err := h.svc.DB.Kind(req.Kind)
	if err != nil {
		return nil, dto.NotFound("kind " + req.Kind)
	}
	return &dto.SchemaResponse{Kind: k.Name(), Count: k.Len(), Schema: k.Schema()}, nil
}
