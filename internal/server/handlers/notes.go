// Handles note CRUD for the authenticated user.

package handlers

import (
	"context"

	"github.com/maruel/memoir/internal/server/dto"
	"github.com/maruel/memoir/internal/storage"
)

// NoteHandler handles note requests.
type NoteHandler struct {
	svc *Services
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(svc *Services) *NoteHandler {
	return &NoteHandler{svc: svc}
}

// ListNotes returns the user's notes, filtered by tag when given.
func (h *NoteHandler) ListNotes(_ context.Context, user *storage.User, req *dto.ListNotesRequest) (*dto.ListNotesResponse, error) {
	notes := h.svc.Notes.ListByTag(user.ID, req.Tag)
	resp := &dto.ListNotesResponse{Notes: make([]dto.NoteResponse, 0, len(notes))}
	for _, n := range notes {
		resp.Notes = append(resp.Notes, noteToResponse(n))
	}
	return resp, nil
}

// CreateNote stores a new note.
func (h *NoteHandler) CreateNote(_ context.Context, user *storage.User, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	n, err := h.svc.Notes.Create(user.ID, req.Title, req.Text, req.Tags)
	if err != nil {
		return nil, storageError(err, "note", "create note")
	}
	resp := noteToResponse(n)
	return &resp, nil
}

// GetNote returns one note.
func (h *NoteHandler) GetNote(_ context.Context, user *storage.User, req *dto.GetNoteRequest) (*dto.NoteResponse, error) {
	n, err := h.svc.Notes.GetOwned(user.ID, req.ID)
	if err != nil {
		return nil, storageError(err, "note", "get note")
	}
	resp := noteToResponse(n)
	return &resp, nil
}

// UpdateNote replaces a note's title, text and tags.
func (h *NoteHandler) UpdateNote(_ context.Context, user *storage.User, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	n, err := h.svc.Notes.Update(user.ID, req.ID, req.Title, req.Text, req.Tags)
	if err != nil {
		return nil, storageError(err, "note", "update note")
	}
	resp := noteToResponse(n)
	return &resp, nil
}

// DeleteNote removes a note.
func (h *NoteHandler) DeleteNote(_ context.Context, user *storage.User, req *dto.DeleteNoteRequest) (*dto.DeleteNoteResponse, error) {
	if err := h.svc.Notes.Delete(user.ID, req.ID); err != nil {
		return nil, storageError(err, "note", "delete note")
	}
	return &dto.DeleteNoteResponse{Ok: true}, nil
}

func noteToResponse(n *storage.Note) dto.NoteResponse {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.NoteResponse{ID: n.ID, Title: n.Title, Text: n.Text, Tags: tags}
}
