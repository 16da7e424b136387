// Defines API response types.

package dto

import "github.com/invopop/jsonschema"

// HealthResponse is a response containing system health status.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Users   int    `json:"users"`
	Notes   int    `json:"notes"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
	// Created is set when login registered a new account.
	Created bool `json:"created,omitempty"`
}

// LogoutResponse confirms the session ended.
type LogoutResponse struct {
	Ok bool `json:"ok"`
}

// NoteResponse is a stored note.
type NoteResponse struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
}

// ListNotesResponse is a list of notes in creation order.
type ListNotesResponse struct {
	Notes []NoteResponse `json:"notes"`
}

// DeleteNoteResponse confirms the deletion.
type DeleteNoteResponse struct {
	Ok bool `json:"ok"`
}

// DraftResponse is an unsaved note built from an imported file.
type DraftResponse struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
}

// SchemaResponse describes a stored kind.
type SchemaResponse struct {
	Kind   string             `json:"kind"`
	Count  int                `json:"count"`
	Schema *jsonschema.Schema `json:"schema"`
}
