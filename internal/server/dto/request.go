// Defines API request types and their validation.

package dto

import "strings"

// HealthRequest is a request to check system health.
type HealthRequest struct{}

// Validate is a no-op.
func (r *HealthRequest) Validate() error {
	return nil
}

// LoginRequest signs a user in, creating the account when the name is new.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the login request fields.
func (r *LoginRequest) Validate() error {
	return validateCredentials(r.Username, r.Password)
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the registration request fields.
func (r *RegisterRequest) Validate() error {
	return validateCredentials(r.Username, r.Password)
}

// LogoutRequest ends the current session.
type LogoutRequest struct{}

// Validate is a no-op.
func (r *LogoutRequest) Validate() error {
	return nil
}

// GetMeRequest returns the authenticated user.
type GetMeRequest struct{}

// Validate is a no-op.
func (r *GetMeRequest) Validate() error {
	return nil
}

// ListNotesRequest lists the caller's notes, optionally only those carrying Tag.
type ListNotesRequest struct {
	Tag string `query:"tag" json:"-"`
}

// Validate is a no-op.
func (r *ListNotesRequest) Validate() error {
	return nil
}

// CreateNoteRequest creates a note.
type CreateNoteRequest struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
}

// Validate validates the note fields.
func (r *CreateNoteRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return MissingField("title")
	}
	return nil
}

// GetNoteRequest fetches one note.
type GetNoteRequest struct {
	ID int64 `path:"id" json:"-"`
}

// Validate validates the note id.
func (r *GetNoteRequest) Validate() error {
	return validateNoteID(r.ID)
}

// UpdateNoteRequest replaces the content of a note.
type UpdateNoteRequest struct {
	ID    int64    `path:"id" json:"-"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags,omitempty"`
}

// Validate validates the note id and fields.
func (r *UpdateNoteRequest) Validate() error {
	if err := validateNoteID(r.ID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Title) == "" {
		return MissingField("title")
	}
	return nil
}

// DeleteNoteRequest deletes one note.
type DeleteNoteRequest struct {
	ID int64 `path:"id" json:"-"`
}

// Validate validates the note id.
func (r *DeleteNoteRequest) Validate() error {
	return validateNoteID(r.ID)
}

// GetSchemaRequest fetches the JSON schema of a stored kind.
type GetSchemaRequest struct {
	Kind string `path:"kind" json:"-"`
}

// Validate validates the kind name.
func (r *GetSchemaRequest) Validate() error {
	if r.Kind == "" {
		return MissingField("kind")
	}
	return nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return MissingField("username")
	}
	if password == "" {
		return MissingField("password")
	}
	return nil
}

func validateNoteID(id int64) error {
	if id <= 0 {
		return BadRequest("Invalid note id")
	}
	return nil
}
