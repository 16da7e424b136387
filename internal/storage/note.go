// Manages notes and their ownership.

package storage

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/memoir/internal/docdb"
)

// Note is a titled text owned by one user.
type Note struct {
	docdb.Model
	OwnerID int64    `json:"owner_id" jsonschema:"description=Id of the owning user"`
	Title   string   `json:"title" jsonschema:"description=Non-empty title"`
	Text    string   `json:"text" jsonschema:"description=Plain text body"`
	Tags    []string `json:"tags" jsonschema:"description=Tags in entry order"`
}

// NoteService handles notes.
type NoteService struct {
	notes *docdb.Kind[*Note]
}

// NewNoteService returns a service over notes.
func NewNoteService(notes *docdb.Kind[*Note]) *NoteService {
	return &NoteService{notes: notes}
}

// Create stores a new note for owner.
func (s *NoteService) Create(owner int64, title, text string, tags []string) (*Note, error) {
	if owner == 0 {
		return nil, &ValidationError{Field: "owner_id", Err: errOwnerRequired}
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	n := &Note{OwnerID: owner, Title: title, Text: text, Tags: cleanTags(tags)}
	if err := s.notes.Add(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns the note with the given id.
func (s *NoteService) Get(id int64) (*Note, error) {
	n, ok := s.notes.Get(id)
	if !ok {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return n, nil
}

// GetOwned returns the note with the given id if owner owns it.
func (s *NoteService) GetOwned(owner, id int64) (*Note, error) {
	n, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if n.OwnerID != owner {
		return nil, fmt.Errorf("note %d: %w", id, ErrForbidden)
	}
	return n, nil
}

// List returns the notes of owner in creation order.
func (s *NoteService) List(owner int64) []*Note {
	return s.notes.Query().Filter(docdb.Fields{"owner_id": owner}).All()
}

// ListByTag returns the notes of owner carrying tag.
func (s *NoteService) ListByTag(owner int64, tag string) []*Note {
	out := s.List(owner)
	if tag == "" {
		return out
	}
	return slices.DeleteFunc(out, func(n *Note) bool { return !slices.Contains(n.Tags, tag) })
}

// Count returns the number of notes of all users.
func (s *NoteService) Count() int {
	return s.notes.Len()
}

// Update replaces the title, text and tags of the note id owned by owner.
func (s *NoteService) Update(owner, id int64, title, text string, tags []string) (*Note, error) {
	n, err := s.GetOwned(owner, id)
	if err != nil {
		return nil, err
	}
	if title, err = normalizeTitle(title); err != nil {
		return nil, err
	}
	err = s.notes.Modify(n, func(n *Note) error {
		n.Title = title
		n.Text = text
		n.Tags = cleanTags(tags)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes the note id owned by owner.
func (s *NoteService) Delete(owner, id int64) error {
	n, err := s.GetOwned(owner, id)
	if err != nil {
		return err
	}
	return s.notes.Remove(n)
}

// DeleteByOwner removes every note of owner and returns how many were removed.
func (s *NoteService) DeleteByOwner(owner int64) (int, error) {
	return s.notes.RemoveFunc(func(n *Note) bool { return n.OwnerID == owner })
}

// Draft returns an unsaved note for owner holding imported text, titled after
// the file name without its extension.
func (s *NoteService) Draft(owner int64, filename, text string) *Note {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	return &Note{
		OwnerID: owner,
		Title:   strings.TrimSuffix(base, filepath.Ext(base)),
		Text:    text,
		Tags:    []string{},
	}
}

// ParseTags splits a comma separated list, trimming spaces and dropping
// empty entries.
func ParseTags(s string) []string {
	return cleanTags(strings.Split(s, ","))
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Err: errTitleRequired}
	}
	return title, nil
}
