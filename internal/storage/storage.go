// Package storage holds the application's entities and the services that
// manage them on top of a docdb store.
package storage

import (
	"context"
	"path/filepath"

	"github.com/maruel/memoir/internal/docdb"
)

// Kind names. They are also the file names under <data>/db.
const (
	KindUser    = "User"
	KindNote    = "Note"
	KindSession = "Session"
)

// Options tunes the services. The zero value disables the limits.
type Options struct {
	MaxUsers int
}

// Storage is the set of services sharing one store.
type Storage struct {
	DB       *docdb.Store
	Users    *UserService
	Notes    *NoteService
	Sessions *SessionService
}

// Open opens the store in <dataDir>/db, registers the kinds and loads them.
func Open(ctx context.Context, dataDir string, opts Options) (*Storage, error) {
	db, err := docdb.Open(filepath.Join(dataDir, "db"))
	if err != nil {
		return nil, err
	}
	users, err := docdb.Register[*User](db, KindUser)
	if err != nil {
		return nil, err
	}
	notes, err := docdb.Register[*Note](db, KindNote)
	if err != nil {
		return nil, err
	}
	sessions, err := docdb.Register[*Session](db, KindSession)
	if err != nil {
		return nil, err
	}
	if err := db.Load(ctx); err != nil {
		return nil, err
	}
	return &Storage{
		DB:       db,
		Users:    NewUserService(users, opts.MaxUsers),
		Notes:    NewNoteService(notes),
		Sessions: NewSessionService(sessions),
	}, nil
}
