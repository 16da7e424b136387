package docdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

// kindHandle is the type-erased view of a [Kind] used by the [Store].
type kindHandle interface {
	Name() string
	Path() string
	Len() int
	Schema() *jsonschema.Schema
	load() error
	addEntity(e Entity) error
	removeEntity(e Entity) error
}

// KindInfo is the untyped view of a registered kind.
type KindInfo interface {
	Name() string
	Path() string
	Len() int
	Schema() *jsonschema.Schema
}

// Store is the authority over every registered kind stored under one directory.
type Store struct {
	dir string

	mu     sync.RWMutex
	order  []kindHandle
	byName map[string]kindHandle
	byType map[reflect.Type]kindHandle
}

// Open returns a store rooted at dir, creating the directory if needed.
//
// Kinds must be registered with [Register] before calling [Store.Load].
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directory is shared with admin tools
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{
		dir:    dir,
		byName: map[string]kindHandle{},
		byType: map[reflect.Type]kindHandle{},
	}, nil
}

// Dir returns the directory holding the kind files.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) register(name string, t reflect.Type, k kindHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrKindExists, name)
	}
	if prev, ok := s.byType[t]; ok {
		return fmt.Errorf("%w: %s is already registered as %s", ErrKindExists, t, prev.Name())
	}
	s.order = append(s.order, k)
	s.byName[name] = k
	s.byType[t] = k
	return nil
}

// Load reads every registered kind from disk, in registration order.
//
// A kind whose file cannot be used starts empty: the failure is logged and the
// file is renamed to <name>.corrupt so the next write cannot replace it. Load
// only fails when ctx is done.
func (s *Store) Load(ctx context.Context) error {
	s.mu.RLock()
	kinds := append([]kindHandle(nil), s.order...)
	s.mu.RUnlock()
	for _, k := range kinds {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := k.load()
		if err == nil {
			slog.DebugContext(ctx, "docdb: loaded", "kind", k.Name(), "count", k.Len())
			continue
		}
		quarantine := k.Path() + ".corrupt"
		if rerr := os.Rename(k.Path(), quarantine); rerr != nil {
			slog.ErrorContext(ctx, "docdb: unusable kind, failed to set aside; the next write replaces it", "kind", k.Name(), "err", err, "rename", rerr)
			continue
		}
		if errors.Is(err, ErrCorruptRecord) {
			slog.WarnContext(ctx, "docdb: corrupt kind, starting empty", "kind", k.Name(), "err", err, "moved_to", quarantine)
		} else {
			slog.ErrorContext(ctx, "docdb: failed to read kind, starting empty", "kind", k.Name(), "err", err, "moved_to", quarantine)
		}
	}
	return nil
}

// Add adds e to the kind registered for its type. See [Kind.Add].
func (s *Store) Add(e Entity) error {
	k, err := s.kindOf(e)
	if err != nil {
		return err
	}
	return k.addEntity(e)
}

// Remove removes e from the kind registered for its type. See [Kind.Remove].
func (s *Store) Remove(e Entity) error {
	k, err := s.kindOf(e)
	if err != nil {
		return err
	}
	return k.removeEntity(e)
}

func (s *Store) kindOf(e Entity) (kindHandle, error) {
	t := reflect.TypeOf(e)
	s.mu.RLock()
	k, ok := s.byType[t]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, t)
	}
	return k, nil
}

// Kind returns the registered kind with the given name.
func (s *Store) Kind(name string) (KindInfo, error) {
	s.mu.RLock()
	k, ok := s.byName[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return k, nil
}

// Kinds returns the registered kind names in registration order.
func (s *Store) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	for i, k := range s.order {
		names[i] = k.Name()
	}
	return names
}

// Schema returns the JSON schema of the named kind.
func (s *Store) Schema(name string) (*jsonschema.Schema, error) {
	k, err := s.Kind(name)
	if err != nil {
		return nil, err
	}
	return k.Schema(), nil
}
