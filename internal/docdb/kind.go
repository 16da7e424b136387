package docdb

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

// Kind holds every entity of one type, in insertion order, and the file behind them.
type Kind[T Entity] struct {
	name   string
	path   string
	seq    string // highest id ever assigned, survives removals and restarts
	fields fieldIndex
	schema *jsonschema.Schema

	mu     sync.RWMutex
	rows   []T // copy-on-write: never mutated in place once published
	lastID int64
}

// Register adds a kind named name to s, backed by the file <dir>/<name>.
//
// T must be a pointer to a struct embedding [Model]. Kinds are loaded by
// [Store.Load] in registration order.
func Register[T Entity](s *Store, name string) (*Kind[T], error) {
	if !validKindName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKindName, name)
	}
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("kind %s: type must be a pointer to struct, got %s", name, t)
	}
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(t.Elem())
	schema.Title = name
	k := &Kind[T]{
		name:   name,
		path:   filepath.Join(s.dir, name),
		seq:    filepath.Join(s.dir, "."+name+seqSuffix),
		fields: newFieldIndex(t.Elem()),
		schema: schema,
	}
	if err := s.register(name, t, k); err != nil {
		return nil, err
	}
	return k, nil
}

func validKindName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}

// Name returns the kind's name, which is also its file name.
func (k *Kind[T]) Name() string {
	return k.name
}

// Path returns the kind's backing file.
func (k *Kind[T]) Path() string {
	return k.path
}

// Schema returns the JSON schema of the kind's records.
func (k *Kind[T]) Schema() *jsonschema.Schema {
	return k.schema
}

// Len returns the number of entities.
func (k *Kind[T]) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.rows)
}

// Query returns a cursor over the current entities.
func (k *Kind[T]) Query() *Cursor[T] {
	k.mu.RLock()
	rows := k.rows
	k.mu.RUnlock()
	return &Cursor[T]{rows: rows, fields: k.fields}
}

// Get returns the entity with the given id.
func (k *Kind[T]) Get(id int64) (T, bool) {
	return k.Query().Filter(Fields{"id": id}).First()
}

// Add assigns an id to e when it has none, appends it and persists the kind.
//
// The id high-water mark is persisted before the kind file. On failure the
// entities are unchanged and an assigned id is reset to 0; the id itself may
// stay consumed.
func (k *Kind[T]) Add(e T) error {
	m := e.base()
	if m.Attached() {
		return ErrAlreadyAttached
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	assigned := false
	if m.ID == 0 {
		m.ID = k.nextID()
		assigned = true
	} else if slices.ContainsFunc(k.rows, func(r T) bool { return r.GetID() == m.ID }) {
		return fmt.Errorf("%w: %s %d", ErrDuplicateID, k.name, m.ID)
	}
	if m.ID > k.lastID {
		if err := saveSeq(k.seq, m.ID); err != nil {
			if assigned {
				m.ID = 0
			}
			return err
		}
		k.lastID = m.ID
	}
	rows := append(slices.Clip(k.rows), e)
	if err := saveRows(k.path, rows); err != nil {
		if assigned {
			m.ID = 0
		}
		return err
	}
	k.rows = rows
	m.attach(k)
	return nil
}

// nextID returns one past the largest id ever seen by this kind.
func (k *Kind[T]) nextID() int64 {
	hi := k.lastID
	for _, r := range k.rows {
		hi = max(hi, r.GetID())
	}
	return hi + 1
}

// Remove detaches e, found by identity, and persists the kind without it.
func (k *Kind[T]) Remove(e T) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	i := slices.IndexFunc(k.rows, func(r T) bool { return r.base() == e.base() })
	if i < 0 {
		return ErrNotAttached
	}
	rows := slices.Concat(k.rows[:i], k.rows[i+1:])
	if err := saveRows(k.path, rows); err != nil {
		return err
	}
	k.rows = rows
	e.base().detach()
	return nil
}

// RemoveFunc removes every entity matching del with a single rewrite and
// returns how many were removed.
func (k *Kind[T]) RemoveFunc(del func(T) bool) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var kept, removed []T
	for _, r := range k.rows {
		if del(r) {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := saveRows(k.path, kept); err != nil {
		return 0, err
	}
	k.rows = kept
	for _, r := range removed {
		r.base().detach()
	}
	return len(removed), nil
}

// Modify runs fn on e while holding the kind's write lock, then persists the
// kind. fn must not call Save. If fn returns an error nothing is written, but
// changes fn already made stay in memory.
func (k *Kind[T]) Modify(e T, fn func(T) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !slices.ContainsFunc(k.rows, func(r T) bool { return r.base() == e.base() }) {
		return ErrNotAttached
	}
	if err := fn(e); err != nil {
		return err
	}
	return saveRows(k.path, k.rows)
}

func (k *Kind[T]) persist() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return saveRows(k.path, k.rows)
}

// load replaces the in-memory entities with the file content. On error the
// kind is left empty but keeps its id high-water mark.
func (k *Kind[T]) load() error {
	rows, err := loadRows[T](k.name, k.path)
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, r := range k.rows {
		r.base().detach()
	}
	k.rows = nil
	if last, serr := loadSeq(k.seq); serr != nil {
		slog.Warn("docdb: ignoring unreadable id sequence", "kind", k.name, "err", serr)
	} else {
		k.lastID = max(k.lastID, last)
	}
	if err != nil {
		return err
	}
	for _, r := range rows {
		r.base().attach(k)
		k.lastID = max(k.lastID, r.GetID())
	}
	k.rows = rows
	return nil
}

func (k *Kind[T]) addEntity(e Entity) error {
	t, ok := e.(T)
	if !ok {
		return fmt.Errorf("%w: %T is not %s", ErrUnknownKind, e, k.name)
	}
	return k.Add(t)
}

func (k *Kind[T]) removeEntity(e Entity) error {
	t, ok := e.(T)
	if !ok {
		return fmt.Errorf("%w: %T is not %s", ErrUnknownKind, e, k.name)
	}
	return k.Remove(t)
}
