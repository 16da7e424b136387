package docdb

import (
	"fmt"
	"maps"
	"slices"
)

// Fields is a conjunction of field equalities, keyed by JSON field name.
type Fields map[string]any

// Cursor is a read-only view over a snapshot of a kind's entities.
//
// Filtering narrows the view and never touches the kind or its file.
type Cursor[T Entity] struct {
	rows   []T
	fields fieldIndex
	err    error
}

// Filter returns a cursor over the entities whose fields all equal the given
// values, in the same order.
//
// Naming a field the kind does not have yields an empty cursor whose Err
// returns ErrUnknownField.
func (c *Cursor[T]) Filter(f Fields) *Cursor[T] {
	if c.err != nil {
		return c
	}
	names := slices.Sorted(maps.Keys(f))
	for _, name := range names {
		if _, ok := c.fields[name]; !ok {
			return &Cursor[T]{fields: c.fields, err: fmt.Errorf("%w: %q", ErrUnknownField, name)}
		}
	}
	var out []T
	for _, r := range c.rows {
		if c.match(r, names, f) {
			out = append(out, r)
		}
	}
	return &Cursor[T]{rows: out, fields: c.fields}
}

func (c *Cursor[T]) match(r T, names []string, f Fields) bool {
	for _, name := range names {
		fv, _ := c.fields.value(r, name)
		if !equalValue(fv, f[name]) {
			return false
		}
	}
	return true
}

// All returns the entities in the view, in insertion order.
func (c *Cursor[T]) All() []T {
	return slices.Clone(c.rows)
}

// First returns the first entity in the view.
func (c *Cursor[T]) First() (T, bool) {
	if len(c.rows) == 0 {
		var zero T
		return zero, false
	}
	return c.rows[0], true
}

// Len returns the number of entities in the view.
func (c *Cursor[T]) Len() int {
	return len(c.rows)
}

// Err returns the error of an invalid filter, if any.
func (c *Cursor[T]) Err() error {
	return c.err
}
