package docdb

import "sync/atomic"

// Entity is implemented by pointers to structs embedding [Model].
type Entity interface {
	GetID() int64
	base() *Model
}

// persister is the kind an entity is attached to.
type persister interface {
	persist() error
}

type binding struct {
	kind persister
}

// Model is embedded by every stored type. It must not be copied once attached.
type Model struct {
	ID int64 `json:"id" jsonschema:"description=Identifier unique within its kind"`

	owner atomic.Pointer[binding]
}

// GetID returns the entity's id, 0 until it is added to a store.
func (m *Model) GetID() int64 {
	return m.ID
}

// Attached reports whether the entity is currently tracked by a store.
func (m *Model) Attached() bool {
	return m.owner.Load() != nil
}

// Save persists the whole kind the entity belongs to, including any in-place
// field changes made since the last write.
func (m *Model) Save() error {
	b := m.owner.Load()
	if b == nil {
		return ErrNotAttached
	}
	return b.kind.persist()
}

func (m *Model) base() *Model {
	return m
}

func (m *Model) attach(p persister) {
	m.owner.Store(&binding{kind: p})
}

func (m *Model) detach() {
	m.owner.Store(nil)
}
