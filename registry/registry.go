// Package registry implements the per-connection, per-side identifier
// tables VRPN uses to turn string type/sender names into small dense
// numeric IDs, plus the remote-to-local translation table bridging two
// independent registries across a connection.
package registry

import "github.com/vrpn/vrpn-go/wire"

// Registry is an ordered, append-only name<->id table. Inserting a new name
// yields a fresh ID equal to the table's prior size; inserting an existing
// name returns its existing ID. IDs are dense, assigned in registration
// order starting at 0, and never reused or reordered for the life of the
// registry.
type Registry[ID ~int32] struct {
	byName map[string]ID
	byID   []string
}

// New creates an empty registry.
func New[ID ~int32]() *Registry[ID] {
	return &Registry[ID]{byName: map[string]ID{}}
}

// Register returns name's ID, assigning a new one if name hasn't been seen
// before on this registry.
func (r *Registry[ID]) Register(name string) ID {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := ID(len(r.byID))
	r.byName[name] = id
	r.byID = append(r.byID, name)
	return id
}

// ByID returns the name registered under id, if any.
func (r *Registry[ID]) ByID(id ID) (string, bool) {
	if id < 0 || int(id) >= len(r.byID) {
		return "", false
	}
	return r.byID[id], true
}

// ByName returns the ID registered for name, if any.
func (r *Registry[ID]) ByName(name string) (ID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Names returns every registered name in registration (ID) order. Used by
// the endpoint during DescriptionSync to announce every pre-registered name
// to the peer.
func (r *Registry[ID]) Names() []string {
	out := make([]string, len(r.byID))
	copy(out, r.byID)
	return out
}

// Len returns the number of registered names.
func (r *Registry[ID]) Len() int {
	return len(r.byID)
}

// TypeRegistry and SenderRegistry are the two registry instantiations the
// spec names; kept as distinct type aliases so call sites read naturally
// and cannot accidentally mix a type ID into a sender registry or vice
// versa.
type (
	TypeRegistry   = Registry[wire.TypeId]
	SenderRegistry = Registry[wire.SenderId]
)

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry { return New[wire.TypeId]() }

// NewSenderRegistry creates an empty sender registry.
func NewSenderRegistry() *SenderRegistry { return New[wire.SenderId]() }
