// Package entities defines the entity records that groups are assembled from.
// An entity is one record from one of the two data sources; its key is an
// opaque identifier owned by the record parser upstream of this module.
package entities

import (
	"strings"
)

// Key uniquely identifies one source record. The format is owned by an
// external collaborator; this module treats keys as opaque, totally-ordered,
// hashable values.
type Key string

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }

// Less reports whether k sorts before other in the canonical key order
// (plain string order).
func (k Key) Less(other Key) bool { return k < other }

// Source identifies which of the two data sources a record came from.
type Source string

// Known sources.
const (
	// SourceRegistry is the primary registry data source.
	SourceRegistry Source = "registry"
	// SourceDirectory is the secondary directory data source.
	SourceDirectory Source = "directory"
)

// Kind is the structural type of a record.
type Kind string

// Known record kinds.
const (
	// KindHousehold is a collective household record (multiple people
	// sharing one record).
	KindHousehold Kind = "household"
	// KindIndividual is a single-person record.
	KindIndividual Kind = "individual"
	// KindOrganization is a business or organization record.
	KindOrganization Kind = "organization"
)

// Entity is one source record.
type Entity struct {
	Key    Key    `json:"key" yaml:"key"`
	Source Source `json:"source" yaml:"source"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Universe is the set of all entities known to a build run. Lookups are by
// key; the universe is read-only once loaded.
type Universe struct {
	entities map[Key]*Entity
}

// NewUniverse creates a universe from the given entities. Later duplicates
// of the same key replace earlier ones.
func NewUniverse(ents ...*Entity) *Universe {
	u := &Universe{entities: make(map[Key]*Entity, len(ents))}
	for _, e := range ents {
		u.entities[e.Key] = e
	}
	return u
}

// Contains reports whether the key exists in the universe.
func (u *Universe) Contains(key Key) bool {
	_, ok := u.entities[key]
	return ok
}

// Get returns the entity for the key, or nil if absent.
func (u *Universe) Get(key Key) *Entity {
	return u.entities[key]
}

// Len returns the number of entities in the universe.
func (u *Universe) Len() int { return len(u.entities) }

// Keys returns all keys in the universe in unspecified order.
func (u *Universe) Keys() []Key {
	keys := make([]Key, 0, len(u.entities))
	for k := range u.entities {
		keys = append(keys, k)
	}
	return keys
}

// PairID returns a canonical identifier for an unordered key pair: the two
// keys joined in sorted order. Both orderings of the same pair produce the
// same identifier, so symmetric lookups are symmetric by construction.
func PairID(a, b Key) string {
	if b.Less(a) {
		a, b = b, a
	}
	return string(a) + "\x00" + string(b)
}

// ParseSource converts a string to a Source, case-insensitively.
// Unrecognized values are returned as-is so unknown sources still classify
// (they rank last in phase ordering).
func ParseSource(s string) Source {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SourceRegistry):
		return SourceRegistry
	case string(SourceDirectory):
		return SourceDirectory
	default:
		return Source(s)
	}
}

// ParseKind converts a string to a Kind, case-insensitively. Unrecognized
// values are returned as-is.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindHousehold):
		return KindHousehold
	case string(KindIndividual):
		return KindIndividual
	case string(KindOrganization):
		return KindOrganization
	default:
		return Kind(s)
	}
}
