package resource

import (
	"sort"

	"github.com/declarr/declarr/field"
)

type Value = any

// Identity addresses one remote resource: the numeric id assigned by the
// remote instance plus the display name used as the collection key.
type Identity struct {
	ID   int64
	Name string
}

// Resource is one configuration section or one entry of a named collection:
// an ordered bundle of field values described by the section's field specs.
type Resource struct {
	// Section is the schema section the resource belongs to; two resources
	// are diffable only when their sections match.
	Section string
	// Name is the collection key. Empty for flat sections.
	Name string
	// RemoteID is the identity assigned by the remote instance; zero for
	// local-only resources.
	RemoteID int64
	Values   map[string]Value
}

func (r Resource) Identity() Identity {
	return Identity{ID: r.RemoteID, Name: r.Name}
}

// Value returns the named field value, or the nil zero value when unset.
func (r Resource) Value(name string) Value {
	if r.Values == nil {
		return nil
	}
	return r.Values[name]
}

// Clone returns a shallow-field copy safe to mutate independently.
func (r Resource) Clone() Resource {
	values := make(map[string]Value, len(r.Values))
	for key, value := range r.Values {
		values[key] = value
	}
	out := r
	out.Values = values
	return out
}

// FieldDelta records one field-level change between a local and a remote
// resource.
type FieldDelta struct {
	Field string
	Old   Value // remote-actual value
	New   Value // local-desired value
}

// FieldError records a per-field comparison failure. Field errors exclude
// only that field from the delta set; they never abort the resource diff.
type FieldError struct {
	Field string
	Err   error
}

// Collection is a named, keyed set of resources. Names are unique; insertion
// order is irrelevant for diffing.
type Collection map[string]Resource

// SortedNames returns the collection keys in lexical order for deterministic
// iteration.
func (c Collection) SortedNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectionState is the state of one section inside a configuration tree:
// either a single flat resource or a named collection.
type SectionState struct {
	Flat       *Resource
	Collection Collection
	// Order lists collection entry names in the order they appear in the
	// desired document, so planned creates stay reproducible across runs.
	// Empty on actual trees; lexical order is used as the fallback.
	Order []string
	// DeleteUnmanaged opts the section in to deleting remote entries absent
	// from the desired document. Only meaningful on desired trees.
	DeleteUnmanaged bool
}

// Tree is a full desired-or-actual configuration state, keyed by section
// name. Trees are built fresh per reconciliation run and never mutated in
// place.
type Tree struct {
	Sections map[string]SectionState
}

func NewTree() *Tree {
	return &Tree{Sections: map[string]SectionState{}}
}

func (t *Tree) Section(name string) (SectionState, bool) {
	if t == nil || t.Sections == nil {
		return SectionState{}, false
	}
	state, ok := t.Sections[name]
	return state, ok
}

func (t *Tree) SetFlat(name string, res Resource) {
	state := t.Sections[name]
	state.Flat = &res
	t.Sections[name] = state
}

func (t *Tree) SetCollection(name string, col Collection) {
	state := t.Sections[name]
	state.Collection = col
	t.Sections[name] = state
}

// Specs is a convenience alias for a section's ordered field descriptors.
type Specs = []field.Spec
