// Package schema holds the process-wide registry of configuration section
// descriptors. Sections are registered once at process startup and the
// registry is never mutated during reconciliation; declared order doubles as
// the dependency-safe apply order (creates/updates forward, deletes in
// reverse).
package schema

import (
	"fmt"
	"sync"

	"github.com/declarr/declarr/field"
)

type SectionKind int

const (
	// Flat sections hold a single resource (e.g. UI settings).
	Flat SectionKind = iota
	// Collection sections hold a named, keyed set of resources.
	Collection
)

// Section describes one configuration section: where it lives on the remote
// API, whether it is flat or a named collection, and the ordered field specs
// making up its resource shape.
type Section struct {
	Name string
	// Path is the remote API path for the section.
	Path string
	Kind SectionKind
	// NameKey is the wire key carrying the collection entry name.
	NameKey string
	// Provider marks sections using the shared provider wire shape
	// (implementation, configContract, fields array).
	Provider bool
	// TypeKey is the wire key carrying the provider type for provider
	// sections ("definitionName" for indexers, "implementation" elsewhere).
	TypeKey string
	// Updatable is false for sections whose entries can only be created and
	// deleted (tags).
	Updatable bool
	Fields    []field.Spec
}

// FieldSpec returns the named field descriptor.
func (s Section) FieldSpec(name string) (field.Spec, bool) {
	for _, spec := range s.Fields {
		if spec.Name == name {
			return spec, true
		}
	}
	return field.Spec{}, false
}

var (
	registryMu sync.Mutex
	byName     = map[string]int{}
	ordered    []Section
)

// MustRegister adds a section to the registry at startup. Registering a
// duplicate name or an incomplete descriptor is a programming error.
func MustRegister(section Section) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if section.Name == "" || section.Path == "" {
		panic(fmt.Sprintf("schema: section %+v missing name or path", section))
	}
	if _, exists := byName[section.Name]; exists {
		panic(fmt.Sprintf("schema: section %q registered twice", section.Name))
	}
	if section.NameKey == "" {
		section.NameKey = "name"
	}
	byName[section.Name] = len(ordered)
	ordered = append(ordered, section)
}

// Sections returns all registered sections in declared order.
func Sections() []Section {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]Section(nil), ordered...)
}

// Lookup returns the named section descriptor.
func Lookup(name string) (Section, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	idx, ok := byName[name]
	if !ok {
		return Section{}, false
	}
	return ordered[idx], true
}
