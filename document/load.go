// Package document loads desired-state documents and dumps actual state back
// into the same YAML shape. A document maps section names to either a flat
// settings mapping or a collection block:
//
//	indexers:
//	  delete_unmanaged: true
//	  definitions:
//	    nyaa-si:
//	      type: nyaa
//	      enable: true
//	ui:
//	  theme: dark
//
// Tags are a bare label list under definitions. Collection definition order
// is preserved so planned creates happen in document order.
package document

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

// Load reads and parses the desired document at path.
func Load(path string) (*resource.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("failed to read document %q", path), err)
	}
	return Parse(data)
}

// Parse builds a desired configuration tree from document bytes. Section and
// field names are validated against the registry up front so typos fail
// before any remote call.
func Parse(data []byte) (*resource.Tree, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "document is not valid yaml", err)
	}

	tree := resource.NewTree()
	if root.Kind == 0 || len(root.Content) == 0 {
		return tree, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, faults.NewTypedError(faults.SchemaMismatch, "document root must be a mapping of sections", nil)
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		section, ok := schema.Lookup(name)
		if !ok {
			return nil, faults.NewTypedError(faults.SchemaMismatch,
				fmt.Sprintf("unknown section %q on line %d", name, doc.Content[i].Line), nil)
		}
		if _, dup := tree.Sections[name]; dup {
			return nil, faults.NewTypedError(faults.ValidationError,
				fmt.Sprintf("section %q declared twice", name), nil)
		}

		node := doc.Content[i+1]
		var (
			state resource.SectionState
			err   error
		)
		if section.Kind == schema.Flat {
			state, err = parseFlat(section, node)
		} else {
			state, err = parseCollection(section, node)
		}
		if err != nil {
			return nil, err
		}
		tree.Sections[name] = state
	}
	return tree, nil
}

func parseFlat(section schema.Section, node *yaml.Node) (resource.SectionState, error) {
	values, err := parseValues(section, "", node)
	if err != nil {
		return resource.SectionState{}, err
	}
	res := resource.Resource{Section: section.Name, Values: values}
	return resource.SectionState{Flat: &res}, nil
}

func parseCollection(section schema.Section, node *yaml.Node) (resource.SectionState, error) {
	if node.Kind != yaml.MappingNode {
		return resource.SectionState{}, faults.NewTypedError(faults.SchemaMismatch,
			fmt.Sprintf("section %q must be a mapping on line %d", section.Name, node.Line), nil)
	}

	state := resource.SectionState{Collection: resource.Collection{}}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "delete_unmanaged":
			if err := value.Decode(&state.DeleteUnmanaged); err != nil {
				return resource.SectionState{}, faults.NewTypedError(faults.ValidationError,
					fmt.Sprintf("section %q delete_unmanaged must be a boolean", section.Name), err)
			}
		case "definitions":
			if err := parseDefinitions(section, value, &state); err != nil {
				return resource.SectionState{}, err
			}
		default:
			return resource.SectionState{}, faults.NewTypedError(faults.SchemaMismatch,
				fmt.Sprintf("section %q has unknown key %q on line %d", section.Name, key, node.Content[i].Line), nil)
		}
	}
	return state, nil
}

func parseDefinitions(section schema.Section, node *yaml.Node, state *resource.SectionState) error {
	// Tags carry no fields; their definitions are a bare label list.
	if len(section.Fields) == 0 {
		if node.Kind != yaml.SequenceNode {
			return faults.NewTypedError(faults.SchemaMismatch,
				fmt.Sprintf("section %q definitions must be a list of names", section.Name), nil)
		}
		for _, item := range node.Content {
			name := item.Value
			if err := addDefinition(section, state, name, map[string]resource.Value{}); err != nil {
				return err
			}
		}
		return nil
	}

	if node.Kind != yaml.MappingNode {
		return faults.NewTypedError(faults.SchemaMismatch,
			fmt.Sprintf("section %q definitions must be a mapping of names", section.Name), nil)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		values, err := parseValues(section, name, node.Content[i+1])
		if err != nil {
			return err
		}
		if err := addDefinition(section, state, name, values); err != nil {
			return err
		}
	}
	return nil
}

func addDefinition(section schema.Section, state *resource.SectionState, name string, values map[string]resource.Value) error {
	if name == "" {
		return faults.NewTypedError(faults.ValidationError,
			fmt.Sprintf("section %q has an entry without a name", section.Name), nil)
	}
	if _, dup := state.Collection[name]; dup {
		return faults.NewTypedError(faults.ValidationError,
			fmt.Sprintf("section %q defines %q twice", section.Name, name), nil)
	}
	state.Collection[name] = resource.Resource{Section: section.Name, Name: name, Values: values}
	state.Order = append(state.Order, name)
	return nil
}

func parseValues(section schema.Section, entry string, node *yaml.Node) (map[string]resource.Value, error) {
	if node.Kind != yaml.MappingNode {
		return nil, faults.NewTypedError(faults.SchemaMismatch,
			fmt.Sprintf("%s must be a mapping of fields on line %d", describeEntry(section, entry), node.Line), nil)
	}

	values := map[string]resource.Value{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		fieldName := node.Content[i].Value
		if _, known := section.FieldSpec(fieldName); !known {
			return nil, faults.NewTypedError(faults.SchemaMismatch,
				fmt.Sprintf("%s has unknown field %q on line %d", describeEntry(section, entry), fieldName, node.Content[i].Line), nil)
		}

		var raw any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return nil, faults.NewTypedError(faults.ValidationError,
				fmt.Sprintf("%s field %q is not decodable", describeEntry(section, entry), fieldName), err)
		}
		normalized, err := resource.Normalize(raw)
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError,
				fmt.Sprintf("%s field %q has an unsupported value", describeEntry(section, entry), fieldName), err)
		}
		// Provider types are case-insensitive remotely and always reported
		// lowercased; fold them here so plans converge.
		if fieldName == "type" {
			if s, ok := normalized.(string); ok {
				normalized = strings.ToLower(s)
			}
		}
		values[fieldName] = normalized
	}
	return values, nil
}

func describeEntry(section schema.Section, entry string) string {
	if entry == "" {
		return fmt.Sprintf("section %q", section.Name)
	}
	return fmt.Sprintf("section %q entry %q", section.Name, entry)
}
