package document

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

const dumpIndent = 2

// Marshal renders a configuration tree as a desired document. Sections come
// out in registry order and entry fields in spec order, so dumps of the same
// instance are byte-stable; parsing the dump back and planning it against the
// same instance yields an empty changeset.
func Marshal(tree *resource.Tree) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, section := range schema.Sections() {
		state, ok := tree.Section(section.Name)
		if !ok {
			continue
		}

		var (
			value *yaml.Node
			err   error
		)
		if section.Kind == schema.Flat {
			if state.Flat == nil {
				continue
			}
			value, err = valuesNode(section, *state.Flat)
		} else {
			value, err = collectionNode(section, state)
		}
		if err != nil {
			return nil, err
		}
		appendMapping(root, section.Name, value)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(dumpIndent)
	if err := encoder.Encode(root); err != nil {
		_ = encoder.Close()
		return nil, faults.NewTypedError(faults.InternalError, "failed to encode document", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to encode document", err)
	}
	return buf.Bytes(), nil
}

func collectionNode(section schema.Section, state resource.SectionState) (*yaml.Node, error) {
	var definitions *yaml.Node
	if len(section.Fields) == 0 {
		definitions = &yaml.Node{Kind: yaml.SequenceNode}
		for _, name := range state.Collection.SortedNames() {
			definitions.Content = append(definitions.Content, scalarNode(name))
		}
	} else {
		definitions = &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range state.Collection.SortedNames() {
			entry, err := valuesNode(section, state.Collection[name])
			if err != nil {
				return nil, err
			}
			appendMapping(definitions, name, entry)
		}
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	appendMapping(node, "definitions", definitions)
	return node, nil
}

// valuesNode renders one resource's fields in spec order. Unset fields and
// empty free-form maps are omitted to keep dumps minimal.
func valuesNode(section schema.Section, res resource.Resource) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, spec := range section.Fields {
		value, present := res.Values[spec.Name]
		if !present {
			continue
		}
		if value == nil && spec.AllowsNull {
			continue
		}
		if asMap, isMap := value.(map[string]any); isMap && len(asMap) == 0 {
			continue
		}

		encoded := &yaml.Node{}
		if err := encoded.Encode(value); err != nil {
			return nil, faults.NewTypedError(faults.InternalError,
				fmt.Sprintf("section %q field %q is not encodable", section.Name, spec.Name), err)
		}
		appendMapping(node, spec.Name, encoded)
	}
	return node, nil
}

func appendMapping(node *yaml.Node, key string, value *yaml.Node) {
	node.Content = append(node.Content, scalarNode(key), value)
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}
