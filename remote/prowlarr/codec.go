package prowlarr

import (
	"context"
	"fmt"
	"strings"

	"github.com/declarr/declarr/field"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

// Provider sections share Prowlarr's provider wire shape: top-level
// attributes plus a fields array of {name, value} entries. The codec flattens
// that shape into the section's field specs and back, translating tag ids to
// labels and classifying string fields that look like credentials into the
// secret map (same heuristic the instance UI applies: "key" or "pass" in the
// field name).

func secretFieldName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "pass")
}

// decodeResource converts one wire object into a resource keyed by the
// section's field specs.
func (c *Client) decodeResource(ctx context.Context, section schema.Section, wire map[string]any) (resource.Resource, error) {
	res := resource.Resource{
		Section:  section.Name,
		RemoteID: wireID(wire),
		Values:   map[string]resource.Value{},
	}
	if section.Kind == schema.Collection {
		name, _ := wire[section.NameKey].(string)
		res.Name = name
	}

	var providerFields []map[string]any
	if section.Provider {
		providerFields = wireFieldArray(wire)
	}

	for _, spec := range section.Fields {
		switch {
		case section.Provider && spec.Name == "type":
			typeName, _ := wire[section.TypeKey].(string)
			res.Values["type"] = strings.ToLower(typeName)
		case spec.Name == "tags":
			labels, err := c.tagLabels(ctx, wire["tags"])
			if err != nil {
				return resource.Resource{}, err
			}
			res.Values["tags"] = labels
		case spec.InFields:
			value, found := providerFieldValue(providerFields, spec.WireKey())
			if !found {
				if spec.AllowsNull {
					res.Values[spec.Name] = nil
					continue
				}
				res.Values[spec.Name] = spec.Default
				continue
			}
			decoded, err := decodeProviderScalar(spec, value)
			if err != nil {
				return resource.Resource{}, err
			}
			res.Values[spec.Name] = decoded
		case spec.Kind == field.KindFieldMap:
			// Handled below once claimed entries are known.
		default:
			decoded, err := field.DecodeWire(spec, normalizedWireValue(wire[spec.WireKey()]))
			if err != nil {
				return resource.Resource{}, err
			}
			res.Values[spec.Name] = decoded
		}
	}

	if section.Provider {
		plain, secret, err := splitProviderFields(section, providerFields)
		if err != nil {
			return resource.Resource{}, err
		}
		if _, ok := section.FieldSpec("fields"); ok {
			res.Values["fields"] = plain
		}
		if _, ok := section.FieldSpec("secret_fields"); ok {
			res.Values["secret_fields"] = secret
		}
	}
	return res, nil
}

// splitProviderFields distributes unclaimed provider field entries between
// the free-form map and the secret map. Informational entries only clutter
// the document and are dropped, like the original dump output does.
func splitProviderFields(section schema.Section, entries []map[string]any) (map[string]any, map[string]any, error) {
	claimed := map[string]struct{}{}
	for _, spec := range section.Fields {
		if spec.InFields {
			claimed[spec.WireKey()] = struct{}{}
		}
	}

	plain := map[string]any{}
	secret := map[string]any{}
	for _, entry := range entries {
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		if entryType, _ := entry["type"].(string); entryType == "info" {
			continue
		}
		if _, ok := claimed[name]; ok {
			continue
		}
		value, err := resource.Normalize(normalizedWireValue(entry["value"]))
		if err != nil {
			return nil, nil, remoteRejected(fmt.Sprintf("provider field %q has an invalid value", name), err)
		}
		if typed, isString := value.(string); isString && secretFieldName(name) {
			secret[name] = typed
			continue
		}
		if value != nil {
			plain[name] = value
		}
	}
	return plain, secret, nil
}

// decodeProviderScalar decodes a claimed provider field entry. Optional
// limits use zero as their unset marker on the wire.
func decodeProviderScalar(spec field.Spec, value any) (any, error) {
	value = normalizedWireValue(value)
	if spec.AllowsNull && spec.Kind == field.KindInt {
		if value == nil {
			return nil, nil
		}
		decoded, err := field.DecodeWire(spec, value)
		if err != nil {
			return nil, err
		}
		if decoded == int64(0) {
			return nil, nil
		}
		return decoded, nil
	}
	return field.DecodeWire(spec, value)
}

// encodeCreate builds the wire object for a new resource. Provider sections
// clone the remote's schema template for the matching type so provider
// defaults are preserved; other sections build the object from specs alone.
func (c *Client) encodeCreate(ctx context.Context, section schema.Section, res resource.Resource) (map[string]any, error) {
	if section.Name == "tags" {
		return map[string]any{"label": res.Name}, nil
	}

	var base map[string]any
	if section.Provider {
		template, err := c.providerTemplate(ctx, section, res)
		if err != nil {
			return nil, err
		}
		base = template
	} else {
		base = map[string]any{}
	}

	if section.Kind == schema.Collection {
		base[section.NameKey] = res.Name
	}
	if err := c.encodeInto(ctx, section, res, base); err != nil {
		return nil, err
	}
	return base, nil
}

// providerTemplate fetches the section's schema listing and returns the
// template whose type matches the resource, stripped of identity fields.
func (c *Client) providerTemplate(ctx context.Context, section schema.Section, res resource.Resource) (map[string]any, error) {
	typeName, _ := res.Value("type").(string)
	if typeName == "" {
		return nil, validationError(fmt.Sprintf("section %q entry %q has no type", section.Name, res.Name), nil)
	}

	var templates []map[string]any
	if err := c.getJSON(ctx, section.Path+"/schema", &templates); err != nil {
		return nil, err
	}
	for _, template := range templates {
		candidate, _ := template[section.TypeKey].(string)
		if strings.EqualFold(candidate, typeName) {
			delete(template, "id")
			delete(template, "name")
			delete(template, "added")
			return template, nil
		}
	}
	return nil, validationError(
		fmt.Sprintf("section %q has no type %q on the remote instance", section.Name, typeName),
		nil,
	)
}

// encodeInto overlays the desired resource onto a wire object in place. The
// base is either a schema template (create) or the currently stored object
// (update), so unmanaged wire attributes survive untouched.
func (c *Client) encodeInto(ctx context.Context, section schema.Section, res resource.Resource, base map[string]any) error {
	for _, spec := range section.Fields {
		value := res.Value(spec.Name)
		switch {
		case section.Provider && spec.Name == "type":
			// The type is fixed at creation; the template already carries it.
		case spec.Name == "tags":
			ids, err := c.tagIDsFor(ctx, value)
			if err != nil {
				return err
			}
			base["tags"] = ids
		case spec.InFields:
			encoded, err := encodeProviderScalar(spec, value)
			if err != nil {
				return err
			}
			setProviderField(base, spec.WireKey(), encoded)
		case spec.Kind == field.KindFieldMap:
			if err := encodeFieldMap(spec, value, base); err != nil {
				return err
			}
		default:
			encoded, err := field.EncodeWire(spec, value)
			if err != nil {
				return err
			}
			base[spec.WireKey()] = encoded
		}
	}
	return nil
}

func encodeProviderScalar(spec field.Spec, value any) (any, error) {
	if spec.AllowsNull && spec.Kind == field.KindInt && value == nil {
		// Zero marks "no limit" on the wire.
		return int64(0), nil
	}
	return field.EncodeWire(spec, value)
}

// encodeFieldMap merges a free-form field map into the provider fields
// array. Secret entries keep the stored remote value when the local value is
// empty or the mask, so a converged secret is never clobbered.
func encodeFieldMap(spec field.Spec, value any, base map[string]any) error {
	if value == nil {
		return nil
	}
	entries, ok := value.(map[string]any)
	if !ok {
		return validationError(fmt.Sprintf("field %q must be a mapping", spec.Name), nil)
	}
	for name, entryValue := range entries {
		if spec.Secret {
			typed, _ := entryValue.(string)
			if typed == "" || typed == field.Sentinel {
				continue
			}
			setProviderField(base, name, typed)
			continue
		}
		setProviderField(base, name, entryValue)
	}
	return nil
}

func wireFieldArray(wire map[string]any) []map[string]any {
	raw, _ := wire["fields"].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func providerFieldValue(entries []map[string]any, name string) (any, bool) {
	for _, entry := range entries {
		if entryName, _ := entry["name"].(string); entryName == name {
			return entry["value"], true
		}
	}
	return nil, false
}

func setProviderField(base map[string]any, name string, value any) {
	raw, _ := base["fields"].([]any)
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if entryName, _ := entry["name"].(string); entryName == name {
			entry["value"] = value
			return
		}
	}
	base["fields"] = append(raw, map[string]any{"name": name, "value": value})
}

// normalizedWireValue unwraps json.Number values produced by the decoder so
// downstream coercion sees plain scalars.
func normalizedWireValue(value any) any {
	normalized, err := resource.Normalize(value)
	if err != nil {
		return value
	}
	return normalized
}
