package field

// Sentinel is the placeholder the remote instance returns in place of a
// stored secret value. A local value equal to the sentinel never counts as
// a change.
const Sentinel = "********"

type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindStringList
	// KindFieldMap holds free-form provider fields as a string-keyed map,
	// compared after value normalization.
	KindFieldMap
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStringList:
		return "string-list"
	case KindFieldMap:
		return "field-map"
	default:
		return "unknown"
	}
}

// Spec is the static structural descriptor for one configuration field.
// Section schemas are built from ordered lists of these; the comparison and
// wire conversion code is generic over them.
type Spec struct {
	// Name is the field name used in desired-state documents.
	Name string
	// RemoteKey is the key used by the remote API. Empty means same as Name.
	RemoteKey string
	Kind      Kind
	Default   any
	// Secret fields are write-once: the remote never reveals the stored
	// value. For KindFieldMap every entry of the map is treated as secret.
	Secret   bool
	Required bool
	// AllowsNull makes a local null and a remote absence equivalent.
	AllowsNull bool
	// Ordered makes list comparison positional; otherwise lists compare as
	// sets.
	Ordered bool
	// InFields places the value inside the provider `fields` array on the
	// wire instead of at the top level of the resource.
	InFields bool
}

// WireKey returns the remote-side key for the field.
func (s Spec) WireKey() string {
	if s.RemoteKey != "" {
		return s.RemoteKey
	}
	return s.Name
}
