package reconciler

import "strings"

// KeyRule is the identity-matching rule for collection entry names. It must
// mirror the remote system's own rules exactly or a renamed-by-case entry
// shows up as a spurious create/delete pair; Prowlarr matches names verbatim,
// so the zero value (exact match) is the default.
type KeyRule struct {
	CaseFold  bool
	TrimSpace bool
}

// Canonical maps an entry name to its matching key under the rule.
func (r KeyRule) Canonical(name string) string {
	if r.TrimSpace {
		name = strings.TrimSpace(name)
	}
	if r.CaseFold {
		name = strings.ToLower(name)
	}
	return name
}
