// Package remote defines the contract the reconciliation engine consumes to
// read and mutate the state of a remote instance. Implementations live in
// subpackages (remote/prowlarr).
package remote

import (
	"context"

	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

// Client is the narrow boundary between the reconciler and a concrete
// remote API. All methods fail with a RemoteUnavailable fault on
// connection-level errors and RemoteRejected when the remote instance
// returns a validation error.
type Client interface {
	// FetchFlat reads the current remote state of a flat section.
	FetchFlat(ctx context.Context, section schema.Section) (resource.Resource, error)
	// FetchCollection reads the current remote state of a collection
	// section, keyed by display name.
	FetchCollection(ctx context.Context, section schema.Section) (resource.Collection, error)
	// Create submits a new collection entry and returns its assigned
	// identity.
	Create(ctx context.Context, section schema.Section, res resource.Resource) (resource.Identity, error)
	// Update converges one remote resource. The full desired resource is
	// sent (the remote replaces whole resources); deltas carry the
	// field-level changes for logging and secret handling.
	Update(ctx context.Context, section schema.Section, id resource.Identity, res resource.Resource, deltas []resource.FieldDelta) error
	// Delete removes one collection entry.
	Delete(ctx context.Context, section schema.Section, id resource.Identity) error
}
