// Package server implements the server-side half of the Git smart
// protocol: reference advertisement, negotiation, packfile generation,
// and receive-pack ref updates. The teacher only ever plays the client
// role; this package runs the same wire format in the opposite
// direction, grounded on the teacher's protocol/refname.go and
// protocol/model.go ref types plus the server shapes surveyed from the
// example pack (capability sets, ACK state machines, reachability
// traversal).
package server

import (
	"context"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../../mocks/repository.go . Repository

// RefEntry is a single advertised or stored reference.
type RefEntry struct {
	Name   protocol.RefName
	Target hash.Hash
	// Peeled is the commit a tag's Target points to, when Target names
	// an annotated tag object; zero otherwise.
	Peeled hash.Hash
}

// Repository is the narrow collaborator every server component reaches
// into for actual repository state. Its implementation (an on-disk
// object database, a remote-backed store, etc.) is out of scope for
// this package, per the wrapped Git object database boundary.
type Repository interface {
	// ListRefs returns every ref this repository exposes, in no
	// particular order; callers that need sorted output (the reference
	// advertiser) sort it themselves.
	ListRefs(ctx context.Context) ([]RefEntry, error)

	// HeadTarget resolves HEAD to the object ID it currently points at. ok is
	// false for an unborn/empty repository, in which case Advertise emits
	// the zero-OID capabilities line instead of a HEAD line.
	HeadTarget(ctx context.Context) (hash.Hash, bool, error)

	// ObjectExists reports whether h is present in the object database,
	// without fetching its content. Used by the negotiation engine to
	// validate "have" lines and by the packfile sender's exclusion
	// frontier.
	ObjectExists(ctx context.Context, h hash.Hash) (bool, error)

	// GetObject fetches and decodes a single object by hash.
	GetObject(ctx context.Context, h hash.Hash) (*protocol.PackfileObject, error)

	// PutObject stages a single object decoded from an incoming packfile
	// into the object database, keyed by obj.Hash. Writing the same hash
	// twice is not an error: packs routinely repeat objects the receiver
	// already has.
	PutObject(ctx context.Context, obj *protocol.PackfileObject) error

	// UpdateRef performs a compare-and-swap: if the ref currently
	// resolves to expectedOld (the zero hash meaning "ref must not
	// exist"), it's set to newValue (the zero hash meaning "delete") and
	// ok is true. A mismatch returns ok=false with no error.
	UpdateRef(ctx context.Context, name protocol.RefName, expectedOld, newValue hash.Hash) (ok bool, err error)
}
