package cas

import (
	"context"
	"io"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../mocks/cas_backend.go . Backend

// Backend is the remote content-addressed store this package uploads
// chunks and manifests to and downloads them from. It is a narrow,
// IPFS-shaped contract (add/cat/pin/stat) rather than a generic
// "do a request" transport, matching the small context-aware verb style
// the rest of this module's collaborator interfaces use.
//
// Implementations of Backend, and the onion-routing/object-store systems
// they talk to, are out of scope for this repository; Store is tested
// against an in-memory fake.
type Backend interface {
	// Put uploads content under cid, replacing any prior content at the
	// same cid (the CAS is expected to be content-addressed, so this is
	// normally a no-op write of identical bytes).
	Put(ctx context.Context, cid string, content io.Reader) error

	// Get retrieves the content previously stored at cid. Returns
	// ErrNotFound if no such cid is known to the backend.
	Get(ctx context.Context, cid string) (io.ReadCloser, error)

	// Pin marks cid for retention by the backend, so it is not garbage
	// collected by whatever storage policy it runs.
	Pin(ctx context.Context, cid string) error

	// Exists reports whether cid is currently retrievable, without
	// transferring its content. Backends that cannot answer this
	// cheaply may implement it via Get and discard the body. Store never
	// calls it: re-storing an object uploads its content again, which a
	// content-addressed backend absorbs as an identical write.
	Exists(ctx context.Context, cid string) (bool, error)
}
