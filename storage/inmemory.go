// Package storage holds the staged objects a StagedWriter builds up before
// they are packed and pushed, plus the extra objects a multi-round Fetch
// (such as GetBlobByPath's path walk) accumulates along the way.
package storage

import (
	"context"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

// PackfileStorage stores decoded packfile objects, keyed by hash. It is
// used both to cache objects fetched across a multi-request operation and
// to hold objects a StagedWriter has created but not yet pushed.
type PackfileStorage interface {
	// Get retrieves an object by its hash.
	Get(key hash.Hash) (*protocol.PackfileObject, bool)
	// GetAllKeys returns all keys in the storage.
	GetAllKeys() []hash.Hash
	// Add adds objects to the storage.
	Add(objs ...*protocol.PackfileObject)
	// Delete deletes an object from the storage.
	Delete(key hash.Hash)
	// Len returns the number of objects in the storage.
	Len() int
	// GetByType retrieves an object by its hash, but only if it is also of
	// the expected type. This lets callers walking a tree distinguish "not
	// fetched yet" from "fetched, but decoded as some other object" without
	// a separate type check at every call site.
	GetByType(key hash.Hash, t protocol.ObjectType) (*protocol.PackfileObject, bool)
}

// inMemoryStorage is a PackfileStorage backed by a plain map. It is the
// only storage mode implemented today; ctx is accepted by its constructor
// so a future disk-backed or size-bounded implementation can key off
// request-scoped deadlines without changing call sites.
type inMemoryStorage map[string]*protocol.PackfileObject

// NewInMemoryStorage creates an empty, unbounded in-memory PackfileStorage.
func NewInMemoryStorage(ctx context.Context) PackfileStorage {
	return make(inMemoryStorage)
}

func (s inMemoryStorage) Get(key hash.Hash) (*protocol.PackfileObject, bool) {
	obj, ok := s[key.String()]
	return obj, ok
}

func (s inMemoryStorage) GetAllKeys() []hash.Hash {
	keys := make([]hash.Hash, 0, len(s))
	for key := range s {
		keys = append(keys, hash.MustFromHex(key))
	}

	return keys
}

func (s inMemoryStorage) Add(objs ...*protocol.PackfileObject) {
	for _, obj := range objs {
		s[obj.Hash.String()] = obj
	}
}

func (s inMemoryStorage) Delete(key hash.Hash) {
	delete(s, key.String())
}

func (s inMemoryStorage) Len() int {
	return len(s)
}

func (s inMemoryStorage) GetByType(key hash.Hash, t protocol.ObjectType) (*protocol.PackfileObject, bool) {
	obj, ok := s.Get(key)
	if !ok || obj.Type != t {
		return nil, false
	}
	return obj, true
}

// FromContextOrInMemory returns the PackfileStorage previously attached to
// ctx via ToContext, or creates a fresh in-memory one and returns ctx
// updated to carry it, so every object fetched over the life of a
// multi-request operation accumulates in the same place.
func FromContextOrInMemory(ctx context.Context) (context.Context, PackfileStorage) {
	if s := FromContext(ctx); s != nil {
		return ctx, s
	}

	s := NewInMemoryStorage(ctx)
	return ToContext(ctx, s), s
}
