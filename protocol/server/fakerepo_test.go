package server_test

import (
	"context"
	"crypto"
	"fmt"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
	"github.com/tordoze/nanogit/protocol/object"
	"github.com/tordoze/nanogit/protocol/server"
)

// fakeRepository is a hand-rolled Repository test double, in the style of
// cas/store_test.go's memBackend and transport/pool/pool_test.go's
// fakeOpener — not a generated counterfeiter fake.
type fakeRepository struct {
	refs       []server.RefEntry
	head       hash.Hash
	hasHead    bool
	objects    map[string]*protocol.PackfileObject
	updateErr  error
	updateOK   bool
	lastUpdate *server.RefUpdateCommand
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{objects: make(map[string]*protocol.PackfileObject), updateOK: true}
}

func (f *fakeRepository) ListRefs(context.Context) ([]server.RefEntry, error) {
	return f.refs, nil
}

func (f *fakeRepository) HeadTarget(context.Context) (hash.Hash, bool, error) {
	return f.head, f.hasHead, nil
}

func (f *fakeRepository) ObjectExists(_ context.Context, h hash.Hash) (bool, error) {
	_, ok := f.objects[h.String()]
	return ok, nil
}

func (f *fakeRepository) GetObject(_ context.Context, h hash.Hash) (*protocol.PackfileObject, error) {
	obj, ok := f.objects[h.String()]
	if !ok {
		return nil, fmt.Errorf("fakeRepository: object %s not found", h.String())
	}
	return obj, nil
}

func (f *fakeRepository) PutObject(_ context.Context, obj *protocol.PackfileObject) error {
	f.objects[obj.Hash.String()] = obj
	return nil
}

func (f *fakeRepository) UpdateRef(_ context.Context, name protocol.RefName, expectedOld, newValue hash.Hash) (bool, error) {
	cmd := server.RefUpdateCommand{OldValue: expectedOld, NewValue: newValue, RefName: name}
	f.lastUpdate = &cmd
	return f.updateOK, f.updateErr
}

// putBlob hashes content as a blob, registers it in the fake object
// database, and returns its hash.
func (f *fakeRepository) putBlob(content []byte) hash.Hash {
	h, err := hash.Object(crypto.SHA1, object.TypeBlob, content)
	if err != nil {
		panic(err)
	}
	f.objects[h.String()] = &protocol.PackfileObject{Hash: h, Type: protocol.ObjectTypeBlob, Data: content}
	return h
}

// putTree registers a tree object pointing at entries.
func (f *fakeRepository) putTree(entries []protocol.PackfileTreeEntry) hash.Hash {
	obj, err := protocol.BuildTreeObject(crypto.SHA1, entries)
	if err != nil {
		panic(err)
	}
	f.objects[obj.Hash.String()] = &obj
	return obj.Hash
}

// putCommit registers a commit object pointing at tree and parent (the
// zero hash for a root commit).
func (f *fakeRepository) putCommit(tree, parent hash.Hash) hash.Hash {
	w := protocol.NewPackfileWriter(crypto.SHA1, protocol.PackfileStorageMemory)
	author := &protocol.Identity{Name: "tester", Email: "tester@example.com", Timestamp: 1700000000, Timezone: "+0000"}
	h, err := w.AddCommit(tree, parent, author, author, "test commit")
	if err != nil {
		panic(err)
	}
	// The same bytes AddCommit hashed, so the object re-hashes to h once it
	// has been packed and decoded again.
	data := fmt.Appendf(nil, "tree %s\n", tree.String())
	if !parent.Is(hash.Zero) {
		data = fmt.Appendf(data, "parent %s\n", parent.String())
	}
	data = fmt.Appendf(data, "author %s <%s> %d %s\n", author.Name, author.Email, author.Timestamp, author.Timezone)
	data = fmt.Appendf(data, "committer %s <%s> %d %s\n\n%s", author.Name, author.Email, author.Timestamp, author.Timezone, "test commit")
	f.objects[h.String()] = &protocol.PackfileObject{
		Hash: h,
		Type: protocol.ObjectTypeCommit,
		Data: data,
		Commit: &protocol.PackfileCommit{
			Tree:      tree,
			Parent:    parent,
			Author:    *author,
			Committer: *author,
			Message:   "test commit",
		},
	}
	return h
}
