package cas

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskBackend is a local-filesystem Backend, storing each cid as a file
// named after it under a root directory. It's the backend the CLI wires
// a Store to when no remote object store is configured: a cid is
// already content-addressed, so a flat directory of files keyed by cid
// needs no further bookkeeping of its own.
//
// Grounded on original_source/src/ipfs/client.rs's add_file/cat_file
// shape (store-by-content-identifier, retrieve-by-identifier) without
// porting its IPFS daemon dependency, which has no equivalent in the
// teacher's dependency pack.
type DiskBackend struct {
	root string
}

// NewDiskBackend returns a DiskBackend rooted at dir, creating dir if it
// doesn't already exist.
func NewDiskBackend(dir string) (*DiskBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cas: create disk backend root %s: %w", dir, err)
	}
	return &DiskBackend{root: dir}, nil
}

func (b *DiskBackend) path(cid string) string {
	return filepath.Join(b.root, cid)
}

// Put writes content to the file named cid, replacing it if present.
func (b *DiskBackend) Put(_ context.Context, cid string, content io.Reader) error {
	tmp, err := os.CreateTemp(b.root, "tmp-*")
	if err != nil {
		return fmt.Errorf("cas: create temp file for %s: %w", cid, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return fmt.Errorf("cas: write %s: %w", cid, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cas: close temp file for %s: %w", cid, err)
	}
	if err := os.Rename(tmp.Name(), b.path(cid)); err != nil {
		return fmt.Errorf("cas: commit %s: %w", cid, err)
	}
	return nil
}

// Get opens the file named cid. Returns ErrNotFound if it doesn't exist.
func (b *DiskBackend) Get(_ context.Context, cid string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(cid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cid)
		}
		return nil, fmt.Errorf("cas: open %s: %w", cid, err)
	}
	return f, nil
}

// Pin is a no-op: every file under root is retained until the caller
// removes the backend's directory themselves: a local disk backend has
// no separate garbage-collection policy to opt out of.
func (b *DiskBackend) Pin(context.Context, string) error { return nil }

// Exists reports whether cid's file is present, without reading it.
func (b *DiskBackend) Exists(_ context.Context, cid string) (bool, error) {
	_, err := os.Stat(b.path(cid))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("cas: stat %s: %w", cid, err)
}
