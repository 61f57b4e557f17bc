package nanogit

import (
	"context"

	"github.com/tordoze/nanogit/protocol/hash"
)

// PackfileStorageMode controls where a StagedWriter buffers the content of
// objects it stages before Push assembles and sends the packfile.
type PackfileStorageMode int

const (
	// PackfileStorageAuto lets the writer pick a storage mode; today it
	// behaves the same as PackfileStorageMemory.
	PackfileStorageAuto PackfileStorageMode = iota
	// PackfileStorageMemory keeps staged object content in memory.
	PackfileStorageMemory
	// PackfileStorageDisk spills staged object content to temp files,
	// useful for writers staging many or large blobs.
	PackfileStorageDisk
)

// WriterOption configures a StagedWriter during creation.
type WriterOption func(*writerOptions) error

// writerOptions holds the resolved configuration for a StagedWriter,
// built up by applying a caller's WriterOptions over sane defaults.
type writerOptions struct {
	StorageMode PackfileStorageMode
}

// applyWriterOptions resolves a set of WriterOptions into a writerOptions,
// starting from the default storage mode and applying each option in order.
func applyWriterOptions(options []WriterOption) (*writerOptions, error) {
	opts := &writerOptions{
		StorageMode: PackfileStorageAuto,
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(opts); err != nil {
			return nil, err
		}
	}

	return opts, nil
}

// WithWriterStorageMode sets the storage mode a StagedWriter uses for
// buffering staged object content before Push.
func WithWriterStorageMode(mode PackfileStorageMode) WriterOption {
	return func(o *writerOptions) error {
		o.StorageMode = mode
		return nil
	}
}

// StagedWriter stages a sequence of blob/tree changes against a Git
// reference and commits and pushes them as a single atomic packfile.
//
// A StagedWriter is obtained from Client.NewStagedWriter and must be
// cleaned up with Cleanup once the caller is done with it, whether or not
// Push was ever called.
type StagedWriter interface {
	// BlobExists reports whether a blob exists at path in the writer's
	// current staged tree.
	BlobExists(ctx context.Context, path string) (bool, error)
	// CreateBlob stages a new blob at path and returns its hash. It
	// returns an error if a blob already exists at path.
	CreateBlob(ctx context.Context, path string, content []byte) (hash.Hash, error)
	// UpdateBlob stages a new version of the blob at path and returns its
	// hash. It returns an error if no blob exists at path.
	UpdateBlob(ctx context.Context, path string, content []byte) (hash.Hash, error)
	// DeleteBlob stages the removal of the blob at path and returns the
	// hash of the tree it was removed from.
	DeleteBlob(ctx context.Context, path string) (hash.Hash, error)
	// GetTree returns the staged tree at path.
	GetTree(ctx context.Context, path string) (*Tree, error)
	// DeleteTree stages the removal of the tree at path and returns the
	// hash of the parent tree it was removed from.
	DeleteTree(ctx context.Context, path string) (hash.Hash, error)
	// Commit creates a new commit object over all changes staged so far
	// and returns it. The commit is not pushed until Push is called.
	Commit(ctx context.Context, message string, author Author, committer Committer) (*Commit, error)
	// Push sends every object staged since the writer was created (or
	// since the last successful Push) to the remote, updating the ref
	// atomically from its prior value to the last commit created.
	Push(ctx context.Context) error
	// Cleanup releases any resources held by the writer (such as
	// disk-backed staged objects). It is an error to call Cleanup twice
	// or to use the writer afterward.
	Cleanup(ctx context.Context) error
}
