package server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
	"github.com/tordoze/nanogit/protocol/server"
)

func TestTraverse_FullHistory_NoHaves(t *testing.T) {
	repo := newFakeRepository()
	blob := repo.putBlob([]byte("hello"))
	tree := repo.putTree([]protocol.PackfileTreeEntry{{FileMode: 0o100644, FileName: "a.txt", Hash: blob.String()}})
	commit := repo.putCommit(tree, hash.Zero)

	objs, err := server.Traverse(context.TODO(), repo, []hash.Hash{commit}, nil, nil)
	require.NoError(t, err)
	require.Len(t, objs, 3)

	var sawCommit, sawTree, sawBlob bool
	for _, o := range objs {
		switch o.Type {
		case protocol.ObjectTypeCommit:
			sawCommit = true
		case protocol.ObjectTypeTree:
			sawTree = true
		case protocol.ObjectTypeBlob:
			sawBlob = true
		}
	}
	require.True(t, sawCommit && sawTree && sawBlob)
	// commits sort before trees before blobs
	require.Equal(t, protocol.ObjectTypeCommit, objs[0].Type)
}

func TestTraverse_ExcludesHaves(t *testing.T) {
	repo := newFakeRepository()
	blob1 := repo.putBlob([]byte("v1"))
	tree1 := repo.putTree([]protocol.PackfileTreeEntry{{FileMode: 0o100644, FileName: "a.txt", Hash: blob1.String()}})
	base := repo.putCommit(tree1, hash.Zero)

	blob2 := repo.putBlob([]byte("v2"))
	tree2 := repo.putTree([]protocol.PackfileTreeEntry{{FileMode: 0o100644, FileName: "a.txt", Hash: blob2.String()}})
	head := repo.putCommit(tree2, base)

	objs, err := server.Traverse(context.TODO(), repo, []hash.Hash{head}, []hash.Hash{base}, nil)
	require.NoError(t, err)

	for _, o := range objs {
		require.NotEqual(t, base.String(), o.Hash.String())
		require.NotEqual(t, blob1.String(), o.Hash.String())
		require.NotEqual(t, tree1.String(), o.Hash.String())
	}

	var sawHead bool
	for _, o := range objs {
		if o.Hash.String() == head.String() {
			sawHead = true
		}
	}
	require.True(t, sawHead)
}

func TestTraverse_WantEqualsHave_Empty(t *testing.T) {
	repo := newFakeRepository()
	blob := repo.putBlob([]byte("x"))
	tree := repo.putTree([]protocol.PackfileTreeEntry{{FileMode: 0o100644, FileName: "a.txt", Hash: blob.String()}})
	commit := repo.putCommit(tree, hash.Zero)

	objs, err := server.Traverse(context.TODO(), repo, []hash.Hash{commit}, []hash.Hash{commit}, nil)
	require.NoError(t, err)
	require.Empty(t, objs)
}

func TestTraverse_ShallowTreatedAsLeaf(t *testing.T) {
	repo := newFakeRepository()
	blob1 := repo.putBlob([]byte("v1"))
	tree1 := repo.putTree([]protocol.PackfileTreeEntry{{FileMode: 0o100644, FileName: "a.txt", Hash: blob1.String()}})
	base := repo.putCommit(tree1, hash.Zero)

	blob2 := repo.putBlob([]byte("v2"))
	tree2 := repo.putTree([]protocol.PackfileTreeEntry{{FileMode: 0o100644, FileName: "a.txt", Hash: blob2.String()}})
	head := repo.putCommit(tree2, base)

	// No haves at all, but base is declared shallow: its own object and
	// everything only reachable through it (tree1/blob1) must be excluded
	// exactly as if it had been a "have", even though nothing else
	// excludes it.
	objs, err := server.Traverse(context.TODO(), repo, []hash.Hash{head}, nil, []hash.Hash{base})
	require.NoError(t, err)

	for _, o := range objs {
		require.NotEqual(t, base.String(), o.Hash.String())
		require.NotEqual(t, blob1.String(), o.Hash.String())
		require.NotEqual(t, tree1.String(), o.Hash.String())
	}

	var sawHead bool
	for _, o := range objs {
		if o.Hash.String() == head.String() {
			sawHead = true
		}
	}
	require.True(t, sawHead)
}
