package server

import (
	"context"
	"fmt"
	"sort"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

// reachabilitySet walks every commit/tree/blob object reachable from
// roots, stopping at any hash already present in stop. It's used twice by
// Traverse: once unbounded from the client's "have" lines to build the
// exclusion frontier, and once bounded by that frontier from the client's
// "want" lines to collect what actually needs to be sent.
func reachabilitySet(ctx context.Context, repo Repository, roots []hash.Hash, stop map[string]bool) (map[string]*protocol.PackfileObject, error) {
	visited := make(map[string]*protocol.PackfileObject)
	queue := append([]hash.Hash(nil), roots...)

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		key := h.String()
		if key == hash.Zero.String() || visited[key] != nil || stop[key] {
			continue
		}

		obj, err := repo.GetObject(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("server: traverse object %s: %w", key, err)
		}
		visited[key] = obj

		switch obj.Type {
		case protocol.ObjectTypeCommit:
			if obj.Commit != nil {
				if !obj.Commit.Tree.Is(hash.Zero) {
					queue = append(queue, obj.Commit.Tree)
				}
				if !obj.Commit.Parent.Is(hash.Zero) {
					queue = append(queue, obj.Commit.Parent)
				}
			}
		case protocol.ObjectTypeTree:
			for _, entry := range obj.Tree {
				child, err := hash.FromHex(entry.Hash)
				if err != nil {
					return nil, fmt.Errorf("server: traverse tree entry %q: %w", entry.FileName, err)
				}
				queue = append(queue, child)
			}
		}
	}

	return visited, nil
}

// Traverse computes the set of objects to pack for a fetch: everything
// reachable from wants, excluding everything reachable from haves (the
// exclusion-frontier algorithm) plus shallow-boundary exclusion —
// shallows are treated as leaves, so nothing reachable only through them
// is walked — returned in a deterministic bases-before-deltas-friendly
// order: commits first, then trees, then blobs, each group tie-broken by
// (size descending, oid ascending) so that larger, more foundational
// objects are emitted first.
func Traverse(ctx context.Context, repo Repository, wants, haves, shallows []hash.Hash) ([]*protocol.PackfileObject, error) {
	excluded, err := reachabilitySet(ctx, repo, haves, nil)
	if err != nil {
		return nil, fmt.Errorf("server: build exclusion frontier: %w", err)
	}
	stop := make(map[string]bool, len(excluded)+len(shallows))
	for key := range excluded {
		stop[key] = true
	}
	for _, h := range shallows {
		stop[h.String()] = true
	}

	wanted, err := reachabilitySet(ctx, repo, wants, stop)
	if err != nil {
		return nil, fmt.Errorf("server: collect wanted objects: %w", err)
	}

	out := make([]*protocol.PackfileObject, 0, len(wanted))
	for _, obj := range wanted {
		out = append(out, obj)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return objectTypeOrder(a.Type) < objectTypeOrder(b.Type)
		}
		if len(a.Data) != len(b.Data) {
			return len(a.Data) > len(b.Data)
		}
		return a.Hash.String() < b.Hash.String()
	})

	return out, nil
}

// objectTypeOrder ranks object types so commits sort before trees before
// blobs before tags, giving the pack a bases-before-deltas-friendly shape
// even though this sender never emits delta entries.
func objectTypeOrder(t protocol.ObjectType) int {
	switch t {
	case protocol.ObjectTypeCommit:
		return 0
	case protocol.ObjectTypeTree:
		return 1
	case protocol.ObjectTypeBlob:
		return 2
	case protocol.ObjectTypeTag:
		return 3
	default:
		return 4
	}
}
