package server

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

// Advertiser emits the reference advertisement for a repository and
// service, the first phase of both git-upload-pack and git-receive-pack.
type Advertiser struct {
	Repo Repository
	// Capabilities overrides DefaultCapabilities(service) when non-nil,
	// e.g. to advertise a narrower set for an unauthenticated caller.
	Capabilities Capabilities
	// Warn, if set, receives a message for each ref that had to be
	// skipped because its target couldn't be resolved — routed to the
	// progress sideband by the caller when sideband is active.
	Warn func(msg string)
}

// Advertise writes the ref advertisement for service ("git-upload-pack"
// or "git-receive-pack") to w:
//
//  1. One line "<oid> HEAD\0<capabilities>" when HEAD resolves, else
//     "<zero-oid> capabilities^{}\0<capabilities>".
//  2. Zero or more "<oid> <refname>" lines in refname-sorted order,
//     followed by optional peeled-tag "<peeled-oid> <refname>^{}" lines.
//  3. A flush packet.
func (a *Advertiser) Advertise(ctx context.Context, service string, w io.Writer) error {
	caps := a.Capabilities
	if caps == nil {
		caps = DefaultCapabilities(service)
	}
	capLine := joinCapabilities(caps)

	refs, err := a.Repo.ListRefs(ctx)
	if err != nil {
		return fmt.Errorf("server: list refs: %w", err)
	}
	refs = a.filterResolvable(ctx, refs)
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name.FullName < refs[j].Name.FullName })

	var packs []protocol.Pack

	headTarget, headOK, err := a.Repo.HeadTarget(ctx)
	if err != nil {
		return fmt.Errorf("server: resolve HEAD: %w", err)
	}
	if headOK {
		packs = append(packs, protocol.PackLine(fmt.Appendf(nil, "%s HEAD\x00%s\n", headTarget.String(), capLine)))
	} else {
		packs = append(packs, protocol.PackLine(fmt.Appendf(nil, "%s capabilities^{}\x00%s\n", protocol.ZeroHash, capLine)))
	}

	for _, ref := range refs {
		packs = append(packs, protocol.PackLine(fmt.Appendf(nil, "%s %s\n", ref.Target.String(), ref.Name.FullName)))
		if !ref.Peeled.Is(hash.Zero) {
			packs = append(packs, protocol.PackLine(fmt.Appendf(nil, "%s %s^{}\n", ref.Peeled.String(), ref.Name.FullName)))
		}
	}

	packs = append(packs, protocol.FlushPacket)

	data, err := protocol.FormatPacks(packs...)
	if err != nil {
		return fmt.Errorf("server: format advertisement: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// filterResolvable drops refs whose target can't be confirmed to exist,
// warning on each one, per the edge-case policy: "refs whose target is
// unresolvable are omitted, with a warning routed to the progress
// sideband when active."
func (a *Advertiser) filterResolvable(ctx context.Context, refs []RefEntry) []RefEntry {
	out := make([]RefEntry, 0, len(refs))
	for _, ref := range refs {
		exists, err := a.Repo.ObjectExists(ctx, ref.Target)
		if err != nil || !exists {
			if a.Warn != nil {
				a.Warn(fmt.Sprintf("skipping ref %s: target %s unresolvable", ref.Name.FullName, ref.Target.String()))
			}
			continue
		}
		out = append(out, ref)
	}
	return out
}

func joinCapabilities(caps Capabilities) string {
	out := ""
	for i, c := range caps {
		if i > 0 {
			out += " "
		}
		out += c
	}
	return out
}
