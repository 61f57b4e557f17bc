package server

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"strings"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

// RefUpdateCommand is one parsed "<old> <new> <ref>" line from a
// receive-pack request, the server-side mirror of the client-only
// RefUpdateRequest the teacher builds in refupdate.go.
type RefUpdateCommand struct {
	OldValue hash.Hash
	NewValue hash.Hash
	RefName  protocol.RefName
}

// Kind classifies the command by its old/new values.
func (c RefUpdateCommand) Kind() string {
	switch {
	case c.OldValue.Is(hash.Zero):
		return "create"
	case c.NewValue.Is(hash.Zero):
		return "delete"
	default:
		return "update"
	}
}

// ReceivePackResult is the outcome of applying one RefUpdateCommand,
// formatted into the "ok <ref>"/"ng <ref> <reason>" report-status lines.
type ReceivePackResult struct {
	Command RefUpdateCommand
	OK      bool
	Reason  string
}

// ReceivePackProcessor parses the ref-update command list and incoming
// pack from a git-receive-pack request and applies it against Repo,
// either atomically (all-or-nothing) or per-ref, per the "atomic"
// capability.
type ReceivePackProcessor struct {
	Repo   Repository
	Atomic bool
}

// NewReceivePackProcessor returns a processor for repo.
func NewReceivePackProcessor(repo Repository, atomic bool) *ReceivePackProcessor {
	return &ReceivePackProcessor{Repo: repo, Atomic: atomic}
}

// ParseCommands reads pkt-line ref-update commands from r up to (and
// consuming) the terminating flush packet. The first line may carry a
// trailing "\0<capabilities>" suffix, which is stripped and ignored here
// (capability negotiation for receive-pack happens before this call).
func ParseCommands(r *bufio.Reader) ([]RefUpdateCommand, error) {
	var commands []RefUpdateCommand
	first := true

	for {
		lengthHex := make([]byte, protocol.PktLineLengthSize)
		if _, err := io.ReadFull(r, lengthHex); err != nil {
			return nil, fmt.Errorf("server: read command length: %w", err)
		}

		var length int
		if _, err := fmt.Sscanf(string(lengthHex), "%04x", &length); err != nil {
			return nil, fmt.Errorf("%w: invalid pkt-line length %q", ErrMalformedNegotiation, lengthHex)
		}
		if length < 4 {
			break // flush packet: end of command list
		}

		data := make([]byte, length-4)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("server: read command line: %w", err)
		}
		line := strings.TrimRight(string(data), "\n")

		if first {
			if idx := strings.IndexByte(line, 0); idx >= 0 {
				line = line[:idx]
			}
			first = false
		}

		cmd, err := parseCommandLine(line)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}

	return commands, nil
}

func parseCommandLine(line string) (RefUpdateCommand, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return RefUpdateCommand{}, fmt.Errorf("%w: malformed ref-update command %q", ErrMalformedNegotiation, line)
	}

	oldHash, err := hash.FromHex(fields[0])
	if err != nil {
		return RefUpdateCommand{}, fmt.Errorf("%w: invalid old-value %q", ErrMalformedNegotiation, fields[0])
	}
	newHash, err := hash.FromHex(fields[1])
	if err != nil {
		return RefUpdateCommand{}, fmt.Errorf("%w: invalid new-value %q", ErrMalformedNegotiation, fields[1])
	}
	// The all-zero OID on the wire stands for hash.Zero: no old value on a
	// create, no new value on a delete.
	if fields[0] == protocol.ZeroHash {
		oldHash = hash.Zero
	}
	if fields[1] == protocol.ZeroHash {
		newHash = hash.Zero
	}

	refName, err := protocol.ParseRefName(fields[2])
	if err != nil {
		return RefUpdateCommand{}, fmt.Errorf("%w: invalid ref name %q", ErrMalformedNegotiation, fields[2])
	}

	return RefUpdateCommand{
		OldValue: oldHash,
		NewValue: newHash,
		RefName:  refName,
	}, nil
}

// UnpackPack decodes the raw packfile payload (already stripped of any
// pkt-line/sideband framing), returning the decoded objects in the
// order they appeared. It does not touch the repository itself; Apply
// stages the returned objects via Repo.PutObject. The packfile's
// trailing checksum is independently recomputed and compared; a
// mismatch or truncation returns ErrUnpackFailed.
func UnpackPack(ctx context.Context, payload []byte) ([]*protocol.PackfileObject, error) {
	if len(payload) < 20 {
		return nil, fmt.Errorf("%w: pack payload shorter than a checksum", ErrUnpackFailed)
	}

	sum := sha1.Sum(payload[:len(payload)-20])
	trailerChecksum := hash.Hash(payload[len(payload)-20:])
	if !hash.Hash(sum[:]).Is(trailerChecksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrUnpackFailed)
	}

	pf, err := protocol.ParsePackfile(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnpackFailed, err)
	}

	var objects []*protocol.PackfileObject
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := pf.ReadObject()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrUnpackFailed, err)
		}
		if entry.Trailer != nil {
			continue
		}
		objects = append(objects, entry.Object)
	}

	return objects, nil
}

// Apply validates and applies commands against p.Repo, storing every
// object decoded from pack first. When p.Atomic is set, a single command
// failure reports every command as failed ("transaction-aborted") and no
// ref is modified; otherwise each command is applied independently and
// reported on its own line.
func (p *ReceivePackProcessor) Apply(ctx context.Context, commands []RefUpdateCommand, pack []byte) ([]ReceivePackResult, error) {
	objects, err := UnpackPack(ctx, pack)
	if err != nil {
		return nil, err
	}
	for _, obj := range objects {
		if err := p.Repo.PutObject(ctx, obj); err != nil {
			return nil, fmt.Errorf("server: stage object %s: %w", obj.Hash.String(), err)
		}
	}

	if p.Atomic {
		return p.applyAtomic(ctx, commands)
	}
	return p.applyPerRef(ctx, commands)
}

func (p *ReceivePackProcessor) applyPerRef(ctx context.Context, commands []RefUpdateCommand) ([]ReceivePackResult, error) {
	results := make([]ReceivePackResult, len(commands))
	for i, cmd := range commands {
		results[i] = p.applyOne(ctx, cmd)
	}
	return results, nil
}

func (p *ReceivePackProcessor) applyAtomic(ctx context.Context, commands []RefUpdateCommand) ([]ReceivePackResult, error) {
	for _, cmd := range commands {
		if err := p.validate(ctx, cmd); err != nil {
			results := make([]ReceivePackResult, len(commands))
			for i, c := range commands {
				results[i] = ReceivePackResult{Command: c, OK: false, Reason: "transaction-aborted"}
			}
			return results, nil
		}
	}

	results := make([]ReceivePackResult, len(commands))
	for i, cmd := range commands {
		results[i] = p.applyOne(ctx, cmd)
	}
	return results, nil
}

// validate checks a command's new value (when non-zero) resolves to a
// commit or tag, without performing the ref-update CAS itself.
func (p *ReceivePackProcessor) validate(ctx context.Context, cmd RefUpdateCommand) error {
	if cmd.NewValue.Is(hash.Zero) {
		return nil // deletion
	}
	obj, err := p.Repo.GetObject(ctx, cmd.NewValue)
	if err != nil {
		return fmt.Errorf("server: resolve new value %s: %w", cmd.NewValue.String(), err)
	}
	if obj.Type != protocol.ObjectTypeCommit && obj.Type != protocol.ObjectTypeTag {
		return ErrNotCommitOrTag
	}
	return nil
}

func (p *ReceivePackProcessor) applyOne(ctx context.Context, cmd RefUpdateCommand) ReceivePackResult {
	if err := p.validate(ctx, cmd); err != nil {
		return ReceivePackResult{Command: cmd, OK: false, Reason: "not-commit"}
	}

	ok, err := p.Repo.UpdateRef(ctx, cmd.RefName, cmd.OldValue, cmd.NewValue)
	if err != nil {
		return ReceivePackResult{Command: cmd, OK: false, Reason: err.Error()}
	}
	if !ok {
		return ReceivePackResult{Command: cmd, OK: false, Reason: "stale-info"}
	}
	return ReceivePackResult{Command: cmd, OK: true}
}

// FormatReport renders the "unpack ok"/"ok <ref>"/"ng <ref> <reason>"
// report-status lines followed by a flush packet.
func FormatReport(results []ReceivePackResult) ([]byte, error) {
	var packs []protocol.Pack
	packs = append(packs, protocol.PackLine([]byte("unpack ok\n")))
	for _, r := range results {
		if r.OK {
			packs = append(packs, protocol.PackLine(fmt.Appendf(nil, "ok %s\n", r.Command.RefName.FullName)))
		} else {
			packs = append(packs, protocol.PackLine(fmt.Appendf(nil, "ng %s %s\n", r.Command.RefName.FullName, r.Reason)))
		}
	}
	packs = append(packs, protocol.FlushPacket)
	return protocol.FormatPacks(packs...)
}
