package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tordoze/nanogit/protocol/hash"
)

// NegotiationState is the server-side negotiation state machine's
// current phase.
type NegotiationState int

const (
	StateReadingWants NegotiationState = iota
	StateReadingHaves
	StateAckPolicy
	StateDone
)

// ShallowKind distinguishes a client's "shallow"/"deepen" lines.
type ShallowKind int

const (
	ShallowMarker ShallowKind = iota
	DeepenMarker
)

// ShallowLine is a parsed "shallow <oid>" or "deepen <n>" line.
type ShallowLine struct {
	Kind  ShallowKind
	OID   hash.Hash
	Depth int
}

// Negotiator runs the upload-pack negotiation phase: parsing
// want/have/shallow/deepen/done lines from the client and producing the
// ACK/NAK responses multi_ack requires, grounded on the teacher's
// client-side want/have formatting (object.go/fetch.go) run in reverse,
// and on the ACK-common/ACK-ready/NAK shapes surveyed from
// other_examples' negotiation.go.
type Negotiator struct {
	Repo      Repository
	MultiAck  bool
	state     NegotiationState
	wants     []hash.Hash
	shallows  []ShallowLine
	lastCommon hash.Hash
	haveCommon bool
	readyToSendPack bool
}

// NewNegotiator returns a Negotiator starting in StateReadingWants.
func NewNegotiator(repo Repository, multiAck bool) *Negotiator {
	return &Negotiator{Repo: repo, MultiAck: multiAck, state: StateReadingWants}
}

// State returns the negotiator's current phase.
func (n *Negotiator) State() NegotiationState { return n.state }

// Wants returns the accumulated want OIDs once negotiation has left
// StateReadingWants.
func (n *Negotiator) Wants() []hash.Hash { return n.wants }

// FeedLine processes one client line and returns zero or more response
// lines to write back (ACK/NAK text, without pkt-line framing — the
// caller frames and writes them). Malformed lines return
// ErrMalformedNegotiation; an unknown want returns UnknownWantError.
func (n *Negotiator) FeedLine(ctx context.Context, line string) ([]string, error) {
	line = strings.TrimRight(line, "\n")

	switch {
	case strings.HasPrefix(line, "want "):
		return n.handleWant(ctx, line)
	case strings.HasPrefix(line, "have "):
		return n.handleHave(ctx, line)
	case strings.HasPrefix(line, "shallow "):
		return n.handleShallow(line)
	case strings.HasPrefix(line, "deepen "):
		return n.handleDeepen(line)
	case line == "done":
		return n.handleDone()
	default:
		return nil, fmt.Errorf("%w: %q", ErrMalformedNegotiation, line)
	}
}

func (n *Negotiator) handleWant(ctx context.Context, line string) ([]string, error) {
	if n.state != StateReadingWants {
		return nil, fmt.Errorf("%w: want line received outside the wants phase", ErrMalformedNegotiation)
	}
	fields := strings.Fields(strings.TrimPrefix(line, "want "))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty want line", ErrMalformedNegotiation)
	}
	oidHex := fields[0]
	h, err := hash.FromHex(oidHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid want oid %q", ErrMalformedNegotiation, oidHex)
	}

	exists, err := n.Repo.ObjectExists(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("server: check want %s: %w", oidHex, err)
	}
	if !exists {
		return nil, &UnknownWantError{OID: oidHex}
	}

	n.wants = append(n.wants, h)
	return nil, nil
}

func (n *Negotiator) handleHave(ctx context.Context, line string) ([]string, error) {
	if n.state == StateReadingWants {
		n.state = StateReadingHaves
	}
	oidHex := strings.TrimPrefix(line, "have ")
	h, err := hash.FromHex(oidHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid have oid %q", ErrMalformedNegotiation, oidHex)
	}

	exists, err := n.Repo.ObjectExists(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("server: check have %s: %w", oidHex, err)
	}
	if !exists {
		return nil, nil // not common; no ACK for this one
	}

	n.lastCommon = h
	n.haveCommon = true
	n.state = StateAckPolicy

	if !n.MultiAck {
		// Without multi_ack: ACK the first common immediately and the
		// caller is expected to stop sending further haves.
		return []string{"ACK " + h.String()}, nil
	}

	resp := "ACK " + h.String() + " common"
	if n.readyForThinPack() {
		n.readyToSendPack = true
		return []string{resp, "ACK " + h.String() + " ready"}, nil
	}
	return []string{resp}, nil
}

// readyForThinPack is a placeholder policy decision: once any common
// history exists, this server considers it sufficient to construct a
// thin pack rather than continuing to negotiate further. A full
// implementation would weigh how much history is shared against the
// total reachable set; kept simple since the thin-pack construction
// itself is the packfile sender's concern, not the negotiator's.
func (n *Negotiator) readyForThinPack() bool {
	return n.haveCommon
}

func (n *Negotiator) handleShallow(line string) ([]string, error) {
	oidHex := strings.TrimPrefix(line, "shallow ")
	h, err := hash.FromHex(oidHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid shallow oid %q", ErrMalformedNegotiation, oidHex)
	}
	n.shallows = append(n.shallows, ShallowLine{Kind: ShallowMarker, OID: h})
	return nil, nil
}

func (n *Negotiator) handleDeepen(line string) ([]string, error) {
	depthStr := strings.TrimPrefix(line, "deepen ")
	depth, err := strconv.Atoi(depthStr)
	if err != nil || depth < 0 {
		return nil, fmt.Errorf("%w: invalid deepen depth %q", ErrMalformedNegotiation, depthStr)
	}
	n.shallows = append(n.shallows, ShallowLine{Kind: DeepenMarker, Depth: depth})
	return nil, nil
}

func (n *Negotiator) handleDone() ([]string, error) {
	n.state = StateDone
	if n.haveCommon {
		return []string{"ACK " + n.lastCommon.String()}, nil
	}
	return []string{"NAK"}, nil
}

// Shallows returns the accumulated shallow/deepen lines.
func (n *Negotiator) Shallows() []ShallowLine { return n.shallows }

// ShallowOIDs extracts the OIDs from the accumulated "shallow <oid>"
// lines (ignoring "deepen <n>" lines, which carry no OID), in the shape
// Traverse/PackfileSender.Send expect for their shallows parameter.
func (n *Negotiator) ShallowOIDs() []hash.Hash {
	var oids []hash.Hash
	for _, line := range n.shallows {
		if line.Kind == ShallowMarker {
			oids = append(oids, line.OID)
		}
	}
	return oids
}
