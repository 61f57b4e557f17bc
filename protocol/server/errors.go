package server

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownWant is returned by the negotiation engine when a
	// client's "want" line names an OID the repository doesn't have.
	ErrUnknownWant = errors.New("server: unknown want object")

	// ErrMalformedNegotiation is returned when a negotiation-phase line
	// doesn't parse as want/have/shallow/deepen/done.
	ErrMalformedNegotiation = errors.New("server: malformed negotiation line")

	// ErrNotCommitOrTag is returned by the receive-pack processor when a
	// non-delete command's new value resolves to an object that isn't a
	// commit or tag.
	ErrNotCommitOrTag = errors.New("server: ref update target is not a commit or tag")

	// ErrRefUpdateConflict is returned when a ref-update command's
	// expected old value doesn't match the ref's current value.
	ErrRefUpdateConflict = errors.New("server: ref update conflict")

	// ErrUnpackFailed is returned when the incoming pack fails checksum
	// verification or ends truncated.
	ErrUnpackFailed = errors.New("server: pack unpack failed")
)

// UnknownWantError carries the offending OID.
type UnknownWantError struct {
	OID string
}

func (e *UnknownWantError) Error() string {
	return fmt.Sprintf("server: unknown want object %s", e.OID)
}

func (e *UnknownWantError) Unwrap() error { return ErrUnknownWant }

// RefUpdateConflictError names which command failed its compare-and-
// swap and why, matching the "fetch-first"/"stale-info" vocabulary in
// the receive-pack algorithm.
type RefUpdateConflictError struct {
	Ref    string
	Reason string // "fetch-first" or "stale-info"
}

func (e *RefUpdateConflictError) Error() string {
	return fmt.Sprintf("server: ref %s update conflict: %s", e.Ref, e.Reason)
}

func (e *RefUpdateConflictError) Unwrap() error { return ErrRefUpdateConflict }
