package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrNotTracked is returned by Clean when content falls below the
	// threshold and doesn't match a tracked glob: the caller should pass
	// the original content through unmodified.
	ErrNotTracked = errors.New("filter: content not tracked for large-object storage")

	// ErrNotAPointer is returned by Smudge when the input doesn't parse
	// as a pointer file: the caller should pass it through unmodified.
	ErrNotAPointer = errors.New("filter: content is not a pointer file")

	// ErrUnresolvable is returned by Smudge when a pointer's content
	// can't be recovered from either the local mapping catalog or the
	// remote cid it carries.
	ErrUnresolvable = errors.New("filter: pointer content could not be resolved")

	// ErrUnknownOp is returned by the filter-process loop when a request
	// line names an operation other than "clean"/"smudge".
	ErrUnknownOp = errors.New("filter: unknown filter-process operation")
)

// UnresolvableError names the pointer OID that couldn't be recovered.
type UnresolvableError struct {
	OID   string
	Cause error
}

func (e *UnresolvableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filter: resolve pointer oid %s: %v", e.OID, e.Cause)
	}
	return fmt.Sprintf("filter: resolve pointer oid %s", e.OID)
}

func (e *UnresolvableError) Unwrap() error { return ErrUnresolvable }
