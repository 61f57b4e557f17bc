package cas

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the requested OID has no
	// mapping in the catalog.
	ErrNotFound = errors.New("cas: object not found")

	// ErrIntegrityMismatch is returned by Get when the reassembled bytes
	// don't rehash to the requested OID.
	ErrIntegrityMismatch = errors.New("cas: integrity check failed")

	// ErrUploadFailed is returned when a background upload exhausts its
	// retries.
	ErrUploadFailed = errors.New("cas: background upload failed")

	// ErrClosed reports use of a closed store. Store has no Close
	// method, and none of its operations return this error.
	ErrClosed = errors.New("cas: store is closed")
)

// IntegrityMismatchError carries the OID whose content failed to rehash
// to the expected value, and what was computed instead.
type IntegrityMismatchError struct {
	OID      string
	Computed string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("cas: object %s rehashed to %s", e.OID, e.Computed)
}

func (e *IntegrityMismatchError) Unwrap() error { return ErrIntegrityMismatch }

// UploadFailedError carries the OID and the last error encountered
// before retries were exhausted.
type UploadFailedError struct {
	OID   string
	Cause error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("cas: upload of %s failed: %v", e.OID, e.Cause)
}

func (e *UploadFailedError) Unwrap() error { return ErrUploadFailed }
