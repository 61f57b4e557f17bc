package nanogit

import (
	"errors"
	"fmt"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

var (
	// ErrObjectNotFound is returned when a requested Git object does not exist in the repository.
	// ObjectNotFoundError and PathNotFoundError both match it with errors.Is.
	ErrObjectNotFound = errors.New("git object not found")

	// ErrObjectAlreadyExists is returned when a requested Git object already exists in the repository.
	// ObjectAlreadyExistsError matches it with errors.Is.
	ErrObjectAlreadyExists = errors.New("git object already exists")

	// ErrUnexpectedObjectType is returned when a requested Git object is not of the expected type.
	ErrUnexpectedObjectType = errors.New("unexpected git object type")

	// ErrEmptyPath is returned when a StagedWriter operation is given an
	// empty path.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrEmptyCommitMessage is returned by StagedWriter.Commit when called
	// with an empty message.
	ErrEmptyCommitMessage = errors.New("commit message cannot be empty")

	// ErrNothingToCommit is returned by StagedWriter.Commit when no blob or
	// tree changes have been staged since the writer was created or since
	// the last commit.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrNothingToPush is returned by StagedWriter.Push when no objects
	// have been staged since the writer was created or since the last push.
	ErrNothingToPush = errors.New("nothing to push")

	// ErrRefNotFound is returned by GetRef when the requested reference
	// name has no match on the remote.
	ErrRefNotFound = errors.New("ref not found")

	// ErrRefAlreadyExists is returned by CreateRef when the requested
	// reference name already exists on the remote.
	ErrRefAlreadyExists = errors.New("ref already exists")

	// ErrInvalidPath is returned when a blob or tree path fails
	// normalization or validation.
	ErrInvalidPath = errors.New("invalid path")
)

// ObjectAlreadyExistsError provides structured information about an
// attempt to create an object at a path that's already occupied.
type ObjectAlreadyExistsError struct {
	Hash hash.Hash
}

func (e *ObjectAlreadyExistsError) Error() string {
	return fmt.Sprintf("object already exists: %s", e.Hash.String())
}

func (e *ObjectAlreadyExistsError) Is(target error) bool {
	return target == ErrObjectAlreadyExists
}

// NewObjectAlreadyExistsError creates an ObjectAlreadyExistsError for the
// object at the given hash.
func NewObjectAlreadyExistsError(hash hash.Hash) *ObjectAlreadyExistsError {
	return &ObjectAlreadyExistsError{Hash: hash}
}

// PathNotFoundError provides structured information about a path that was
// expected to exist in the staged tree but doesn't.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *PathNotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

// NewPathNotFoundError creates a PathNotFoundError for the given path.
func NewPathNotFoundError(path string) *PathNotFoundError {
	return &PathNotFoundError{Path: path}
}

// UnexpectedObjectTypeError provides structured information about an
// object found where one of a different Git type was expected (e.g. a
// blob where a tree was required to continue walking a path).
type UnexpectedObjectTypeError struct {
	Hash     hash.Hash
	Expected protocol.ObjectType
	Actual   protocol.ObjectType
}

func (e *UnexpectedObjectTypeError) Error() string {
	return fmt.Sprintf("object %s: expected type %s, got %s", e.Hash.String(), e.Expected.String(), e.Actual.String())
}

func (e *UnexpectedObjectTypeError) Is(target error) bool {
	return target == ErrUnexpectedObjectType
}

// NewUnexpectedObjectTypeError creates an UnexpectedObjectTypeError for an
// object found to be of type actual where expected was required.
func NewUnexpectedObjectTypeError(hash hash.Hash, expected, actual protocol.ObjectType) *UnexpectedObjectTypeError {
	return &UnexpectedObjectTypeError{Hash: hash, Expected: expected, Actual: actual}
}

// ObjectNotFoundError provides structured information about a requested
// object that the remote didn't return.
type ObjectNotFoundError struct {
	Hash hash.Hash
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", e.Hash.String())
}

func (e *ObjectNotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

// NewObjectNotFoundError creates an ObjectNotFoundError for the object at
// the given hash.
func NewObjectNotFoundError(hash hash.Hash) *ObjectNotFoundError {
	return &ObjectNotFoundError{Hash: hash}
}

// UnexpectedObjectCountError reports that a fetch expected a specific
// number of objects (usually one) but the remote returned a different
// number, which would otherwise silently pick an arbitrary match.
type UnexpectedObjectCountError struct {
	Expected int
	Objects  []*protocol.PackfileObject
}

func (e *UnexpectedObjectCountError) Error() string {
	hashes := make([]string, len(e.Objects))
	for i, obj := range e.Objects {
		hashes[i] = obj.Hash.String()
	}
	return fmt.Sprintf("expected %d object(s), got %d: %v", e.Expected, len(e.Objects), hashes)
}

// NewUnexpectedObjectCountError creates an UnexpectedObjectCountError for a
// fetch that expected count objects but returned objects instead.
func NewUnexpectedObjectCountError(expected int, objects []*protocol.PackfileObject) *UnexpectedObjectCountError {
	return &UnexpectedObjectCountError{Expected: expected, Objects: objects}
}

// RefNotFoundError provides structured information about a reference name
// that CreateRef/UpdateRef/DeleteRef expected to find on the remote.
type RefNotFoundError struct {
	RefName string
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("ref %s does not exist", e.RefName)
}

func (e *RefNotFoundError) Is(target error) bool {
	return target == ErrRefNotFound
}

// NewRefNotFoundError creates a RefNotFoundError for the given reference name.
func NewRefNotFoundError(refName string) *RefNotFoundError {
	return &RefNotFoundError{RefName: refName}
}

// RefAlreadyExistsError provides structured information about an attempt
// to create a reference that already exists on the remote.
type RefAlreadyExistsError struct {
	RefName string
}

func (e *RefAlreadyExistsError) Error() string {
	return fmt.Sprintf("ref %s already exists", e.RefName)
}

func (e *RefAlreadyExistsError) Is(target error) bool {
	return target == ErrRefAlreadyExists
}

// NewRefAlreadyExistsError creates a RefAlreadyExistsError for the given
// reference name.
func NewRefAlreadyExistsError(refName string) *RefAlreadyExistsError {
	return &RefAlreadyExistsError{RefName: refName}
}

// InvalidPathError provides structured information about a path that
// failed normalization or validation (e.g. containing "..", or empty
// where a blob path is required).
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) Is(target error) bool {
	return target == ErrInvalidPath
}

// NewInvalidPathError creates an InvalidPathError for path, with reason
// describing why it was rejected.
func NewInvalidPathError(path, reason string) *InvalidPathError {
	return &InvalidPathError{Path: path, Reason: reason}
}

// AuthorError reports that an Author or Committer value passed to
// StagedWriter.Commit is invalid.
type AuthorError struct {
	Field  string
	Reason string
}

func (e *AuthorError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewAuthorError creates an AuthorError for the named field (e.g. "author"
// or "committer") with the given reason.
func NewAuthorError(field, reason string) *AuthorError {
	return &AuthorError{Field: field, Reason: reason}
}
