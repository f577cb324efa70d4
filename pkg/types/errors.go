package types

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that decide how to report it.
type Kind string

// Error kinds.
const (
	KindConfiguration Kind = "configuration" // missing or invalid store config
	KindStore         Kind = "store"         // connectivity, migration, not found
	KindValidation    Kind = "validation"    // malformed input or import document
	KindRemoteSync    Kind = "remote_sync"   // WebDAV auth, network, parse
	KindFileIO        Kind = "file_io"       // settings and template writes
)

// Error wraps a cause with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface. The cause text is always included.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates an Error of the given kind. A nil cause returns nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost Error in the chain, or the empty
// Kind when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Entity errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrInvalidURL      = errors.New("url must not be empty")
	ErrInvalidToken    = errors.New("token must not be empty")
	ErrInvalidPath     = errors.New("path must not be empty")
	ErrInvalidDocument = errors.New("invalid JSON document")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidObject   = errors.New("object name must be a plain file name")
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
