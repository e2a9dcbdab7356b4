package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the named document does not exist in the backing store.
	ErrNotFound = errors.New("document not found")
	// ErrConflict: the conditional write was rejected on a stale revision token.
	ErrConflict = errors.New("revision token mismatch")
)

// TransientError wraps network/timeout/5xx failures that are safe to retry.
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store failure during %s: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Snapshot is a raw document read: content plus the revision token required
// for a conditional write.
type Snapshot struct {
	Content []byte
	Token   string
}

// Store is the remote document store boundary. Implementations must not
// cache internally; caching is the caller's responsibility.
type Store interface {
	// Fetch retrieves the named document and its current revision token.
	Fetch(ctx context.Context, key string) (*Snapshot, error)

	// Write stores content conditionally. A non-empty token that does not
	// match the store's current token fails with ErrConflict and writes
	// nothing. An empty token creates the document if absent. The message
	// is a human-readable change description recorded with the write; it
	// is required.
	Write(ctx context.Context, key string, content []byte, token, message string) (newToken string, err error)
}
