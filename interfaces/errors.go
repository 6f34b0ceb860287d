package interfaces

import "errors"

var (
	// ErrBadParameters is returned for nil, empty or out-of-range inputs. It is
	// always detected before any state is modified.
	ErrBadParameters = errors.New("bad parameters")

	// ErrNotFound is returned when a handle index was never created, was
	// already deleted, or refers to an unset field.
	ErrNotFound = errors.New("item not found")

	// ErrCapacityExhausted is returned when a handle pool has no free slot.
	ErrCapacityExhausted = errors.New("handle capacity exhausted")

	// ErrAlreadyInitialized is returned when a write-once field is set twice
	// without an unload in between.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrMissingData is returned when a protocol step runs before its inputs exist.
	ErrMissingData = errors.New("missing data")

	// ErrNoMoreRoom is returned when a handshake is asked to derive a second shared secret.
	ErrNoMoreRoom = errors.New("no more room")

	ErrBadFormat = errors.New("bad format")

	// ErrSecurity covers failed chain verification, key-pair mismatch and
	// invalid signatures.
	ErrSecurity = errors.New("security check failed")

	// ErrAuthentication is returned when an AES-GCM tag does not match.
	ErrAuthentication = errors.New("authentication failed")

	// ErrShortBuffer is returned when the caller's output buffer is smaller
	// than the data to return.
	ErrShortBuffer = errors.New("short buffer")

	// ErrOverflow is returned when an input is larger than the slot it is stored in.
	ErrOverflow = errors.New("input exceeds maximum size")

	// ErrSizeLimit is returned when a requested generation size exceeds the limit.
	ErrSizeLimit = errors.New("requested size exceeds limit")

	ErrBadState = errors.New("bad state")

	// ErrOutOfMemory is returned when the scratch object slot is already in use.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrObjectNotFound is returned when an object store has no object under the requested name.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBackendUnavailable is returned when an object store is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("object store unavailable")

	// ErrReadOnlyStore is returned when writing to a store that only serves fixed objects.
	ErrReadOnlyStore = errors.New("object store is read-only")

	// ErrInvalidLocationURI is returned when an object store location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid object store location URI")
)
