package selection

import "errors"

// Selector errors
var (
	// ErrInvalidArgument is returned for nil candidates
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when an operation is not allowed in the
	// current state, e.g. calculating over a populated table
	ErrInvalidState = errors.New("invalid selector state")

	// ErrInvalidConfig wraps validation failures of Config
	ErrInvalidConfig = errors.New("invalid selector config")

	// ErrSnapshotMismatch is returned when a snapshot hash does not verify
	ErrSnapshotMismatch = errors.New("snapshot hash mismatch")

	// ErrSnapshotNotFound is returned by stores for unknown names
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
