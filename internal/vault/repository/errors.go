package repository

import "errors"

// Sentinel errors shared by the Postgres and in-memory stores. Services and
// handlers branch on these; they are part of the store contract.
var (
	// ErrNotFound is returned when an artifact (or deleted document) does
	// not exist in the store.
	ErrNotFound = errors.New("artifact not found")

	// ErrAlreadyDeleted is returned by Archive when a deleted document
	// already exists for the artifact. The caller must see that the deletion
	// already happened; it is not a silent no-op.
	ErrAlreadyDeleted = errors.New("artifact already deleted")

	// ErrConflict is returned when the per-artifact lock cannot be acquired
	// within a bounded wait. The caller should retry the whole operation
	// rather than assume partial progress.
	ErrConflict = errors.New("concurrent operation on artifact")
)
