// Package eventlog implements the append-only audit log for artifact
// lifecycle events.
//
// Events are hash-chained: the log begins with a well-known genesis entry
// whose Hash equals GenesisHash (64 hex zeros), and every subsequent entry
// records the SHA-256 of its predecessor. Any retroactive edit breaks the
// chain and is detected by Verify. Events reference artifacts by ID value,
// not by foreign key, so they survive the soft-delete move of the artifact
// row they describe.
//
// Two implementations of the Log interface are provided:
//   - MemoryLog: in-process, for testing and development.
//   - PostgresLog: durable, for production use.
package eventlog

import "context"

// Log is the interface for the hash-chained artifact event log.
type Log interface {
	// Append adds a new event chained to the previous one.
	// detail is JSON-marshalled and its SHA-256 is stored as DetailHash.
	Append(ctx context.Context, artifactID string, eventType EventType, actor string, detail any) (*Event, error)

	// Get returns the event at the given zero-based index.
	Get(ctx context.Context, index int) (*Event, error)

	// ListByArtifact returns all events recorded for an artifact, oldest
	// first. Works for both active and deleted artifacts.
	ListByArtifact(ctx context.Context, artifactID string) ([]*Event, error)

	// Len returns the total number of events (including the genesis entry).
	Len(ctx context.Context) (int, error)

	// Verify walks the entire chain and checks hash consistency.
	// Returns nil if the chain is intact.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent event (the chain tip).
	Root(ctx context.Context) (string, error)
}
