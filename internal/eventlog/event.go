package eventlog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the canonical well-known hash of the genesis event.
// It anchors the chain; all subsequent event hashes chain from this constant
// rather than from a computed value.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// SystemActor attributes events emitted by the engine itself rather than by
// an authenticated caller.
const SystemActor = "docseal-system"

// EventType classifies an artifact lifecycle event.
type EventType string

const (
	EventGenesis    EventType = "genesis"
	EventCreated    EventType = "created"
	EventSealed     EventType = "sealed"
	EventSealFailed EventType = "seal_failed"
	EventVerified   EventType = "verified"
	EventDeleted    EventType = "deleted"
)

// Event is a single audit record in the artifact event log.
type Event struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	ArtifactID string    `json:"artifact_id"`
	EventType  EventType `json:"event_type"`
	Actor      string    `json:"actor"`
	DetailHash string    `json:"detail_hash"` // SHA-256 of the associated detail payload
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

// eventNow returns the current UTC time truncated to microseconds.
// TIMESTAMPTZ stores microsecond precision; hashing a finer timestamp would
// make the chain fail verification after a database round-trip.
func eventNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// hashEvent computes a deterministic SHA-256 hash over an event's fields.
// This function must never be called on the genesis event (index 0).
func hashEvent(e *Event) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s",
		e.Index, e.Timestamp.Format(time.RFC3339Nano),
		e.ArtifactID, e.EventType, e.Actor, e.DetailHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// sha256Sum returns the hex-encoded SHA-256 digest of data.
func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
