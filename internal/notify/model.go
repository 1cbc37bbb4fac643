package notify

import (
	"time"

	"github.com/google/uuid"
)

// Event types dispatched by the sealing engine.
const (
	EventArtifactSealed       = "artifact.sealed"
	EventArtifactSealFailed   = "artifact.seal_failed"
	EventArtifactDeleted      = "artifact.deleted"
	EventVerificationTampered = "verification.tampered"
	EventLedgerDegraded       = "ledger.degraded"
)

// KnownEventTypes lists every event type a subscription may listen for.
var KnownEventTypes = []string{
	EventArtifactSealed,
	EventArtifactSealFailed,
	EventArtifactDeleted,
	EventVerificationTampered,
	EventLedgerDegraded,
}

// Subscription represents a caller's subscription to lifecycle events.
// Owner is the authenticated actor that created it; only the owner may
// delete it.
type Subscription struct {
	ID        uuid.UUID `json:"id"         db:"id"`
	Owner     string    `json:"owner"      db:"owner"`
	URL       string    `json:"url"        db:"url"`
	Events    []string  `json:"events"     db:"events"`
	Secret    string    `json:"-"          db:"secret"` // never returned in API responses
	Active    bool      `json:"active"     db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event is the JSON body delivered to matching subscriptions.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	ID             uuid.UUID `json:"id"              db:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id" db:"subscription_id"`
	EventType      string    `json:"event_type"      db:"event_type"`
	StatusCode     int       `json:"status_code"     db:"status_code"`
	Attempt        int       `json:"attempt"         db:"attempt"`
	Success        bool      `json:"success"         db:"success"`
	ErrorMessage   string    `json:"error_message"   db:"error_message"`
	DeliveredAt    time.Time `json:"delivered_at"    db:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for creating a subscription.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    binding:"required,url"`
	Events []string `json:"events" binding:"required"`
}
