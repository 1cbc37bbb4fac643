package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/attestia/docseal/internal/hashing"
)

// VerificationOutcome classifies a verification request. Tampering is a
// result, not an error: callers always receive one of these values and can
// never accidentally swallow a tamper signal in an error path.
type VerificationOutcome string

const (
	OutcomeVerified VerificationOutcome = "verified"
	OutcomeTampered VerificationOutcome = "tampered"
	OutcomeDeleted  VerificationOutcome = "deleted"
	OutcomeNotFound VerificationOutcome = "not_found"
)

// VerificationResult is the full classification of a verifyByHash call.
type VerificationResult struct {
	Outcome    VerificationOutcome `json:"outcome"`
	ArtifactID *uuid.UUID          `json:"artifact_id,omitempty"`
	GroupKey   string              `json:"group_key,omitempty"`

	// MatchedAlgorithm discloses which digest of the stored suite matched
	// the queried hash.
	MatchedAlgorithm hashing.Algorithm `json:"matched_algorithm,omitempty"`

	// Simulated is true when the artifact was sealed via the local fallback
	// rather than the remote ledger, a weaker guarantee the caller must be
	// able to distinguish.
	Simulated   bool   `json:"simulated,omitempty"`
	LedgerTxRef string `json:"ledger_tx_ref,omitempty"`

	// Message is a human-readable provenance summary, populated for deleted
	// documents. Absent source fields render as "unknown", never as guesses.
	Message string `json:"message,omitempty"`

	CheckedAt time.Time `json:"checked_at"`
}
