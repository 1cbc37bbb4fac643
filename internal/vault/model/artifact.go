package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/attestia/docseal/internal/hashing"
)

// SealStatus represents the lifecycle state of a sealed artifact.
type SealStatus string

const (
	SealStatusPending SealStatus = "pending"
	SealStatusSealed  SealStatus = "sealed"
	SealStatusFailed  SealStatus = "seal_failed"
)

// Artifact types. ArtifactType is free text; these are the values the engine
// itself assigns. A package artifact's payload hash is the directory
// composite of its member files.
const (
	ArtifactTypeDocument = "document"
	ArtifactTypePackage  = "package"
)

// DocumentMeta is the typed metadata attached to an artifact at seal time.
// Extra is a flat string map escape hatch for caller-specific fields; it is
// deliberately not nested so audit records stay canonically hashable.
type DocumentMeta struct {
	SchemaVersion int               `json:"schema_version"`
	Title         string            `json:"title,omitempty"`
	ContentType   string            `json:"content_type,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Artifact is the core domain model representing one sealed document or
// document package. PayloadHash is write-once: it is set when the artifact is
// created and never mutated afterwards, including across re-seal attempts.
type Artifact struct {
	ID             uuid.UUID         `json:"id"                      db:"id"`
	GroupKey       string            `json:"group_key"               db:"group_key"`
	ArtifactType   string            `json:"artifact_type"           db:"artifact_type"`
	PayloadHash    string            `json:"payload_hash"            db:"payload_hash"`
	AlgorithmSuite []hashing.Digest  `json:"algorithm_suite"         db:"algorithm_suite"`
	LedgerTxRef    string            `json:"ledger_tx_ref,omitempty" db:"ledger_tx_ref"`
	Simulated      bool              `json:"simulated"               db:"simulated"`
	SealStatus     SealStatus        `json:"seal_status"             db:"seal_status"`
	Meta           DocumentMeta      `json:"meta"                    db:"meta"`
	ParentID       *uuid.UUID        `json:"parent_id,omitempty"     db:"parent_id"`
	CreatedAt      time.Time         `json:"created_at"              db:"created_at"`
	CreatedBy      string            `json:"created_by"              db:"created_by"`
	UpdatedAt      time.Time         `json:"updated_at"              db:"updated_at"`
}

// MatchesDigest reports whether hex equals any digest in the artifact's
// suite, returning the matching algorithm.
func (a *Artifact) MatchesDigest(hex string) (hashing.Algorithm, bool) {
	for _, d := range a.AlgorithmSuite {
		if d.Hex == hex {
			return d.Algorithm, true
		}
	}
	return "", false
}

// ArtifactFile is one raw file blob belonging to an artifact. For package
// artifacts the path-ordered member digests must recompose to the artifact's
// PayloadHash.
type ArtifactFile struct {
	ID         uuid.UUID `json:"id"          db:"id"`
	ArtifactID uuid.UUID `json:"artifact_id" db:"artifact_id"`
	Path       string    `json:"path"        db:"path"`
	SizeBytes  int64     `json:"size_bytes"  db:"size_bytes"`
	Digest     string    `json:"digest"      db:"digest"`
	Data       []byte    `json:"-"           db:"data"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// DeletedDocument is the immutable archival record created exactly once when
// an artifact is soft-deleted. It carries everything needed to verify the
// document after the artifact row is gone, and has no foreign key back to the
// artifacts table — it must outlive it.
type DeletedDocument struct {
	ID                 uuid.UUID        `json:"id"                    db:"id"`
	OriginalArtifactID uuid.UUID        `json:"original_artifact_id"  db:"original_artifact_id"`
	GroupKey           string           `json:"group_key"             db:"group_key"`
	ArtifactType       string           `json:"artifact_type"         db:"artifact_type"`
	PayloadHash        string           `json:"payload_hash"          db:"payload_hash"`
	AlgorithmSuite     []hashing.Digest `json:"algorithm_suite"       db:"algorithm_suite"`
	LedgerTxRef        string           `json:"ledger_tx_ref"         db:"ledger_tx_ref"`
	Simulated          bool             `json:"simulated"             db:"simulated"`
	OriginalCreatedAt  time.Time        `json:"original_created_at"   db:"original_created_at"`
	OriginalCreatedBy  string           `json:"original_created_by"   db:"original_created_by"`
	DeletedAt          time.Time        `json:"deleted_at"            db:"deleted_at"`
	DeletedBy          string           `json:"deleted_by"            db:"deleted_by"`
	DeletionReason     string           `json:"deletion_reason"       db:"deletion_reason"`
}

// MatchesDigest reports whether hex equals any digest recorded at deletion
// time, returning the matching algorithm.
func (d *DeletedDocument) MatchesDigest(hex string) (hashing.Algorithm, bool) {
	for _, dg := range d.AlgorithmSuite {
		if dg.Hex == hex {
			return dg.Algorithm, true
		}
	}
	return "", false
}
