// Package service contains the business logic of the sealing engine: the
// sealing orchestrator, hash verification, the soft-delete archive, and bulk
// directory validation. Stores, the ledger client, and the event log are
// consumed through narrow interfaces so tests can swap in-memory fakes.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/attestia/docseal/internal/ledger"
	"github.com/attestia/docseal/internal/vault/model"
)

// ErrValidation marks synchronously rejected bad input (malformed hash,
// missing files, empty actor). Never retried, never subject to fallback.
var ErrValidation = errors.New("validation failed")

// ArtifactStore is the persistence interface shared by the services.
// Both *repository.ArtifactRepository and *repository.MemoryStore satisfy it.
type ArtifactStore interface {
	Create(ctx context.Context, artifact *model.Artifact, files []model.ArtifactFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Artifact, error)
	GetByAnyDigest(ctx context.Context, hex string) (*model.Artifact, error)
	ListByGroupKey(ctx context.Context, groupKey string, limit, offset int) ([]*model.Artifact, error)
	GetFiles(ctx context.Context, artifactID uuid.UUID) ([]model.ArtifactFile, error)
	SetSealResult(ctx context.Context, id uuid.UUID, status model.SealStatus, txRef string, simulated bool) error
	Archive(ctx context.Context, id uuid.UUID, deletedBy, reason string) (*model.DeletedDocument, error)
	GetDeletedByOriginalID(ctx context.Context, id uuid.UUID) (*model.DeletedDocument, error)
	GetDeletedByHash(ctx context.Context, hex string) (*model.DeletedDocument, error)
	ListDeletedByGroupKey(ctx context.Context, groupKey string, limit, offset int) ([]*model.DeletedDocument, error)
}

// LedgerSealer is the remote ledger interface used by the orchestrator.
// *ledger.Client satisfies it.
type LedgerSealer interface {
	Seal(ctx context.Context, artifactID, hash string, metadata map[string]string) (*ledger.SealReceipt, error)
}

// Notifier dispatches lifecycle events to external subscribers.
// *notify.Service satisfies this interface.
type Notifier interface {
	Dispatch(ctx context.Context, eventType string, payload map[string]string)
}

// isHexDigest reports whether s looks like a hex digest of plausible length.
func isHexDigest(s string) bool {
	if len(s) < 40 || len(s) > 128 || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
