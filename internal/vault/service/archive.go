package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/eventlog"
	"github.com/attestia/docseal/internal/vault/model"
)

// ArchiveService performs soft deletion: the artifact's full record moves
// into the immutable deleted_documents archive in one atomic step, and the
// document stays verifiable through the archival record afterwards.
type ArchiveService struct {
	store    ArtifactStore
	events   eventlog.Log
	notifier Notifier // nil = no notifications
	onMetric func()
	logger   *zap.Logger
}

// NewArchiveService creates an ArchiveService.
func NewArchiveService(store ArtifactStore, events eventlog.Log, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{store: store, events: events, logger: logger}
}

// SetNotifier configures the lifecycle event notifier.
func (s *ArchiveService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetMetricRecorder configures the deletion counter callback.
func (s *ArchiveService) SetMetricRecorder(fn func()) {
	s.onMetric = fn
}

// Archive soft-deletes an artifact. The store guarantees atomicity of the
// copy+delete; repository.ErrAlreadyDeleted surfaces a repeat call so the
// caller sees that the deletion already happened, and exactly one
// DeletedDocument ever exists per artifact.
func (s *ArchiveService) Archive(ctx context.Context, artifactID uuid.UUID, deletedBy, reason string) (*model.DeletedDocument, error) {
	if deletedBy == "" {
		return nil, fmt.Errorf("%w: missing deletedBy actor", ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: missing deletion reason", ErrValidation)
	}

	doc, err := s.store.Archive(ctx, artifactID, deletedBy, reason)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if _, err := s.events.Append(ctx, artifactID.String(), eventlog.EventDeleted, deletedBy, map[string]string{
			"reason":       reason,
			"payload_hash": doc.PayloadHash,
		}); err != nil {
			s.logger.Error("event append failed (non-fatal)",
				zap.String("artifact_id", artifactID.String()),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, "artifact.deleted", map[string]string{
			"artifact_id":  artifactID.String(),
			"group_key":    doc.GroupKey,
			"payload_hash": doc.PayloadHash,
			"deleted_by":   deletedBy,
			"reason":       reason,
		})
	}
	if s.onMetric != nil {
		s.onMetric()
	}

	s.logger.Info("artifact archived",
		zap.String("artifact_id", artifactID.String()),
		zap.String("deleted_by", deletedBy),
	)
	return doc, nil
}

// GetByOriginalID returns the archival record for an artifact id.
func (s *ArchiveService) GetByOriginalID(ctx context.Context, artifactID uuid.UUID) (*model.DeletedDocument, error) {
	return s.store.GetDeletedByOriginalID(ctx, artifactID)
}

// GetByHash returns the archival record matching any recorded digest.
func (s *ArchiveService) GetByHash(ctx context.Context, hex string) (*model.DeletedDocument, error) {
	if !isHexDigest(hex) {
		return nil, fmt.Errorf("%w: malformed hash %q", ErrValidation, hex)
	}
	return s.store.GetDeletedByHash(ctx, hex)
}

// ListByGroupKey returns archival records correlated by group key.
func (s *ArchiveService) ListByGroupKey(ctx context.Context, groupKey string, limit, offset int) ([]*model.DeletedDocument, error) {
	return s.store.ListDeletedByGroupKey(ctx, groupKey, limit, offset)
}
