package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/eventlog"
	"github.com/attestia/docseal/internal/hashing"
	"github.com/attestia/docseal/internal/vault/model"
	"github.com/attestia/docseal/internal/vault/repository"
)

// VerifyMetricFunc is an optional callback recording verification outcomes.
type VerifyMetricFunc func(outcome model.VerificationOutcome)

// VerificationService answers "is this hash a document we sealed, and is the
// stored payload still intact?". It always returns a classification; the
// verification portal's value is a definitive, auditable answer.
type VerificationService struct {
	store    ArtifactStore
	engine   *hashing.Engine
	events   eventlog.Log
	notifier Notifier // nil = no notifications
	onMetric VerifyMetricFunc
	logger   *zap.Logger
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(store ArtifactStore, engine *hashing.Engine, events eventlog.Log, logger *zap.Logger) *VerificationService {
	return &VerificationService{
		store:  store,
		engine: engine,
		events: events,
		logger: logger,
	}
}

// SetNotifier configures the lifecycle event notifier.
func (s *VerificationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetMetricRecorder configures the verification outcome metric callback.
func (s *VerificationService) SetMetricRecorder(fn VerifyMetricFunc) {
	s.onMetric = fn
}

// VerifyByHash classifies hex against the active artifact set, then the
// soft-delete archive. Each call that resolves to an artifact (active or
// deleted) appends a "verified" audit event; verification is read-mostly
// but not side-effect-free.
func (s *VerificationService) VerifyByHash(ctx context.Context, hex string) (*model.VerificationResult, error) {
	if !isHexDigest(hex) {
		return nil, fmt.Errorf("%w: malformed hash %q", ErrValidation, hex)
	}
	now := time.Now().UTC()

	artifact, err := s.store.GetByAnyDigest(ctx, hex)
	switch {
	case err == nil:
		return s.verifyActive(ctx, artifact, hex, now)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup artifact by hash: %w", err)
	}

	doc, err := s.store.GetDeletedByHash(ctx, hex)
	switch {
	case err == nil:
		return s.verifyDeleted(ctx, doc, hex, now)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup deleted document by hash: %w", err)
	}

	s.record(model.OutcomeNotFound)
	return &model.VerificationResult{Outcome: model.OutcomeNotFound, CheckedAt: now}, nil
}

func (s *VerificationService) verifyActive(ctx context.Context, artifact *model.Artifact, hex string, now time.Time) (*model.VerificationResult, error) {
	matchedAlg, _ := artifact.MatchesDigest(hex)

	result := &model.VerificationResult{
		Outcome:          model.OutcomeVerified,
		ArtifactID:       &artifact.ID,
		GroupKey:         artifact.GroupKey,
		MatchedAlgorithm: matchedAlg,
		Simulated:        artifact.Simulated,
		LedgerTxRef:      artifact.LedgerTxRef,
		CheckedAt:        now,
	}

	// When the payload blobs are still retrievable, recompute the canonical
	// digest and compare. A mismatch means the stored bytes changed after
	// sealing: tampered, never an error.
	files, err := s.store.GetFiles(ctx, artifact.ID)
	if err != nil {
		return nil, fmt.Errorf("load artifact files: %w", err)
	}
	if len(files) > 0 {
		intact, err := s.recomputeMatches(artifact, files)
		if err != nil {
			return nil, err
		}
		if !intact {
			result.Outcome = model.OutcomeTampered
			result.Message = "stored payload digest no longer matches the sealed hash"
			if s.notifier != nil {
				s.notifier.Dispatch(ctx, "verification.tampered", map[string]string{
					"artifact_id":  artifact.ID.String(),
					"group_key":    artifact.GroupKey,
					"payload_hash": artifact.PayloadHash,
				})
			}
		}
	}

	s.appendEvent(ctx, artifact.ID.String(), map[string]string{
		"outcome":           string(result.Outcome),
		"matched_algorithm": string(matchedAlg),
	})
	s.record(result.Outcome)
	return result, nil
}

func (s *VerificationService) verifyDeleted(ctx context.Context, doc *model.DeletedDocument, hex string, now time.Time) (*model.VerificationResult, error) {
	matchedAlg, _ := doc.MatchesDigest(hex)

	result := &model.VerificationResult{
		Outcome:          model.OutcomeDeleted,
		ArtifactID:       &doc.OriginalArtifactID,
		GroupKey:         doc.GroupKey,
		MatchedAlgorithm: matchedAlg,
		Simulated:        doc.Simulated,
		LedgerTxRef:      doc.LedgerTxRef,
		Message:          provenanceMessage(doc),
		CheckedAt:        now,
	}

	s.appendEvent(ctx, doc.OriginalArtifactID.String(), map[string]string{
		"outcome":           string(model.OutcomeDeleted),
		"matched_algorithm": string(matchedAlg),
	})
	s.record(model.OutcomeDeleted)
	return result, nil
}

// recomputeMatches rebuilds the canonical payload from stored blobs and
// compares the primary digest against the write-once payload hash.
func (s *VerificationService) recomputeMatches(artifact *model.Artifact, files []model.ArtifactFile) (bool, error) {
	primary := artifact.AlgorithmSuite[0].Algorithm

	if len(files) == 1 && artifact.ArtifactType != model.ArtifactTypePackage {
		d, err := s.engine.Digest(files[0].Data, primary)
		if err != nil {
			return false, fmt.Errorf("recompute digest: %w", err)
		}
		return d.Hex == artifact.PayloadHash, nil
	}

	members := make([]hashing.Member, len(files))
	for i, f := range files {
		d, err := s.engine.Digest(f.Data, primary)
		if err != nil {
			return false, fmt.Errorf("recompute digest for %s: %w", f.Path, err)
		}
		members[i] = hashing.Member{Path: f.Path, Hex: d.Hex}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })

	var buf bytes.Buffer
	for _, m := range members {
		fmt.Fprintf(&buf, "%s\x00%s\n", m.Path, m.Hex)
	}
	d, err := s.engine.Digest(buf.Bytes(), primary)
	if err != nil {
		return false, fmt.Errorf("recompute composite digest: %w", err)
	}
	return d.Hex == artifact.PayloadHash, nil
}

// provenanceMessage reconstructs a human-readable custody summary from the
// archival record. Fields missing from the record render as "unknown";
// dates are never fabricated.
func provenanceMessage(doc *model.DeletedDocument) string {
	createdBy := doc.OriginalCreatedBy
	if createdBy == "" {
		createdBy = "unknown"
	}
	createdAt := "unknown"
	if !doc.OriginalCreatedAt.IsZero() {
		createdAt = doc.OriginalCreatedAt.UTC().Format(time.RFC3339)
	}
	deletedBy := doc.DeletedBy
	if deletedBy == "" {
		deletedBy = "unknown"
	}
	deletedAt := "unknown"
	if !doc.DeletedAt.IsZero() {
		deletedAt = doc.DeletedAt.UTC().Format(time.RFC3339)
	}
	msg := fmt.Sprintf("document was sealed by %s at %s and deleted by %s at %s",
		createdBy, createdAt, deletedBy, deletedAt)
	if doc.DeletionReason != "" {
		msg += fmt.Sprintf(" (reason: %s)", doc.DeletionReason)
	}
	return msg
}

func (s *VerificationService) appendEvent(ctx context.Context, artifactID string, detail any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Append(ctx, artifactID, eventlog.EventVerified, eventlog.SystemActor, detail); err != nil {
		s.logger.Error("event append failed (non-fatal)",
			zap.String("artifact_id", artifactID),
			zap.Error(err),
		)
	}
}

func (s *VerificationService) record(outcome model.VerificationOutcome) {
	if s.onMetric != nil {
		s.onMetric(outcome)
	}
}
