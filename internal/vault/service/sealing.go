package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/eventlog"
	"github.com/attestia/docseal/internal/hashing"
	"github.com/attestia/docseal/internal/ledger"
	"github.com/attestia/docseal/internal/vault/model"
)

// SealMetricFunc is an optional callback recording seal outcomes by status.
type SealMetricFunc func(status model.SealStatus, simulated bool)

// SealingService turns uploaded documents into sealed artifacts. It owns the
// pending → sealed / sealed(simulated) / seal_failed state machine and emits
// one event per transition.
type SealingService struct {
	store    ArtifactStore
	engine   *hashing.Engine
	ledger   LedgerSealer // nil = no remote ledger; fallback policy decides
	events   eventlog.Log
	notifier Notifier // nil = no notifications
	onMetric SealMetricFunc

	// fallbackEnabled controls whether exhausted ledger retries degrade to a
	// local simulated seal instead of seal_failed. A simulated seal is a
	// weaker guarantee and is always surfaced via the Simulated flag.
	fallbackEnabled bool

	logger *zap.Logger
}

// NewSealingService creates a SealingService. ledgerClient may be nil to run
// without a remote ledger (every seal then follows the fallback policy).
func NewSealingService(store ArtifactStore, engine *hashing.Engine, ledgerClient LedgerSealer, events eventlog.Log, logger *zap.Logger) *SealingService {
	return &SealingService{
		store:           store,
		engine:          engine,
		ledger:          ledgerClient,
		events:          events,
		fallbackEnabled: true,
		logger:          logger,
	}
}

// SetFallbackEnabled toggles the simulated-seal fallback policy.
func (s *SealingService) SetFallbackEnabled(enabled bool) {
	s.fallbackEnabled = enabled
}

// SetNotifier configures the lifecycle event notifier.
func (s *SealingService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetMetricRecorder configures the seal outcome metric callback.
func (s *SealingService) SetMetricRecorder(fn SealMetricFunc) {
	s.onMetric = fn
}

// Seal creates a pending artifact from the request, records its digests,
// attempts the remote seal, and persists the outcome.
//
// A caller cancellation while the ledger call is in flight leaves the
// artifact pending: the remote outcome is unknown and must never be assumed
// successful.
func (s *SealingService) Seal(ctx context.Context, req *model.SealRequest) (*model.SealResult, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no files in seal request", ErrValidation)
	}
	if req.Actor == "" {
		return nil, fmt.Errorf("%w: missing actor", ErrValidation)
	}
	for _, f := range req.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: file with empty path", ErrValidation)
		}
	}

	suite, err := hashing.SuiteByName(req.Suite)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	artifactType := model.ArtifactTypeDocument
	if len(req.Files) > 1 {
		artifactType = model.ArtifactTypePackage
	}

	canonical, files, err := s.canonicalPayload(req.Files, suite[0])
	if err != nil {
		return nil, err
	}
	digests, err := s.engine.DigestSuite(canonical, suite)
	if err != nil {
		return nil, fmt.Errorf("digest payload: %w", err)
	}

	artifact := &model.Artifact{
		ID:             uuid.New(),
		GroupKey:       req.GroupKey,
		ArtifactType:   artifactType,
		PayloadHash:    digests[0].Hex,
		AlgorithmSuite: digests,
		SealStatus:     model.SealStatusPending,
		Meta:           req.Meta,
		CreatedBy:      req.Actor,
	}
	if err := s.store.Create(ctx, artifact, files); err != nil {
		return nil, fmt.Errorf("persist artifact: %w", err)
	}
	s.appendEvent(ctx, artifact.ID, eventlog.EventCreated, req.Actor, map[string]string{
		"group_key":     req.GroupKey,
		"artifact_type": artifactType,
		"payload_hash":  artifact.PayloadHash,
	})

	return s.attemptSeal(ctx, artifact, req.Actor)
}

// Reseal re-attempts the ledger seal for a seal_failed artifact. The stored
// payload hash is write-once: the canonical payload is recomputed from the
// stored blobs and must still match before any ledger call is made.
func (s *SealingService) Reseal(ctx context.Context, artifactID uuid.UUID, actor string) (*model.SealResult, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: missing actor", ErrValidation)
	}

	artifact, err := s.store.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if artifact.SealStatus == model.SealStatusSealed {
		// Idempotent: an already sealed artifact is returned as-is.
		return &model.SealResult{Artifact: artifact, Simulated: artifact.Simulated}, nil
	}

	storedFiles, err := s.store.GetFiles(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("load artifact files: %w", err)
	}
	if len(storedFiles) > 0 {
		payloads := make([]model.FilePayload, len(storedFiles))
		for i, f := range storedFiles {
			payloads[i] = model.FilePayload{Path: f.Path, Data: f.Data}
		}
		primary := artifact.AlgorithmSuite[0].Algorithm
		canonical, _, err := s.canonicalPayload(payloads, primary)
		if err != nil {
			return nil, err
		}
		recomputed, err := s.engine.Digest(canonical, primary)
		if err != nil {
			return nil, fmt.Errorf("recompute payload digest: %w", err)
		}
		if recomputed.Hex != artifact.PayloadHash {
			return nil, fmt.Errorf("stored payload no longer matches sealed hash for %s", artifactID)
		}
	}

	return s.attemptSeal(ctx, artifact, actor)
}

// Get returns an artifact by ID.
func (s *SealingService) Get(ctx context.Context, artifactID uuid.UUID) (*model.Artifact, error) {
	return s.store.GetByID(ctx, artifactID)
}

// ListByGroupKey returns artifacts correlated by group key.
func (s *SealingService) ListByGroupKey(ctx context.Context, groupKey string, limit, offset int) ([]*model.Artifact, error) {
	return s.store.ListByGroupKey(ctx, groupKey, limit, offset)
}

// attemptSeal drives the ledger call and records the resulting transition.
func (s *SealingService) attemptSeal(ctx context.Context, artifact *model.Artifact, actor string) (*model.SealResult, error) {
	receipt, sealErr := s.sealRemote(ctx, artifact)

	switch {
	case sealErr == nil && receipt != nil:
		if err := s.store.SetSealResult(ctx, artifact.ID, model.SealStatusSealed, receipt.TxRef, false); err != nil {
			return nil, fmt.Errorf("persist seal result: %w", err)
		}
		artifact.SealStatus = model.SealStatusSealed
		artifact.LedgerTxRef = receipt.TxRef
		artifact.Simulated = false
		s.appendEvent(ctx, artifact.ID, eventlog.EventSealed, eventlog.SystemActor, map[string]string{
			"tx_ref": receipt.TxRef,
		})
		s.dispatch(ctx, "artifact.sealed", artifact)
		s.record(model.SealStatusSealed, false)
		return &model.SealResult{Artifact: artifact}, nil

	case errors.Is(sealErr, context.Canceled) || errors.Is(sealErr, context.DeadlineExceeded):
		// In-flight outcome unknown: stay pending.
		s.logger.Warn("seal cancelled, artifact left pending",
			zap.String("artifact_id", artifact.ID.String()),
			zap.Error(sealErr),
		)
		return nil, sealErr

	case errors.Is(sealErr, ledger.ErrRejected):
		return s.failSeal(ctx, artifact, sealErr)

	case s.fallbackEnabled:
		// Ledger unreachable and retries exhausted: degrade to a local
		// simulated seal, explicitly marked as the weaker guarantee.
		txRef := "sim-" + uuid.New().String()
		if err := s.store.SetSealResult(ctx, artifact.ID, model.SealStatusSealed, txRef, true); err != nil {
			return nil, fmt.Errorf("persist simulated seal: %w", err)
		}
		artifact.SealStatus = model.SealStatusSealed
		artifact.LedgerTxRef = txRef
		artifact.Simulated = true
		s.appendEvent(ctx, artifact.ID, eventlog.EventSealed, eventlog.SystemActor, map[string]string{
			"tx_ref":    txRef,
			"simulated": "true",
		})
		s.logger.Warn("ledger unreachable, sealed in simulation mode",
			zap.String("artifact_id", artifact.ID.String()),
			zap.Error(sealErr),
		)
		s.dispatch(ctx, "artifact.sealed", artifact)
		s.record(model.SealStatusSealed, true)
		return &model.SealResult{Artifact: artifact, Simulated: true}, nil

	default:
		return s.failSeal(ctx, artifact, sealErr)
	}
}

func (s *SealingService) sealRemote(ctx context.Context, artifact *model.Artifact) (*ledger.SealReceipt, error) {
	if s.ledger == nil {
		return nil, ledger.ErrUnreachable
	}
	return s.ledger.Seal(ctx, artifact.ID.String(), artifact.PayloadHash, map[string]string{
		"group_key":     artifact.GroupKey,
		"artifact_type": artifact.ArtifactType,
		"created_by":    artifact.CreatedBy,
	})
}

func (s *SealingService) failSeal(ctx context.Context, artifact *model.Artifact, cause error) (*model.SealResult, error) {
	if err := s.store.SetSealResult(ctx, artifact.ID, model.SealStatusFailed, "", false); err != nil {
		return nil, fmt.Errorf("persist seal failure: %w", err)
	}
	artifact.SealStatus = model.SealStatusFailed
	artifact.LedgerTxRef = ""
	s.appendEvent(ctx, artifact.ID, eventlog.EventSealFailed, eventlog.SystemActor, map[string]string{
		"error": cause.Error(),
	})
	s.logger.Warn("seal failed",
		zap.String("artifact_id", artifact.ID.String()),
		zap.Error(cause),
	)
	s.dispatch(ctx, "artifact.seal_failed", artifact)
	s.record(model.SealStatusFailed, false)
	return &model.SealResult{Artifact: artifact}, nil
}

// canonicalPayload computes the byte stream the digest suite runs over, plus
// the artifact file records. For a single file the canonical bytes are the
// raw content; for a package they are the path-sorted member digest stream,
// which makes the payload hash invariant under upload order.
func (s *SealingService) canonicalPayload(payloads []model.FilePayload, primary hashing.Algorithm) ([]byte, []model.ArtifactFile, error) {
	files := make([]model.ArtifactFile, len(payloads))
	members := make([]hashing.Member, len(payloads))
	for i, p := range payloads {
		d, err := s.engine.Digest(p.Data, primary)
		if err != nil {
			return nil, nil, fmt.Errorf("digest %s: %w", p.Path, err)
		}
		files[i] = model.ArtifactFile{
			Path:      p.Path,
			SizeBytes: int64(len(p.Data)),
			Digest:    d.Hex,
			Data:      p.Data,
		}
		members[i] = hashing.Member{Path: p.Path, Hex: d.Hex}
	}

	if len(payloads) == 1 {
		return payloads[0].Data, files, nil
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })
	var buf bytes.Buffer
	for _, m := range members {
		fmt.Fprintf(&buf, "%s\x00%s\n", m.Path, m.Hex)
	}
	return buf.Bytes(), files, nil
}

// appendEvent writes an audit event in a non-fatal manner: a failed append is
// logged, never allowed to fail the seal itself.
func (s *SealingService) appendEvent(ctx context.Context, artifactID uuid.UUID, eventType eventlog.EventType, actor string, detail any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Append(ctx, artifactID.String(), eventType, actor, detail); err != nil {
		s.logger.Error("event append failed (non-fatal)",
			zap.String("event_type", string(eventType)),
			zap.String("artifact_id", artifactID.String()),
			zap.Error(err),
		)
	}
}

func (s *SealingService) dispatch(ctx context.Context, eventType string, artifact *model.Artifact) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, eventType, map[string]string{
		"artifact_id":  artifact.ID.String(),
		"group_key":    artifact.GroupKey,
		"payload_hash": artifact.PayloadHash,
		"seal_status":  string(artifact.SealStatus),
		"simulated":    fmt.Sprintf("%t", artifact.Simulated),
	})
}

func (s *SealingService) record(status model.SealStatus, simulated bool) {
	if s.onMetric != nil {
		s.onMetric(status, simulated)
	}
}
