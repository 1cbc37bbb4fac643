package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attestia/docseal/internal/vault/model"
)

// lockWait bounds how long a per-artifact mutation waits for the artifact
// lock before giving up with ErrConflict.
const lockWait = 2 * time.Second

// MemoryStore is an in-memory, thread-safe artifact store for testing and
// single-process deployments. Per-artifact mutations are serialised through a
// per-ID lock channel with a bounded wait, mirroring the row-lock semantics
// of the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[uuid.UUID]*model.Artifact
	files    map[uuid.UUID][]model.ArtifactFile
	deleted  map[uuid.UUID]*model.DeletedDocument // keyed by original artifact ID
	rowLocks map[uuid.UUID]chan struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[uuid.UUID]*model.Artifact),
		files:    make(map[uuid.UUID][]model.ArtifactFile),
		deleted:  make(map[uuid.UUID]*model.DeletedDocument),
		rowLocks: make(map[uuid.UUID]chan struct{}),
	}
}

// acquire takes the per-artifact lock, waiting at most lockWait.
func (s *MemoryStore) acquire(ctx context.Context, id uuid.UUID) (release func(), err error) {
	s.mu.Lock()
	ch, ok := s.rowLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[id] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(lockWait):
		return nil, ErrConflict
	}
}

// Create inserts a new artifact and its file blobs.
func (s *MemoryStore) Create(_ context.Context, artifact *model.Artifact, files []model.ArtifactFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	artifact.CreatedAt = now
	artifact.UpdatedAt = now

	cp := *artifact
	s.rows[artifact.ID] = &cp

	stored := make([]model.ArtifactFile, len(files))
	for i, f := range files {
		f.ID = uuid.New()
		f.ArtifactID = artifact.ID
		f.CreatedAt = now
		stored[i] = f
	}
	s.files[artifact.ID] = stored
	return nil
}

// GetByID retrieves an artifact by its UUID.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*model.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetByAnyDigest retrieves an artifact matching any digest of its suite.
func (s *MemoryStore) GetByAnyDigest(_ context.Context, hex string) (*model.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.rows {
		if a.PayloadHash == hex {
			cp := *a
			return &cp, nil
		}
		if _, ok := a.MatchesDigest(hex); ok {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListByGroupKey returns artifacts correlated by group key.
func (s *MemoryStore) ListByGroupKey(_ context.Context, groupKey string, limit, offset int) ([]*model.Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Artifact
	for _, a := range s.rows {
		if a.GroupKey == groupKey {
			cp := *a
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetFiles returns the file blobs of an artifact.
func (s *MemoryStore) GetFiles(_ context.Context, artifactID uuid.UUID) ([]model.ArtifactFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files, ok := s.files[artifactID]
	if !ok {
		return nil, nil
	}
	out := make([]model.ArtifactFile, len(files))
	copy(out, files)
	return out, nil
}

// SetSealResult records a seal attempt outcome under the per-artifact lock.
func (s *MemoryStore) SetSealResult(ctx context.Context, id uuid.UUID, status model.SealStatus, txRef string, simulated bool) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	a.SealStatus = status
	a.LedgerTxRef = txRef
	a.Simulated = simulated
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Archive moves an artifact into the deleted set. The copy and delete happen
// under both the per-artifact lock and the store mutex, so the artifact is
// never observable in both places or in neither.
func (s *MemoryStore) Archive(ctx context.Context, id uuid.UUID, deletedBy, reason string) (*model.DeletedDocument, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deleted[id]; ok {
		return nil, ErrAlreadyDeleted
	}
	a, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}

	doc := &model.DeletedDocument{
		ID:                 uuid.New(),
		OriginalArtifactID: a.ID,
		GroupKey:           a.GroupKey,
		ArtifactType:       a.ArtifactType,
		PayloadHash:        a.PayloadHash,
		AlgorithmSuite:     a.AlgorithmSuite,
		LedgerTxRef:        a.LedgerTxRef,
		Simulated:          a.Simulated,
		OriginalCreatedAt:  a.CreatedAt,
		OriginalCreatedBy:  a.CreatedBy,
		DeletedAt:          time.Now().UTC(),
		DeletedBy:          deletedBy,
		DeletionReason:     reason,
	}
	s.deleted[id] = doc
	delete(s.rows, id)
	delete(s.files, id)

	cp := *doc
	return &cp, nil
}

// GetDeletedByOriginalID retrieves the archival record for an artifact id.
func (s *MemoryStore) GetDeletedByOriginalID(_ context.Context, id uuid.UUID) (*model.DeletedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deleted[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// GetDeletedByHash retrieves an archival record matching any recorded digest.
func (s *MemoryStore) GetDeletedByHash(_ context.Context, hex string) (*model.DeletedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.deleted {
		if d.PayloadHash == hex {
			cp := *d
			return &cp, nil
		}
		if _, ok := d.MatchesDigest(hex); ok {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListDeletedByGroupKey returns archival records for a group key.
func (s *MemoryStore) ListDeletedByGroupKey(_ context.Context, groupKey string, limit, offset int) ([]*model.DeletedDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.DeletedDocument
	for _, d := range s.deleted {
		if d.GroupKey == groupKey {
			cp := *d
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
