package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attestia/docseal/internal/vault/model"
)

// pgLockNotAvailable is the SQLSTATE raised by FOR UPDATE NOWAIT when the row
// lock is held by another transaction.
const pgLockNotAvailable = "55P03"

// ArtifactRepository provides artifact and deleted-document persistence
// against PostgreSQL. Per-artifact mutations (seal result, archive) take a
// row lock with NOWAIT so a concurrent seal-retry and delete can never
// interleave; lock contention surfaces as ErrConflict.
type ArtifactRepository struct {
	db *pgxpool.Pool
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(db *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create inserts a new artifact and its file blobs in one transaction.
func (r *ArtifactRepository) Create(ctx context.Context, artifact *model.Artifact, files []model.ArtifactFile) error {
	suite, err := json.Marshal(artifact.AlgorithmSuite)
	if err != nil {
		return fmt.Errorf("marshal algorithm suite: %w", err)
	}
	meta, err := json.Marshal(artifact.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	now := time.Now().UTC()
	artifact.CreatedAt = now
	artifact.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO artifacts (
			id, group_key, artifact_type, payload_hash, algorithm_suite,
			ledger_tx_ref, simulated, seal_status, meta, parent_id,
			created_at, created_by, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		artifact.ID, artifact.GroupKey, artifact.ArtifactType, artifact.PayloadHash, suite,
		artifact.LedgerTxRef, artifact.Simulated, artifact.SealStatus, meta, artifact.ParentID,
		artifact.CreatedAt, artifact.CreatedBy, artifact.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}

	for i := range files {
		f := &files[i]
		f.ID = uuid.New()
		f.ArtifactID = artifact.ID
		f.CreatedAt = now
		if _, err := tx.Exec(ctx, `
			INSERT INTO artifact_files (id, artifact_id, path, size_bytes, digest, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.ArtifactID, f.Path, f.SizeBytes, f.Digest, f.Data, f.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert artifact file %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit artifact tx: %w", err)
	}
	return nil
}

const artifactColumns = `id, group_key, artifact_type, payload_hash, algorithm_suite,
	ledger_tx_ref, simulated, seal_status, meta, parent_id, created_at, created_by, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*model.Artifact, error) {
	a := &model.Artifact{}
	var suite, meta []byte
	if err := row.Scan(
		&a.ID, &a.GroupKey, &a.ArtifactType, &a.PayloadHash, &suite,
		&a.LedgerTxRef, &a.Simulated, &a.SealStatus, &meta, &a.ParentID,
		&a.CreatedAt, &a.CreatedBy, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	if err := json.Unmarshal(suite, &a.AlgorithmSuite); err != nil {
		return nil, fmt.Errorf("unmarshal algorithm suite: %w", err)
	}
	if err := json.Unmarshal(meta, &a.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return a, nil
}

// GetByID retrieves an artifact by its UUID.
func (r *ArtifactRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Artifact, error) {
	row := r.db.QueryRow(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1`, id)
	return scanArtifact(row)
}

// GetByAnyDigest retrieves an artifact whose primary payload hash or any
// suite digest equals hex. The suite match uses jsonb array containment.
func (r *ArtifactRepository) GetByAnyDigest(ctx context.Context, hex string) (*model.Artifact, error) {
	needle, err := json.Marshal([]map[string]string{{"hex": hex}})
	if err != nil {
		return nil, fmt.Errorf("marshal digest needle: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE payload_hash = $1 OR algorithm_suite @> $2::jsonb
		LIMIT 1`, hex, needle)
	return scanArtifact(row)
}

// ListByGroupKey returns artifacts correlated by group key, newest first.
func (r *ArtifactRepository) ListByGroupKey(ctx context.Context, groupKey string, limit, offset int) ([]*model.Artifact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+artifactColumns+` FROM artifacts
		WHERE group_key = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, groupKey, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// GetFiles returns the file blobs of an artifact ordered by path.
func (r *ArtifactRepository) GetFiles(ctx context.Context, artifactID uuid.UUID) ([]model.ArtifactFile, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, artifact_id, path, size_bytes, digest, data, created_at
		FROM artifact_files WHERE artifact_id = $1 ORDER BY path ASC`, artifactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.ArtifactFile
	for rows.Next() {
		var f model.ArtifactFile
		if err := rows.Scan(&f.ID, &f.ArtifactID, &f.Path, &f.SizeBytes, &f.Digest, &f.Data, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SetSealResult records the outcome of a seal attempt under a row lock.
// The payload hash is never touched; only status, tx ref, and the simulated
// flag change.
func (r *ArtifactRepository) SetSealResult(ctx context.Context, id uuid.UUID, status model.SealStatus, txRef string, simulated bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM artifacts WHERE id = $1 FOR UPDATE NOWAIT`, id).Scan(&existing)
	if err != nil {
		return translateLockErr(err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE artifacts
		SET seal_status = $2, ledger_tx_ref = $3, simulated = $4, updated_at = $5
		WHERE id = $1`,
		id, status, txRef, simulated, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("update seal result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seal result: %w", err)
	}
	return nil
}

// Archive atomically moves an artifact into the deleted_documents table.
// Copy and delete happen in one transaction: a crash can never leave the
// document in both tables or in neither. Returns ErrAlreadyDeleted when a
// deleted document already exists for the id, ErrNotFound when the id never
// existed.
func (r *ArtifactRepository) Archive(ctx context.Context, id uuid.UUID, deletedBy, reason string) (*model.DeletedDocument, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1 FOR UPDATE NOWAIT`, id)
	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Distinguish "never existed" from "already archived".
			var deletedID uuid.UUID
			derr := tx.QueryRow(ctx,
				`SELECT id FROM deleted_documents WHERE original_artifact_id = $1`, id,
			).Scan(&deletedID)
			if derr == nil {
				return nil, ErrAlreadyDeleted
			}
			return nil, ErrNotFound
		}
		return nil, translateLockErr(err)
	}

	suite, err := json.Marshal(artifact.AlgorithmSuite)
	if err != nil {
		return nil, fmt.Errorf("marshal algorithm suite: %w", err)
	}

	doc := &model.DeletedDocument{
		ID:                 uuid.New(),
		OriginalArtifactID: artifact.ID,
		GroupKey:           artifact.GroupKey,
		ArtifactType:       artifact.ArtifactType,
		PayloadHash:        artifact.PayloadHash,
		AlgorithmSuite:     artifact.AlgorithmSuite,
		LedgerTxRef:        artifact.LedgerTxRef,
		Simulated:          artifact.Simulated,
		OriginalCreatedAt:  artifact.CreatedAt,
		OriginalCreatedBy:  artifact.CreatedBy,
		DeletedAt:          time.Now().UTC(),
		DeletedBy:          deletedBy,
		DeletionReason:     reason,
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO deleted_documents (
			id, original_artifact_id, group_key, artifact_type, payload_hash,
			algorithm_suite, ledger_tx_ref, simulated, original_created_at,
			original_created_by, deleted_at, deleted_by, deletion_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		doc.ID, doc.OriginalArtifactID, doc.GroupKey, doc.ArtifactType, doc.PayloadHash,
		suite, doc.LedgerTxRef, doc.Simulated, doc.OriginalCreatedAt,
		doc.OriginalCreatedBy, doc.DeletedAt, doc.DeletedBy, doc.DeletionReason,
	); err != nil {
		return nil, fmt.Errorf("insert deleted document: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM artifact_files WHERE artifact_id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete artifact files: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete artifact: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit archive tx: %w", err)
	}
	return doc, nil
}

const deletedColumns = `id, original_artifact_id, group_key, artifact_type, payload_hash,
	algorithm_suite, ledger_tx_ref, simulated, original_created_at,
	original_created_by, deleted_at, deleted_by, deletion_reason`

func scanDeleted(row rowScanner) (*model.DeletedDocument, error) {
	d := &model.DeletedDocument{}
	var suite []byte
	if err := row.Scan(
		&d.ID, &d.OriginalArtifactID, &d.GroupKey, &d.ArtifactType, &d.PayloadHash,
		&suite, &d.LedgerTxRef, &d.Simulated, &d.OriginalCreatedAt,
		&d.OriginalCreatedBy, &d.DeletedAt, &d.DeletedBy, &d.DeletionReason,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan deleted document: %w", err)
	}
	if err := json.Unmarshal(suite, &d.AlgorithmSuite); err != nil {
		return nil, fmt.Errorf("unmarshal algorithm suite: %w", err)
	}
	return d, nil
}

// GetDeletedByOriginalID retrieves the archival record for an artifact id.
func (r *ArtifactRepository) GetDeletedByOriginalID(ctx context.Context, id uuid.UUID) (*model.DeletedDocument, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+deletedColumns+` FROM deleted_documents WHERE original_artifact_id = $1`, id)
	return scanDeleted(row)
}

// GetDeletedByHash retrieves an archival record matching any recorded digest.
func (r *ArtifactRepository) GetDeletedByHash(ctx context.Context, hex string) (*model.DeletedDocument, error) {
	needle, err := json.Marshal([]map[string]string{{"hex": hex}})
	if err != nil {
		return nil, fmt.Errorf("marshal digest needle: %w", err)
	}
	row := r.db.QueryRow(ctx, `
		SELECT `+deletedColumns+` FROM deleted_documents
		WHERE payload_hash = $1 OR algorithm_suite @> $2::jsonb
		ORDER BY deleted_at DESC LIMIT 1`, hex, needle)
	return scanDeleted(row)
}

// ListDeletedByGroupKey returns archival records for a group key, newest first.
func (r *ArtifactRepository) ListDeletedByGroupKey(ctx context.Context, groupKey string, limit, offset int) ([]*model.DeletedDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+deletedColumns+` FROM deleted_documents
		WHERE group_key = $1
		ORDER BY deleted_at DESC
		LIMIT $2 OFFSET $3`, groupKey, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*model.DeletedDocument
	for rows.Next() {
		d, err := scanDeleted(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// translateLockErr maps FOR UPDATE NOWAIT contention to ErrConflict and
// missing rows to ErrNotFound.
func translateLockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return ErrConflict
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
