package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent Append calls. The value is arbitrary but must be consistent
// across all engine instances sharing a database.
const advisoryLockKey = int64(7_420_118_209)

// PostgresLog persists the hash-chained event log to a PostgreSQL database.
// It implements the Log interface.
type PostgresLog struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLog creates a PostgresLog backed by the given connection pool.
func NewPostgresLog(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLog {
	return &PostgresLog{pool: pool, logger: logger}
}

// Append implements Log.
// It acquires a PostgreSQL advisory lock, reads the chain tail, computes the
// new event hash, and inserts it — all within a single transaction.
func (l *PostgresLog) Append(ctx context.Context, artifactID string, eventType EventType, actor string, detail any) (*Event, error) {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}
	detailHash := sha256Sum(detailJSON)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialise concurrent appends with a transaction-scoped advisory lock.
	// The lock releases automatically when the transaction commits or rolls back.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx int
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM artifact_events ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read event log tail: %w", err)
	}

	event := &Event{
		Index:      prevIdx + 1,
		Timestamp:  eventNow(),
		ArtifactID: artifactID,
		EventType:  eventType,
		Actor:      actor,
		DetailHash: detailHash,
		PrevHash:   prevHash,
	}
	event.Hash = hashEvent(event)

	if _, err := tx.Exec(ctx,
		`INSERT INTO artifact_events (idx, timestamp, artifact_id, event_type, actor, detail_hash, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Index, event.Timestamp, event.ArtifactID,
		event.EventType, event.Actor, event.DetailHash,
		event.PrevHash, event.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit event tx: %w", err)
	}

	l.logger.Debug("artifact event appended",
		zap.Int("idx", event.Index),
		zap.String("event_type", string(event.EventType)),
		zap.String("artifact_id", event.ArtifactID),
	)
	return event, nil
}

// Get implements Log.
func (l *PostgresLog) Get(ctx context.Context, index int) (*Event, error) {
	event := &Event{}
	if err := l.pool.QueryRow(ctx,
		`SELECT idx, timestamp, artifact_id, event_type, actor, detail_hash, prev_hash, hash
		 FROM artifact_events WHERE idx = $1`, index,
	).Scan(
		&event.Index, &event.Timestamp, &event.ArtifactID,
		&event.EventType, &event.Actor, &event.DetailHash,
		&event.PrevHash, &event.Hash,
	); err != nil {
		return nil, fmt.Errorf("get event %d: %w", index, err)
	}
	return event, nil
}

// ListByArtifact implements Log.
func (l *PostgresLog) ListByArtifact(ctx context.Context, artifactID string) ([]*Event, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT idx, timestamp, artifact_id, event_type, actor, detail_hash, prev_hash, hash
		 FROM artifact_events WHERE artifact_id = $1 ORDER BY idx ASC`, artifactID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", artifactID, err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(
			&e.Index, &e.Timestamp, &e.ArtifactID,
			&e.EventType, &e.Actor, &e.DetailHash,
			&e.PrevHash, &e.Hash,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Len implements Log.
func (l *PostgresLog) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM artifact_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Verify implements Log. It streams all rows ordered by idx and validates
// the hash chain. O(n) in log length; may be slow for very large logs.
func (l *PostgresLog) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx,
		`SELECT idx, timestamp, artifact_id, event_type, actor, detail_hash, prev_hash, hash
		 FROM artifact_events ORDER BY idx ASC`,
	)
	if err != nil {
		return fmt.Errorf("query event log: %w", err)
	}
	defer rows.Close()

	var prev *Event
	for rows.Next() {
		curr := &Event{}
		if err := rows.Scan(
			&curr.Index, &curr.Timestamp, &curr.ArtifactID,
			&curr.EventType, &curr.Actor, &curr.DetailHash,
			&curr.PrevHash, &curr.Hash,
		); err != nil {
			return fmt.Errorf("scan event row: %w", err)
		}

		if prev == nil {
			// Validate genesis: hash must be the well-known constant.
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis event has wrong hash: got %q", curr.Hash)
			}
			prev = curr
			continue
		}

		if curr.PrevHash != prev.Hash {
			return fmt.Errorf("hash chain broken at index %d", curr.Index)
		}
		if curr.Hash != hashEvent(curr) {
			return fmt.Errorf("event %d has invalid hash", curr.Index)
		}
		prev = curr
	}
	return rows.Err()
}

// Root implements Log.
func (l *PostgresLog) Root(ctx context.Context) (string, error) {
	var hash string
	if err := l.pool.QueryRow(ctx,
		"SELECT hash FROM artifact_events ORDER BY idx DESC LIMIT 1",
	).Scan(&hash); err != nil {
		return "", fmt.Errorf("get event log root: %w", err)
	}
	return hash, nil
}
