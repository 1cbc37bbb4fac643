package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a subscription is not found.
var ErrNotFound = errors.New("notification subscription not found")

// Store is the persistence interface for subscriptions and deliveries.
// Both *Repository and *MemoryStore satisfy it.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ListByOwner(ctx context.Context, owner string) ([]*Subscription, error)
	ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, d *Delivery) error
}

// Repository provides Postgres persistence for subscriptions and deliveries.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new subscription.
func (r *Repository) Create(ctx context.Context, sub *Subscription) error {
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true

	query := `INSERT INTO notify_subscriptions (id, owner, url, events, secret, active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.Owner, sub.URL, sub.Events, sub.Secret, sub.Active, sub.CreatedAt,
	)
	return err
}

// GetByID retrieves a subscription by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	query := `SELECT id, owner, url, events, secret, active, created_at
	          FROM notify_subscriptions WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)

	var sub Subscription
	if err := row.Scan(&sub.ID, &sub.Owner, &sub.URL, &sub.Events, &sub.Secret, &sub.Active, &sub.CreatedAt); err != nil {
		return nil, ErrNotFound
	}
	return &sub, nil
}

// ListByOwner returns all subscriptions created by an actor.
func (r *Repository) ListByOwner(ctx context.Context, owner string) ([]*Subscription, error) {
	query := `SELECT id, owner, url, events, secret, active, created_at
	          FROM notify_subscriptions WHERE owner = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Owner, &sub.URL, &sub.Events, &sub.Secret, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// ListByEvent returns all active subscriptions listening for a given event type.
func (r *Repository) ListByEvent(ctx context.Context, eventType string) ([]*Subscription, error) {
	query := `SELECT id, owner, url, events, secret, active, created_at
	          FROM notify_subscriptions
	          WHERE active = true AND $1 = ANY(events)
	          ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Owner, &sub.URL, &sub.Events, &sub.Secret, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}
	return subs, rows.Err()
}

// Delete removes a subscription.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notify_subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery records a delivery attempt.
func (r *Repository) RecordDelivery(ctx context.Context, d *Delivery) error {
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()

	query := `INSERT INTO notify_deliveries (id, subscription_id, event_type, status_code, attempt, success, error_message, delivered_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		d.ID, d.SubscriptionID, d.EventType,
		d.StatusCode, d.Attempt, d.Success, d.ErrorMessage, d.DeliveredAt,
	)
	return err
}
