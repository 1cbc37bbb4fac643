package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory subscription store for testing and
// single-process deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	deliveries []*Delivery
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

// Create inserts a new subscription.
func (s *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

// GetByID retrieves a subscription by ID.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

// ListByOwner returns all subscriptions created by an actor.
func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Subscription
	for _, sub := range s.subs {
		if sub.Owner == owner {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByEvent returns all active subscriptions listening for eventType.
func (s *MemoryStore) ListByEvent(_ context.Context, eventType string) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Subscription
	for _, sub := range s.subs {
		if !sub.Active {
			continue
		}
		for _, e := range sub.Events {
			if e == eventType {
				cp := *sub
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

// Delete removes a subscription.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

// RecordDelivery records a delivery attempt.
func (s *MemoryStore) RecordDelivery(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = uuid.New()
	d.DeliveredAt = time.Now().UTC()
	cp := *d
	s.deliveries = append(s.deliveries, &cp)
	return nil
}

// Deliveries returns a snapshot of recorded delivery attempts.
func (s *MemoryStore) Deliveries() []*Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}
