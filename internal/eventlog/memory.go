package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryLog is an in-memory, thread-safe Log implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require durable persistence across restarts.
type MemoryLog struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryLog creates a MemoryLog initialised with the canonical genesis
// event. The genesis event is at index 0 and its hash is GenesisHash.
func NewMemoryLog() *MemoryLog {
	l := &MemoryLog{}
	genesis := &Event{
		Index:      0,
		Timestamp:  eventNow(),
		EventType:  EventGenesis,
		Actor:      SystemActor,
		DetailHash: GenesisHash,
		PrevHash:   GenesisHash,
		Hash:       GenesisHash, // genesis hash is the well-known constant, not computed
	}
	l.events = append(l.events, genesis)
	return l
}

// Append implements Log.
func (l *MemoryLog) Append(_ context.Context, artifactID string, eventType EventType, actor string, detail any) (*Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}

	prev := l.events[len(l.events)-1]
	event := &Event{
		Index:      len(l.events),
		Timestamp:  eventNow(),
		ArtifactID: artifactID,
		EventType:  eventType,
		Actor:      actor,
		DetailHash: sha256Sum(detailJSON),
		PrevHash:   prev.Hash,
	}
	event.Hash = hashEvent(event)
	l.events = append(l.events, event)
	return event, nil
}

// Get implements Log.
func (l *MemoryLog) Get(_ context.Context, index int) (*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.events) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return l.events[index], nil
}

// ListByArtifact implements Log.
func (l *MemoryLog) ListByArtifact(_ context.Context, artifactID string) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*Event
	for _, e := range l.events {
		if e.ArtifactID == artifactID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len implements Log.
func (l *MemoryLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events), nil
}

// Verify implements Log. It walks the chain and checks that all hashes are
// consistent. The genesis event (index 0) is validated against GenesisHash.
func (l *MemoryLog) Verify(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, curr := range l.events {
		if i == 0 {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis event has wrong hash: got %q", curr.Hash)
			}
			continue
		}

		prev := l.events[i-1]
		if curr.PrevHash != prev.Hash {
			return fmt.Errorf("hash chain broken at index %d", curr.Index)
		}
		if curr.Hash != hashEvent(curr) {
			return fmt.Errorf("event %d has invalid hash", curr.Index)
		}
	}
	return nil
}

// Root implements Log.
func (l *MemoryLog) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.events) == 0 {
		return "", nil
	}
	return l.events[len(l.events)-1].Hash, nil
}
