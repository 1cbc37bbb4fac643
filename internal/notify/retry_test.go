package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRetryDelays_schedule(t *testing.T) {
	want := []time.Duration{1 * time.Second, 5 * time.Second, 25 * time.Second}
	if len(retryDelays) != len(want) {
		t.Fatalf("len(retryDelays) = %d, want %d", len(retryDelays), len(want))
	}
	for i, d := range want {
		if retryDelays[i] != d {
			t.Errorf("retryDelays[%d] = %v, want %v", i, retryDelays[i], d)
		}
	}
}

// A failing endpoint must see one attempt per delay slot plus the initial
// attempt, with no slot skipped.
func TestDeliver_exhaustsEveryRetry(t *testing.T) {
	orig := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	defer func() { retryDelays = orig }()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	svc := NewService(store, zap.NewNop())

	sub := &Subscription{Owner: "alice", URL: srv.URL, Events: []string{EventArtifactSealed}, Secret: "s3cret"}
	if err := store.Create(context.Background(), sub); err != nil {
		t.Fatal(err)
	}

	svc.deliver(context.Background(), sub, Event{Type: EventArtifactSealed, Timestamp: time.Now().UTC()})

	wantAttempts := len(retryDelays) + 1
	if got := int(hits.Load()); got != wantAttempts {
		t.Errorf("endpoint received %d requests, want %d", got, wantAttempts)
	}

	ds := store.Deliveries()
	if len(ds) != wantAttempts {
		t.Fatalf("recorded %d deliveries, want %d", len(ds), wantAttempts)
	}
	for i, d := range ds {
		if d.Attempt != i+1 {
			t.Errorf("delivery %d has attempt %d, want %d", i, d.Attempt, i+1)
		}
		if d.Success {
			t.Errorf("delivery %d marked success against failing endpoint", i)
		}
	}
}
