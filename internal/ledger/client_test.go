package ledger_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attestia/docseal/internal/ledger"
	"go.uber.org/zap"
)

func newClient(t *testing.T, baseURL string, retries int) *ledger.Client {
	t.Helper()
	return ledger.NewClient(ledger.Config{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: retries,
	}, zap.NewNop())
}

func TestSeal_success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seal" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tx_ref":"tx_abc123","sealed_at":"2026-08-30T12:00:00Z"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 1)
	receipt, err := c.Seal(context.Background(), "art_1", "deadbeef", map[string]string{"type": "loan"})
	if err != nil {
		t.Fatal(err)
	}
	if receipt.TxRef != "tx_abc123" {
		t.Errorf("tx_ref: got %q", receipt.TxRef)
	}
	if receipt.SealedAt.IsZero() {
		t.Error("sealed_at should be populated")
	}
}

func TestSeal_rejectedNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"hash already sealed under different artifact","rejected":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 3)
	_, err := c.Seal(context.Background(), "art_1", "deadbeef", nil)
	if !errors.Is(err, ledger.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("rejection was retried: %d calls", n)
	}
}

func TestSeal_unreachableRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"tx_ref":"tx_retry"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 3)
	receipt, err := c.Seal(context.Background(), "art_1", "deadbeef", nil)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.TxRef != "tx_retry" {
		t.Errorf("tx_ref: got %q", receipt.TxRef)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestSeal_retriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 2)
	_, err := c.Seal(context.Background(), "art_1", "deadbeef", nil)
	if !errors.Is(err, ledger.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 { // first attempt + 2 retries
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestSeal_cancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newClient(t, srv.URL, 3)
	_, err := c.Seal(ctx, "art_1", "deadbeef", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestVerifyRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/verify/deadbeef":
			w.Write([]byte(`{"exists":true,"tx_ref":"tx_abc123"}`)) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 1)

	proof, err := c.VerifyRemote(context.Background(), "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if !proof.Exists || proof.TxRef != "tx_abc123" {
		t.Errorf("unexpected proof: %+v", proof)
	}

	if _, err := c.VerifyRemote(context.Background(), "00000000"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for unknown hash", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	c := newClient(t, srv.URL, 1)
	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.Up {
		t.Error("expected ledger up")
	}
	if status.LatencyMs < 0 {
		t.Errorf("negative latency: %d", status.LatencyMs)
	}

	srv.Close()
	status, err = c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.Up {
		t.Error("expected ledger down after server close")
	}
}
