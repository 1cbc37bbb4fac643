package client_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/attestia/docseal/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func stubSealServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/artifacts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				GroupKey string `json:"group_key"`
				Suite    string `json:"suite"`
				Files    []struct {
					Path          string `json:"path"`
					ContentBase64 string `json:"content_base64"`
				} `json:"files"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupKey == "" || len(req.Files) == 0 {
				http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
				return
			}
			for _, f := range req.Files {
				if _, err := base64.StdEncoding.DecodeString(f.ContentBase64); err != nil {
					http.Error(w, `{"error":"invalid base64"}`, http.StatusBadRequest)
					return
				}
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"artifact": map[string]any{
					"id":           "550e8400-e29b-41d4-a716-446655440000",
					"group_key":    req.GroupKey,
					"payload_hash": "ab12cd34",
					"seal_status":  "sealed",
					"simulated":    true,
					"algorithm_suite": []map[string]string{
						{"algorithm": "sha256", "hex": "ab12cd34"},
					},
				},
				"simulated": true,
			})
		case http.MethodGet:
			if r.URL.Query().Get("group_key") == "" {
				http.Error(w, `{"error":"group_key required"}`, http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"artifacts": []map[string]any{
					{"id": "550e8400-e29b-41d4-a716-446655440000", "group_key": "acct-1", "seal_status": "sealed"},
				},
				"count": 1,
			})
		}
	})

	mux.HandleFunc("/api/v1/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.HasSuffix(path, "/events") {
			json.NewEncoder(w).Encode(map[string]any{
				"events": []map[string]any{
					{"index": 1, "event_type": "artifact.created", "actor": "alice"},
					{"index": 2, "event_type": "artifact.sealed", "actor": "docseal-system"},
				},
				"count": 2,
			})
			return
		}

		if r.Method == http.MethodDelete {
			if r.Header.Get("Authorization") == "" && r.Header.Get("X-Actor") == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			var req struct {
				Reason string `json:"reason"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
				http.Error(w, `{"error":"reason required"}`, http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"deleted_document": map[string]any{
					"original_artifact_id": strings.TrimPrefix(path, "/api/v1/artifacts/"),
					"payload_hash":         "ab12cd34",
					"deleted_by":           "bob",
					"deletion_reason":      req.Reason,
				},
			})
			return
		}

		// GET /api/v1/artifacts/:id
		id := strings.TrimPrefix(path, "/api/v1/artifacts/")
		if id == "missing-id" {
			http.Error(w, `{"error":"artifact not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"artifact": map[string]any{
				"id":           id,
				"group_key":    "acct-1",
				"payload_hash": "ab12cd34",
				"seal_status":  "sealed",
			},
		})
	})

	mux.HandleFunc("/api/v1/verify/", func(w http.ResponseWriter, r *http.Request) {
		hash := strings.TrimPrefix(r.URL.Path, "/api/v1/verify/")
		switch hash {
		case "deadbeef":
			json.NewEncoder(w).Encode(map[string]any{
				"outcome":    "not_found",
				"checked_at": time.Now().UTC(),
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"outcome":           "verified",
				"artifact_id":       "550e8400-e29b-41d4-a716-446655440000",
				"group_key":         "acct-1",
				"matched_algorithm": "sha256",
				"checked_at":        time.Now().UTC(),
			})
		}
	})

	mux.HandleFunc("/api/v1/directory/hash", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"file_count":     2,
			"total_bytes":    11,
			"composite_hash": "c0ffee",
			"member_hashes": []map[string]string{
				{"path": "a.csv", "hex": "aa"},
				{"path": "b.csv", "hex": "bb"},
			},
		})
	})

	mux.HandleFunc("/api/v1/directory/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"matches":          false,
			"composite_hash":   "0ddba11",
			"mismatched_paths": []string{"b.csv"},
		})
	})

	mux.HandleFunc("/api/v1/ledger/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"configured": false,
			"note":       "no remote ledger configured; seals use the simulated fallback",
		})
	})

	mux.HandleFunc("/api/v1/audit", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entries": 7, "root": "abc123"})
	})

	mux.HandleFunc("/api/v1/audit/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valid": true})
	})

	return httptest.NewServer(mux)
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestSeal(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL, client.WithActor("alice"))
	result, err := c.Seal(context.Background(), client.SealRequest{
		GroupKey: "acct-1",
		Files:    []client.FileUpload{{Path: "statement.pdf", Data: []byte("hello")}},
	})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if result.Artifact.SealStatus != "sealed" {
		t.Errorf("seal_status = %q, want sealed", result.Artifact.SealStatus)
	}
	if !result.Simulated {
		t.Error("expected simulated seal from stub")
	}
}

func TestSeal_missingGroupKey(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.Seal(context.Background(), client.SealRequest{
		Files: []client.FileUpload{{Path: "a", Data: []byte("x")}},
	})
	if err == nil {
		t.Fatal("expected error for missing group key")
	}
}

func TestGetArtifact(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	artifact, err := c.GetArtifact(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if artifact.PayloadHash != "ab12cd34" {
		t.Errorf("payload_hash = %q", artifact.PayloadHash)
	}
}

func TestGetArtifact_notFound(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.GetArtifact(context.Background(), "missing-id")
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListArtifacts(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	artifacts, err := c.ListArtifacts(context.Background(), "acct-1", 10, 0)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(artifacts))
	}
}

func TestDeleteArtifact(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL, client.WithActor("bob"))
	doc, err := c.DeleteArtifact(context.Background(), "550e8400-e29b-41d4-a716-446655440000", "duplicate upload")
	if err != nil {
		t.Fatalf("DeleteArtifact: %v", err)
	}
	if doc.DeletionReason != "duplicate upload" {
		t.Errorf("deletion_reason = %q", doc.DeletionReason)
	}
}

func TestDeleteArtifact_requiresIdentity(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	if _, err := c.DeleteArtifact(context.Background(), "some-id", "reason"); err == nil {
		t.Fatal("expected unauthorized error without actor or token")
	}
}

func TestVerifyHash(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	v, err := c.VerifyHash(context.Background(), "ab12cd34")
	if err != nil {
		t.Fatalf("VerifyHash: %v", err)
	}
	if v.Outcome != "verified" {
		t.Errorf("outcome = %q, want verified", v.Outcome)
	}
	if v.MatchedAlgorithm != "sha256" {
		t.Errorf("matched_algorithm = %q", v.MatchedAlgorithm)
	}
}

func TestVerifyHash_unknownIsOutcomeNotError(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	v, err := c.VerifyHash(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("VerifyHash: %v", err)
	}
	if v.Outcome != "not_found" {
		t.Errorf("outcome = %q, want not_found", v.Outcome)
	}
}

func TestDirectoryCalls(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	files := []client.FileUpload{
		{Path: "a.csv", Data: []byte("aaa")},
		{Path: "b.csv", Data: []byte("bbbbbbbb")},
	}

	digest, err := c.HashDirectory(context.Background(), files)
	if err != nil {
		t.Fatalf("HashDirectory: %v", err)
	}
	if digest.FileCount != 2 {
		t.Errorf("file_count = %d", digest.FileCount)
	}

	check, err := c.VerifyDirectory(context.Background(), *digest, files)
	if err != nil {
		t.Fatalf("VerifyDirectory: %v", err)
	}
	if check.Matches {
		t.Error("stub reports a mismatch, Matches should be false")
	}
	if len(check.MismatchedPaths) != 1 || check.MismatchedPaths[0] != "b.csv" {
		t.Errorf("mismatched_paths = %v", check.MismatchedPaths)
	}
}

func TestEvents(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)
	events, err := c.Events(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].EventType != "artifact.created" {
		t.Errorf("first event = %q", events[0].EventType)
	}
}

func TestLedgerHealthAndAudit(t *testing.T) {
	srv := stubSealServer(t)
	defer srv.Close()

	c := client.New(srv.URL)

	lh, err := c.LedgerHealth(context.Background())
	if err != nil {
		t.Fatalf("LedgerHealth: %v", err)
	}
	if lh.Configured {
		t.Error("stub has no ledger configured")
	}

	entries, root, err := c.AuditOverview(context.Background())
	if err != nil {
		t.Fatalf("AuditOverview: %v", err)
	}
	if entries != 7 || root != "abc123" {
		t.Errorf("overview = (%d, %q)", entries, root)
	}

	valid, _, err := c.AuditVerify(context.Background())
	if err != nil {
		t.Fatalf("AuditVerify: %v", err)
	}
	if !valid {
		t.Error("stub audit chain should verify")
	}
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"outcome": "not_found"})
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithBearerToken("tok-123"))
	if _, err := c.VerifyHash(context.Background(), "abcd"); err != nil {
		t.Fatalf("VerifyHash: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
