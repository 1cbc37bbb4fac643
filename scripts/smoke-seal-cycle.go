//go:build ignore

// smoke-seal-cycle.go runs a full seal → verify → delete → verify cycle
// against a running docseal server and prints each step's outcome.
//
// Run with: go run scripts/smoke-seal-cycle.go [server-url]
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var server = "http://localhost:8080"

func main() {
	if len(os.Args) > 1 {
		server = os.Args[1]
	}
	fmt.Printf("docseal smoke cycle against %s\n\n", server)

	content := []byte(fmt.Sprintf("smoke test document sealed at %s", time.Now().UTC().Format(time.RFC3339Nano)))

	// 1. Seal.
	var sealResp struct {
		Artifact struct {
			ID          string `json:"id"`
			PayloadHash string `json:"payload_hash"`
			SealStatus  string `json:"seal_status"`
		} `json:"artifact"`
		Simulated bool `json:"simulated"`
	}
	status := call(http.MethodPost, "/api/v1/artifacts", map[string]any{
		"group_key": "smoke-test",
		"files": []map[string]string{
			{"path": "smoke.txt", "content_base64": base64.StdEncoding.EncodeToString(content)},
		},
	}, &sealResp)
	step("seal", status == http.StatusCreated,
		fmt.Sprintf("status=%s simulated=%t hash=%s", sealResp.Artifact.SealStatus, sealResp.Simulated, short(sealResp.Artifact.PayloadHash)))

	hash := sealResp.Artifact.PayloadHash
	id := sealResp.Artifact.ID

	// 2. Verify: must come back "verified".
	var verify struct {
		Outcome          string `json:"outcome"`
		MatchedAlgorithm string `json:"matched_algorithm"`
	}
	status = call(http.MethodGet, "/api/v1/verify/"+hash, nil, &verify)
	step("verify sealed", status == http.StatusOK && verify.Outcome == "verified",
		fmt.Sprintf("outcome=%s algorithm=%s", verify.Outcome, verify.MatchedAlgorithm))

	// 3. Delete with a reason.
	var del struct {
		DeletedDocument struct {
			DeletedBy      string `json:"deleted_by"`
			DeletionReason string `json:"deletion_reason"`
		} `json:"deleted_document"`
	}
	status = call(http.MethodDelete, "/api/v1/artifacts/"+id, map[string]string{
		"reason": "smoke test cleanup",
	}, &del)
	step("delete", status == http.StatusOK,
		fmt.Sprintf("by=%s reason=%q", del.DeletedDocument.DeletedBy, del.DeletedDocument.DeletionReason))

	// 4. Verify again: outcome flips to "deleted" with provenance.
	var after struct {
		Outcome string `json:"outcome"`
		Message string `json:"message"`
	}
	status = call(http.MethodGet, "/api/v1/verify/"+hash, nil, &after)
	step("verify deleted", status == http.StatusOK && after.Outcome == "deleted", after.Message)

	// 5. Audit chain must still verify.
	var audit struct {
		Valid bool `json:"valid"`
	}
	status = call(http.MethodGet, "/api/v1/audit/verify", nil, &audit)
	step("audit chain", status == http.StatusOK && audit.Valid, fmt.Sprintf("valid=%t", audit.Valid))
}

func call(method, path string, payload, out any) int {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, server+path, body)
	if err != nil {
		fail(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor", "smoke")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail(err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if out != nil {
		_ = json.Unmarshal(data, out)
	}
	return resp.StatusCode
}

func step(name string, ok bool, detail string) {
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	fmt.Printf("  %s %-15s %s\n", mark, name, detail)
	if !ok {
		os.Exit(1)
	}
}

func short(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "…"
	}
	return hash
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
	os.Exit(1)
}
