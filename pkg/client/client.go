// Package client provides the docseal Go SDK for sealing documents,
// verifying hashes, and querying the audit trail of a docseal server.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNotFound is returned when the server has no record matching the request.
var ErrNotFound = errors.New("not found")

// Digest is one algorithm/hex pair of an artifact's suite.
type Digest struct {
	Algorithm string `json:"algorithm"`
	Hex       string `json:"hex"`
}

// DocumentMeta is the typed metadata attached to an artifact at seal time.
type DocumentMeta struct {
	SchemaVersion int               `json:"schema_version,omitempty"`
	Title         string            `json:"title,omitempty"`
	ContentType   string            `json:"content_type,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Artifact is a sealed document or document package as returned by the server.
type Artifact struct {
	ID             string       `json:"id"`
	GroupKey       string       `json:"group_key"`
	ArtifactType   string       `json:"artifact_type"`
	PayloadHash    string       `json:"payload_hash"`
	AlgorithmSuite []Digest     `json:"algorithm_suite"`
	LedgerTxRef    string       `json:"ledger_tx_ref,omitempty"`
	Simulated      bool         `json:"simulated"`
	SealStatus     string       `json:"seal_status"`
	Meta           DocumentMeta `json:"meta"`
	CreatedAt      time.Time    `json:"created_at"`
	CreatedBy      string       `json:"created_by"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// SealResult is the response of Seal and Reseal.
type SealResult struct {
	Artifact  *Artifact `json:"artifact"`
	Simulated bool      `json:"simulated"`
}

// VerificationResult classifies a hash lookup. Outcome is one of "verified",
// "tampered", "deleted", or "not_found".
type VerificationResult struct {
	Outcome          string    `json:"outcome"`
	ArtifactID       string    `json:"artifact_id,omitempty"`
	GroupKey         string    `json:"group_key,omitempty"`
	MatchedAlgorithm string    `json:"matched_algorithm,omitempty"`
	Simulated        bool      `json:"simulated,omitempty"`
	LedgerTxRef      string    `json:"ledger_tx_ref,omitempty"`
	Message          string    `json:"message,omitempty"`
	CheckedAt        time.Time `json:"checked_at"`
}

// DeletedDocument is the archival record of a soft-deleted artifact.
type DeletedDocument struct {
	ID                 string    `json:"id"`
	OriginalArtifactID string    `json:"original_artifact_id"`
	GroupKey           string    `json:"group_key"`
	ArtifactType       string    `json:"artifact_type"`
	PayloadHash        string    `json:"payload_hash"`
	AlgorithmSuite     []Digest  `json:"algorithm_suite"`
	LedgerTxRef        string    `json:"ledger_tx_ref"`
	Simulated          bool      `json:"simulated"`
	OriginalCreatedAt  time.Time `json:"original_created_at"`
	OriginalCreatedBy  string    `json:"original_created_by"`
	DeletedAt          time.Time `json:"deleted_at"`
	DeletedBy          string    `json:"deleted_by"`
	DeletionReason     string    `json:"deletion_reason"`
}

// Member is one path/digest entry of a directory digest.
type Member struct {
	Path string `json:"path"`
	Hex  string `json:"hex"`
}

// DirectoryDigest is the composite fingerprint of a file set.
type DirectoryDigest struct {
	FileCount     int      `json:"file_count"`
	TotalBytes    int64    `json:"total_bytes"`
	CompositeHash string   `json:"composite_hash"`
	MemberHashes  []Member `json:"member_hashes"`
}

// DirectoryVerification is the per-member diff of a directory check.
type DirectoryVerification struct {
	Matches         bool     `json:"matches"`
	CompositeHash   string   `json:"composite_hash"`
	MismatchedPaths []string `json:"mismatched_paths,omitempty"`
}

// AuditEvent is one entry of the server's hash-chained audit log.
type AuditEvent struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	ArtifactID string    `json:"artifact_id"`
	EventType  string    `json:"event_type"`
	Actor      string    `json:"actor"`
	DetailHash string    `json:"detail_hash"`
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

// LedgerHealth is the server's last known view of the remote seal ledger.
type LedgerHealth struct {
	Configured bool   `json:"configured"`
	Note       string `json:"note,omitempty"`
	Status     *struct {
		Up        bool      `json:"up"`
		Degraded  bool      `json:"degraded"`
		LatencyMs int64     `json:"latency_ms"`
		FailCount int       `json:"fail_count"`
		CheckedAt time.Time `json:"checked_at"`
	} `json:"status,omitempty"`
}

// FileUpload is one file to seal or hash. Data is the raw content; the SDK
// handles the base64 transport encoding.
type FileUpload struct {
	Path string
	Data []byte
}

// SealRequest is the input to Seal. Suite defaults to "classic" server-side;
// pass "quantum-safe" for the SHA3-256 + BLAKE2b-256 suite.
type SealRequest struct {
	GroupKey string
	Suite    string
	Meta     DocumentMeta
	Files    []FileUpload
}

// Client is the docseal SDK entry point.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	bearerToken string
	actor       string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBearerToken attaches a pre-obtained JWT to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.bearerToken = token }
}

// WithActor sets the X-Actor header used by servers running with auth
// disabled. Ignored by the server when JWT auth is enabled.
func WithActor(actor string) Option {
	return func(c *Client) { c.actor = actor }
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this in development.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			Timeout: 30 * time.Second,
		}
	}
}

// New creates a new docseal SDK Client connected to baseURL.
//
//	c := client.New("http://localhost:8080",
//	    client.WithBearerToken(token),
//	)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func encodeFiles(in []FileUpload) []map[string]string {
	out := make([]map[string]string, len(in))
	for i, f := range in {
		out[i] = map[string]string{
			"path":           f.Path,
			"content_base64": base64.StdEncoding.EncodeToString(f.Data),
		}
	}
	return out
}

// Seal uploads the request's files and seals them as one artifact.
// A single file seals as a document; multiple files seal as a package whose
// payload hash is upload-order independent.
func (c *Client) Seal(ctx context.Context, req SealRequest) (*SealResult, error) {
	payload := map[string]any{
		"group_key": req.GroupKey,
		"meta":      req.Meta,
		"files":     encodeFiles(req.Files),
	}
	if req.Suite != "" {
		payload["suite"] = req.Suite
	}

	var result SealResult
	if err := c.post(ctx, "/api/v1/artifacts", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reseal retries the ledger seal of a pending or failed artifact. The payload
// hash never changes across reseal attempts; already-sealed artifacts return
// unchanged.
func (c *Client) Reseal(ctx context.Context, artifactID string) (*SealResult, error) {
	var result SealResult
	if err := c.post(ctx, "/api/v1/artifacts/"+url.PathEscape(artifactID)+"/reseal", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetArtifact fetches a single artifact by ID.
func (c *Client) GetArtifact(ctx context.Context, artifactID string) (*Artifact, error) {
	var wrapper struct {
		Artifact *Artifact `json:"artifact"`
	}
	if err := c.get(ctx, "/api/v1/artifacts/"+url.PathEscape(artifactID), &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Artifact, nil
}

// ListArtifacts returns the artifacts of a group key, newest first.
func (c *Client) ListArtifacts(ctx context.Context, groupKey string, limit, offset int) ([]Artifact, error) {
	q := url.Values{}
	q.Set("group_key", groupKey)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var wrapper struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := c.get(ctx, "/api/v1/artifacts?"+q.Encode(), &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Artifacts, nil
}

// DeleteArtifact soft-deletes an artifact. The reason is mandatory and is
// preserved verbatim in the returned archival record.
func (c *Client) DeleteArtifact(ctx context.Context, artifactID, reason string) (*DeletedDocument, error) {
	body, _ := json.Marshal(map[string]string{"reason": reason})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/v1/artifacts/"+url.PathEscape(artifactID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		DeletedDocument *DeletedDocument `json:"deleted_document"`
	}
	if err := json.Unmarshal(respBody, &wrapper); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return wrapper.DeletedDocument, nil
}

// Events returns the audit trail of one artifact, deleted artifacts included.
func (c *Client) Events(ctx context.Context, artifactID string) ([]AuditEvent, error) {
	var wrapper struct {
		Events []AuditEvent `json:"events"`
	}
	if err := c.get(ctx, "/api/v1/artifacts/"+url.PathEscape(artifactID)+"/events", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Events, nil
}

// VerifyHash classifies a hex digest against the server's records. Tampering
// and deletion are outcomes in the result, never errors.
func (c *Client) VerifyHash(ctx context.Context, hexDigest string) (*VerificationResult, error) {
	var result VerificationResult
	if err := c.get(ctx, "/api/v1/verify/"+url.PathEscape(hexDigest), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDeleted fetches the archival record of a soft-deleted document by any of
// its recorded digests.
func (c *Client) GetDeleted(ctx context.Context, hexDigest string) (*DeletedDocument, error) {
	var wrapper struct {
		DeletedDocument *DeletedDocument `json:"deleted_document"`
	}
	if err := c.get(ctx, "/api/v1/deleted/"+url.PathEscape(hexDigest), &wrapper); err != nil {
		return nil, err
	}
	return wrapper.DeletedDocument, nil
}

// HashDirectory computes the composite digest of a file set server-side.
func (c *Client) HashDirectory(ctx context.Context, files []FileUpload) (*DirectoryDigest, error) {
	payload := map[string]any{"files": encodeFiles(files)}
	var result DirectoryDigest
	if err := c.post(ctx, "/api/v1/directory/hash", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyDirectory diffs the current files against an expected digest and
// reports the changed, missing, and unexpected paths.
func (c *Client) VerifyDirectory(ctx context.Context, expected DirectoryDigest, files []FileUpload) (*DirectoryVerification, error) {
	payload := map[string]any{
		"expected": expected,
		"files":    encodeFiles(files),
	}
	var result DirectoryVerification
	if err := c.post(ctx, "/api/v1/directory/verify", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LedgerHealth returns the server's last probe of the remote seal ledger.
func (c *Client) LedgerHealth(ctx context.Context) (*LedgerHealth, error) {
	var result LedgerHealth
	if err := c.get(ctx, "/api/v1/ledger/health", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AuditOverview returns the audit chain length and current root hash.
func (c *Client) AuditOverview(ctx context.Context) (entries int, root string, err error) {
	var wrapper struct {
		Entries int    `json:"entries"`
		Root    string `json:"root"`
	}
	if err := c.get(ctx, "/api/v1/audit", &wrapper); err != nil {
		return 0, "", err
	}
	return wrapper.Entries, wrapper.Root, nil
}

// AuditVerify walks the server's full audit chain and reports integrity.
func (c *Client) AuditVerify(ctx context.Context) (valid bool, detail string, err error) {
	var wrapper struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	if err := c.get(ctx, "/api/v1/audit/verify", &wrapper); err != nil {
		return false, "", err
	}
	return wrapper.Valid, wrapper.Error, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do executes an HTTP request, attaching the Bearer token or X-Actor header.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	} else if c.actor != "" {
		req.Header.Set("X-Actor", c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// Responses carry artifact metadata and digest lists, never file bodies.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("unauthorized: %s", string(body))
	}
	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("conflict: %s", string(body))
	}
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
