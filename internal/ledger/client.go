// Package ledger implements the HTTP client for the external integrity
// ledger. The ledger is an opaque network dependency: this client drives its
// seal/verify/health API with bounded timeouts and retry discipline, and
// reports failures through sentinel errors so the sealing orchestrator can
// apply its fallback policy.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds ledger client configuration.
type Config struct {
	BaseURL string

	// Timeout bounds each individual HTTP attempt. Zero means 5s.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first for
	// ErrUnreachable failures. Zero means 3. ErrRejected is never retried.
	MaxRetries int

	// OAuth2 client-credentials settings. Empty ClientID disables auth.
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// SealReceipt is the ledger's durable acknowledgement of a seal.
type SealReceipt struct {
	TxRef    string    `json:"tx_ref"`
	SealedAt time.Time `json:"sealed_at"`
}

// RemoteProof is the result of a read-only remote verification.
type RemoteProof struct {
	Exists bool   `json:"exists"`
	TxRef  string `json:"tx_ref,omitempty"`
}

// HealthStatus reports ledger reachability and observed latency.
type HealthStatus struct {
	Up        bool      `json:"up"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

// Client is an HTTP client for the remote integrity ledger.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	logger     *zap.Logger
}

// NewClient creates a ledger Client from cfg. When OAuth2 client credentials
// are configured, every request carries a bearer token fetched (and cached)
// by the oauth2 transport.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}

	httpClient := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = timeout
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		http:       httpClient,
		maxRetries: retries,
		logger:     logger,
	}
}

// rejectionBody is the error envelope the ledger returns on explicit refusal.
type rejectionBody struct {
	Error    string `json:"error"`
	Rejected bool   `json:"rejected"`
}

// Seal records hash with the remote ledger and returns its receipt.
//
// Unreachable failures are retried with exponential backoff and jitter up to
// MaxRetries; rejections surface immediately. Context cancellation aborts
// between attempts and propagates, so a cancelled seal never reports success.
func (c *Client) Seal(ctx context.Context, artifactID, hash string, metadata map[string]string) (*SealReceipt, error) {
	body, err := json.Marshal(map[string]any{
		"artifact_id": artifactID,
		"hash":        hash,
		"metadata":    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal seal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			c.logger.Warn("ledger seal retrying",
				zap.String("artifact_id", artifactID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		receipt, err := c.sealOnce(ctx, body)
		if err == nil {
			return receipt, nil
		}
		if ctx.Err() != nil {
			// The attempt's outcome is unknown to the caller; report the
			// cancellation rather than a synthesized ledger error.
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrUnreachable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("seal retries exhausted: %w", lastErr)
}

func (c *Client) sealOnce(ctx context.Context, body []byte) (*SealReceipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/seal", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build seal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var receipt SealReceipt
		if err := json.Unmarshal(respBody, &receipt); err != nil {
			return nil, fmt.Errorf("%w: decode receipt: %v", ErrUnreachable, err)
		}
		if receipt.TxRef == "" {
			return nil, fmt.Errorf("%w: receipt missing tx_ref", ErrUnreachable)
		}
		if receipt.SealedAt.IsZero() {
			receipt.SealedAt = time.Now().UTC()
		}
		return &receipt, nil
	}

	// A 4xx with an explicit rejection body is permanent. Everything else
	// (5xx, unparseable bodies, gateways) is treated as unreachable.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var rej rejectionBody
		if err := json.Unmarshal(respBody, &rej); err == nil && (rej.Rejected || rej.Error != "") {
			return nil, fmt.Errorf("%w: %s", ErrRejected, rej.Error)
		}
	}
	return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
}

// VerifyRemote asks the ledger whether hash has been recorded. A miss is
// reported as ErrNotFound so callers can distinguish it from an outage.
// Read-only and idempotent; not retried, since callers can re-issue the call
// themselves.
func (c *Client) VerifyRemote(ctx context.Context, hash string) (*RemoteProof, error) {
	u := c.baseURL + "/verify/" + url.PathEscape(hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}
	var proof RemoteProof
	if err := json.Unmarshal(body, &proof); err != nil {
		return nil, fmt.Errorf("%w: decode proof: %v", ErrUnreachable, err)
	}
	return &proof, nil
}

// Health probes GET /health and reports reachability plus round-trip latency.
// A transport error is reported as down, not as an error, so monitoring loops
// do not need to distinguish the two.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)

	status := &HealthStatus{
		LatencyMs: latency.Milliseconds(),
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		return status, nil
	}
	defer resp.Body.Close() //nolint:errcheck

	status.Up = resp.StatusCode >= 200 && resp.StatusCode < 300
	return status, nil
}

// backoffDelay returns the exponential delay for the given retry attempt with
// ±25% jitter to avoid thundering-herd against a recovering ledger.
func backoffDelay(attempt int) time.Duration {
	base := 500 * time.Millisecond << (attempt - 1)
	if base > 8*time.Second {
		base = 8 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base*3/4 + jitter
}
