package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// retryDelays is the wait before each retry. Total attempts per delivery is
// len(retryDelays)+1: one immediate attempt, then one retry per entry.
var retryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 25 * time.Second}

// Service manages subscriptions and fans lifecycle events out to them.
// It satisfies the vault service's Notifier interface.
type Service struct {
	store      Store
	httpClient *http.Client
	onMetrics  MetricsRecorder
	logger     *zap.Logger
}

// NewService creates a notification Service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// Subscribe creates a new subscription with a generated HMAC secret.
func (s *Service) Subscribe(ctx context.Context, owner string, req *CreateSubscriptionRequest) (*Subscription, error) {
	for _, e := range req.Events {
		if !isKnownEvent(e) {
			return nil, fmt.Errorf("unknown event type %q", e)
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	sub := &Subscription{
		Owner:  owner,
		URL:    req.URL,
		Events: req.Events,
		Secret: secret,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe deletes a subscription, checking ownership.
func (s *Service) Unsubscribe(ctx context.Context, owner string, subID uuid.UUID) error {
	sub, err := s.store.GetByID(ctx, subID)
	if err != nil {
		return err
	}
	if sub.Owner != owner {
		return fmt.Errorf("not authorized to delete this subscription")
	}
	return s.store.Delete(ctx, subID)
}

// ListByOwner returns all subscriptions created by an actor.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]*Subscription, error) {
	return s.store.ListByOwner(ctx, owner)
}

// Dispatch fans an event out to all matching subscriptions. Delivery runs
// asynchronously; a sealing or deletion call never waits on subscriber
// endpoints.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	subs, err := s.store.ListByEvent(ctx, eventType)
	if err != nil {
		s.logger.Error("notify: list subscribers", zap.Error(err))
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	for _, sub := range subs {
		go s.deliver(context.WithoutCancel(ctx), sub, event)
	}
}

// deliver sends the event to a single subscription with retries.
func (s *Service) deliver(ctx context.Context, sub *Subscription, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("notify: marshal event", zap.Error(err))
		return
	}

	signature := signPayload(body, sub.Secret)

	for attempt := 1; attempt <= len(retryDelays)+1; attempt++ {
		if attempt > 1 {
			time.Sleep(retryDelays[attempt-2])
		}

		success, statusCode, errMsg := s.doDelivery(ctx, sub.URL, body, signature)

		delivery := &Delivery{
			SubscriptionID: sub.ID,
			EventType:      event.Type,
			StatusCode:     statusCode,
			Attempt:        attempt,
			Success:        success,
			ErrorMessage:   errMsg,
		}
		if recordErr := s.store.RecordDelivery(ctx, delivery); recordErr != nil {
			s.logger.Warn("notify: record delivery", zap.Error(recordErr))
		}

		if s.onMetrics != nil {
			s.onMetrics(success)
		}

		if success {
			return
		}

		s.logger.Warn("notify: delivery failed",
			zap.String("url", sub.URL),
			zap.Int("attempt", attempt),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single HTTP POST delivery.
func (s *Service) doDelivery(ctx context.Context, url string, body []byte, signature string) (bool, int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seal-Signature", signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, 0, err.Error()
	}
	defer resp.Body.Close()
	io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return success, resp.StatusCode, errMsg
}

func isKnownEvent(eventType string) bool {
	for _, e := range KnownEventTypes {
		if e == eventType {
			return true
		}
	}
	return false
}

// signPayload computes an HMAC-SHA256 signature.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// generateSecret creates a random 32-byte hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
