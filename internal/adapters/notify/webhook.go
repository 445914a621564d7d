package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/okian/attend/internal/domain/model"
	"github.com/okian/attend/pkg/logger"
)

// Payload kinds.
const (
	KindStateChange  = "state_change"
	KindIntervention = "intervention"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultRetries   = 2
	defaultBaseDelay = 200 * time.Millisecond
	defaultMaxDelay  = 2 * time.Second
	maxErrorBody     = 512
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Kind         string         `json:"kind"`
	State        string         `json:"state"`
	RecentStates []string       `json:"recent_states,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// Webhook posts notifications to an HTTP endpoint.
type Webhook struct {
	endpoint  string
	apiKey    string
	retries   int
	baseDelay time.Duration
	client    *http.Client
	logger    logger.Logger
}

// WebhookOption applies a configuration option to the Webhook.
type WebhookOption func(*Webhook)

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

// WithRetries sets how many times a failed delivery is retried.
func WithRetries(n int) WebhookOption {
	return func(w *Webhook) {
		if n >= 0 {
			w.retries = n
		}
	}
}

// WithBaseDelay sets the first retry backoff; later retries double it.
func WithBaseDelay(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d >= 0 {
			w.baseDelay = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) WebhookOption {
	return func(w *Webhook) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWebhook creates a webhook notifier. The API key, when set, is sent as
// a bearer token.
func NewWebhook(endpoint, apiKey string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		endpoint:  endpoint,
		apiKey:    apiKey,
		retries:   defaultRetries,
		baseDelay: defaultBaseDelay,
		client:    &http.Client{Timeout: defaultTimeout},
		logger:    logger.Get().Named("notify"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// New returns a webhook notifier for endpoint, or Nop when it is empty.
func New(endpoint, apiKey string, opts ...WebhookOption) Notifier {
	if endpoint == "" {
		return Nop{}
	}
	return NewWebhook(endpoint, apiKey, opts...)
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, state model.State, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	return w.send(ctx, ev.ID, Payload{
		Kind:     KindStateChange,
		State:    state.String(),
		Metadata: ev.Metadata(),
	})
}

// Intervene implements Notifier.
func (w *Webhook) Intervene(ctx context.Context, recent []model.State, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	names := make([]string, len(recent))
	for i, s := range recent {
		names[i] = s.String()
	}
	return w.send(ctx, ev.ID, Payload{
		Kind:         KindIntervention,
		State:        ev.State.String(),
		RecentStates: names,
		Metadata:     ev.Metadata(),
	})
}

func (w *Webhook) send(ctx context.Context, eventID string, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", ErrDelivery, err)
	}
	key := eventID + ":" + p.Kind

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		retry, err := w.post(ctx, key, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == w.retries {
			break
		}

		delay := w.backoff(attempt)
		w.logger.Debug(ctx, "notification failed, retrying",
			logger.String("kind", p.Kind),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", delay),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrDelivery, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w: %w", ErrDelivery, lastErr)
}

// post performs one attempt and reports whether a failure is worth retrying.
func (w *Webhook) post(ctx context.Context, idempotencyKey string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return retry, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
}

func (w *Webhook) backoff(attempt int) time.Duration {
	delay := float64(w.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(defaultMaxDelay) {
		delay = float64(defaultMaxDelay)
	}
	return time.Duration(delay)
}
