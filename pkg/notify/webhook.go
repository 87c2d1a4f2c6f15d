package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// webhookRetryConfig bounds the retry/backoff loop in doRequestWithRetry,
// mirroring ipiton's RetryConfig defaults (3 retries, 100ms base doubling
// up to a 5s cap).
type webhookRetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Multiplier  float64
}

var defaultWebhookRetryConfig = webhookRetryConfig{
	MaxRetries:  3,
	BaseBackoff: 100 * time.Millisecond,
	MaxBackoff:  5 * time.Second,
	Multiplier:  2.0,
}

// WebhookNotifier posts a JSON payload to a configured URL. The HTTP
// client is built once and reused, with the same pooling and TLS floor
// as ipiton's webhook client.
type WebhookNotifier struct {
	url         string
	httpClient  *http.Client
	retryConfig webhookRetryConfig
	logger      zerolog.Logger
}

// NewWebhook constructs a webhook notifier for url.
func NewWebhook(url string, logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				ForceAttemptHTTP2:   true,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		retryConfig: defaultWebhookRetryConfig,
		logger:      logger.With().Str("component", "webhook_notifier").Logger(),
	}
}

func (w *WebhookNotifier) Matches(cfg types.NotificationConfig) bool {
	return cfg.Enabled && cfg.Kind == "webhook"
}

type webhookPayload struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Level    types.NotifyLevel      `json:"level"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (w *WebhookNotifier) post(ctx context.Context, payload webhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, nil)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "autopilotd/1.0")

	return w.doRequestWithRetry(ctx, req, data)
}

// doRequestWithRetry sends req, retrying network errors and 5xx/429
// responses up to retryConfig.MaxRetries with exponentially growing
// backoff, in the style of ipiton's WebhookHTTPClient.doRequestWithRetry.
// Non-retryable 4xx responses and a spent retry budget return immediately.
func (w *WebhookNotifier) doRequestWithRetry(ctx context.Context, req *http.Request, body []byte) error {
	backoff := w.retryConfig.BaseBackoff
	var lastErr error

	for attempt := 0; attempt <= w.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			w.logger.Warn().Int("attempt", attempt).Dur("backoff", backoff).Err(lastErr).Msg("retrying webhook request")

			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook request cancelled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff = w.calculateBackoff(backoff)
		}

		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))

		resp, err := w.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook request: %w", err)
			if attempt < w.retryConfig.MaxRetries {
				continue
			}
			return lastErr
		}

		resp.Body.Close()

		if resp.StatusCode < 400 {
			return nil
		}

		lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		if !isRetryableStatus(resp.StatusCode) || attempt >= w.retryConfig.MaxRetries {
			return lastErr
		}
	}

	return lastErr
}

// isRetryableStatus reports whether an HTTP status warrants a retry: rate
// limiting and server errors, not permanent client errors.
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (w *WebhookNotifier) calculateBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * w.retryConfig.Multiplier)
	if next > w.retryConfig.MaxBackoff {
		return w.retryConfig.MaxBackoff
	}
	return next
}

func (w *WebhookNotifier) Send(ctx context.Context, title, body string, level types.NotifyLevel, metadata map[string]interface{}) bool {
	err := w.post(ctx, webhookPayload{Title: title, Body: body, Level: level, Metadata: metadata})
	if err != nil {
		w.logger.Error().Err(err).Msg("webhook send failed")
		return false
	}
	return true
}

func (w *WebhookNotifier) TestConnection(ctx context.Context) bool {
	err := w.post(ctx, webhookPayload{Title: "autopilot connection test", Body: "ok", Level: types.LevelInfo})
	if err != nil {
		w.logger.Error().Err(err).Msg("webhook connection test failed")
		return false
	}
	return true
}
