package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridkeeper/autopilot/pkg/types"
)

func TestWebhookNotifier_SendPostsPayload(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhook(server.URL, zerolog.Nop())
	ok := n.Send(context.Background(), "Backup Summary", "all good", types.LevelSuccess, map[string]interface{}{"count": 3})

	assert.True(t, ok)
	assert.Equal(t, "Backup Summary", received.Title)
	assert.Equal(t, types.LevelSuccess, received.Level)
}

func TestWebhookNotifier_SendFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhook(server.URL, zerolog.Nop())
	ok := n.Send(context.Background(), "t", "b", types.LevelError, nil)
	assert.False(t, ok)
}

func TestWebhookNotifier_SendRetriesOnServerErrorThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhook(server.URL, zerolog.Nop())
	n.retryConfig.BaseBackoff = time.Millisecond
	n.retryConfig.MaxBackoff = 5 * time.Millisecond

	ok := n.Send(context.Background(), "t", "b", types.LevelInfo, nil)

	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestWebhookNotifier_SendStopsAfterMaxRetriesOnPermanentServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhook(server.URL, zerolog.Nop())
	n.retryConfig.BaseBackoff = time.Millisecond
	n.retryConfig.MaxBackoff = 5 * time.Millisecond

	ok := n.Send(context.Background(), "t", "b", types.LevelError, nil)

	assert.False(t, ok)
	assert.Equal(t, int32(n.retryConfig.MaxRetries+1), atomic.LoadInt32(&attempts))
}

func TestWebhookNotifier_SendDoesNotRetryOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewWebhook(server.URL, zerolog.Nop())

	ok := n.Send(context.Background(), "t", "b", types.LevelError, nil)

	assert.False(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestWebhookNotifier_Matches(t *testing.T) {
	n := NewWebhook("http://example.invalid", zerolog.Nop())
	assert.True(t, n.Matches(types.NotificationConfig{Enabled: true, Kind: "webhook"}))
	assert.False(t, n.Matches(types.NotificationConfig{Enabled: true, Kind: "log"}))
	assert.False(t, n.Matches(types.NotificationConfig{Enabled: false, Kind: "webhook"}))
}

func TestLogNotifier_AlwaysSucceeds(t *testing.T) {
	n := NewLog(zerolog.Nop())
	assert.True(t, n.Send(context.Background(), "t", "b", types.LevelInfo, nil))
	assert.True(t, n.TestConnection(context.Background()))
}

func TestLogNotifier_MatchesDisabledOrLogKind(t *testing.T) {
	n := NewLog(zerolog.Nop())
	assert.True(t, n.Matches(types.NotificationConfig{Enabled: false}))
	assert.True(t, n.Matches(types.NotificationConfig{Enabled: true, Kind: "log"}))
	assert.False(t, n.Matches(types.NotificationConfig{Enabled: true, Kind: "webhook"}))
}
