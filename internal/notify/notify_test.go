package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brick-tracker/internal/alerts"
)

var sample = []alerts.Event{{
	Kind:     alerts.KindRetirement,
	Priority: alerts.PriorityHigh,
	ItemID:   "10294",
	ItemName: "Titanic",
	Message:  "Titanic retired (2024-05)",
}}

func TestWebhook_Posts(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(WebhookConfig{URL: srv.URL})
	require.NoError(t, wh.Notify(context.Background(), sample))
	assert.Equal(t, "[HIGH] RETIREMENT: Titanic retired (2024-05)\n", got.Text)
}

func TestWebhook_EmptyBatchIsNoop(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(WebhookConfig{URL: srv.URL}).Notify(context.Background(), nil))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestWebhook_RejectedAndBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(WebhookConfig{URL: srv.URL})
	for i := 0; i < 3; i++ {
		err := wh.Notify(context.Background(), sample)
		assert.ErrorIs(t, err, ErrUndelivered)
	}

	err := wh.Notify(context.Background(), sample)
	assert.ErrorIs(t, err, ErrUndelivered, "open breaker still reports undelivered")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker short-circuits the request")
}

func TestWebhook_CancelledContext(t *testing.T) {
	wh := NewWebhook(WebhookConfig{URL: "http://127.0.0.1:0", RatePerMinute: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, wh.Notify(ctx, sample))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))
	require.NoError(t, n.Notify(context.Background(), sample))
	assert.Contains(t, buf.String(), `"item_id":"10294"`)
	assert.Contains(t, buf.String(), `"kind":"RETIREMENT"`)
}

type recorder struct {
	calls int
	err   error
}

func (r *recorder) Notify(context.Context, []alerts.Event) error {
	r.calls++
	return r.err
}

func TestMulti(t *testing.T) {
	a, b := &recorder{err: assert.AnError}, &recorder{}
	err := Multi{a, b}.Notify(context.Background(), sample)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls, "a failing notifier does not stop the rest")
	assert.Equal(t, []string{"*notify.recorder"}, FailedChannels(err))

	assert.NoError(t, Multi{}.Notify(context.Background(), sample))
}

func TestMulti_NamesFailedChannels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	hook := NewWebhook(WebhookConfig{URL: srv.URL})
	logged := NewLogNotifier(zerolog.Nop())

	err := Multi{logged, hook}.Notify(context.Background(), sample)
	require.Error(t, err)
	assert.Equal(t, []string{"webhook"}, FailedChannels(err))

	var ce *ChannelError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "webhook", ce.Channel)
	assert.ErrorIs(t, err, ErrUndelivered)

	assert.Nil(t, FailedChannels(nil))
	assert.Equal(t, "log", ChannelName(logged))
}
