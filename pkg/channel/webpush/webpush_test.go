package webpush_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/channel/webpush"
)

const secret = "s3cret"

func newChannel(t *testing.T, cfg webpush.Config) *webpush.Channel {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = secret
	}
	ch, err := webpush.New(cfg)
	require.NoError(t, err)
	return ch
}

func TestChannel_Send(t *testing.T) {
	t.Parallel()

	t.Run("signed json payload", func(t *testing.T) {
		t.Parallel()
		var got webpush.Payload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.NoError(t, webpush.VerifySignature(secret, body, r.Header, time.Minute))
			assert.Equal(t, "msg-1", r.Header.Get(webpush.HeaderID))
			assert.NoError(t, json.Unmarshal(body, &got))
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		ch := newChannel(t, webpush.Config{})
		assert.Equal(t, channel.WebPush, ch.ID())
		require.NoError(t, ch.Send(context.Background(), channel.Message{
			ID:       "msg-1",
			UserID:   "u1",
			To:       []string{srv.URL + "/sub/1"},
			Subject:  "Digest",
			BodyText: "2 new",
			Count:    2,
		}))
		assert.Equal(t, "Digest", got.Title)
		assert.Equal(t, "2 new", got.Body)
		assert.Equal(t, 2, got.Count)
	})

	statusTests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusGone, true},
		{http.StatusTooManyRequests, false},
		{http.StatusRequestTimeout, false},
		{http.StatusBadGateway, false},
	}
	for _, tt := range statusTests {
		t.Run("status "+strconv.Itoa(tt.status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newChannel(t, webpush.Config{}).Send(context.Background(), channel.Message{To: []string{srv.URL}})
			require.Error(t, err)
			assert.Equal(t, tt.permanent, channel.IsPermanent(err))
			if tt.status == http.StatusGone {
				assert.ErrorIs(t, err, webpush.ErrSubscriptionGone)
			}
		})
	}

	t.Run("reports per-subscription results", func(t *testing.T) {
		t.Parallel()
		ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer ok.Close()
		busy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer busy.Close()

		err := newChannel(t, webpush.Config{}).Send(context.Background(), channel.Message{
			To: []string{ok.URL, busy.URL},
		})
		assert.True(t, channel.IsTransient(err))

		delivered, rejected := channel.Recipients(err)
		assert.Equal(t, []string{ok.URL}, delivered)
		assert.Empty(t, rejected)
	})

	t.Run("invalid url is permanent", func(t *testing.T) {
		t.Parallel()
		err := newChannel(t, webpush.Config{}).Send(context.Background(), channel.Message{To: []string{"ftp://x"}})
		assert.ErrorIs(t, err, webpush.ErrInvalidURL)
		assert.True(t, channel.IsPermanent(err))
	})

	t.Run("circuit opens after repeated failures", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ch := newChannel(t, webpush.Config{FailureThreshold: 2, RecoveryTimeout: time.Hour})
		msg := channel.Message{To: []string{srv.URL}}
		for range 2 {
			assert.True(t, channel.IsTransient(ch.Send(context.Background(), msg)))
		}

		err := ch.Send(context.Background(), msg)
		assert.ErrorIs(t, err, webpush.ErrCircuitOpen)
		assert.True(t, channel.IsTransient(err))
		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestNew_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := webpush.New(webpush.Config{})
	assert.ErrorIs(t, err, webpush.ErrInvalidConfig)
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"a":1}`)
	ts := time.Now().Unix()
	h := http.Header{}
	h.Set(webpush.HeaderTimestamp, strconv.FormatInt(ts, 10))
	h.Set(webpush.HeaderSignature, webpush.Sign(secret, ts, payload))

	assert.NoError(t, webpush.VerifySignature(secret, payload, h, time.Minute))
	assert.ErrorIs(t, webpush.VerifySignature("other", payload, h, time.Minute), webpush.ErrInvalidSignature)
	assert.ErrorIs(t, webpush.VerifySignature(secret, []byte("x"), h, time.Minute), webpush.ErrInvalidSignature)

	old := time.Now().Add(-time.Hour).Unix()
	h.Set(webpush.HeaderTimestamp, strconv.FormatInt(old, 10))
	h.Set(webpush.HeaderSignature, webpush.Sign(secret, old, payload))
	assert.ErrorIs(t, webpush.VerifySignature(secret, payload, h, time.Minute), webpush.ErrInvalidSignature)
	assert.NoError(t, webpush.VerifySignature(secret, payload, h, 0))
}
