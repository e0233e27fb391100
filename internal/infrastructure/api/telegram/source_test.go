// internal/infrastructure/api/telegram/source_test.go
package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"telegram-fcm-signal-bridge/internal/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMeRejectedTokenIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-token", time.Second)

	_, err := client.GetMe(context.Background())
	require.Error(t, err)
	assert.True(t, stream.IsFatal(err))
}

func TestGetUpdatesRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 17","parameters":{"retry_after":17}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", time.Second)

	_, err := client.GetUpdates(context.Background(), 0)
	require.Error(t, err)
	assert.False(t, stream.IsFatal(err))

	delay, ok := stream.RateLimitDelay(err)
	require.True(t, ok)
	assert.Equal(t, 17*time.Second, delay)
}

func TestGetUpdatesNetworkErrorRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(server.URL, "test-token", time.Second)
	server.Close()

	_, err := client.GetUpdates(context.Background(), 0)
	require.Error(t, err)
	assert.False(t, stream.IsFatal(err))

	_, ok := stream.RateLimitDelay(err)
	assert.False(t, ok)
}

func TestSubscriptionStreamsChannelPosts(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var offsets []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bridge","username":"bridge_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			assert.Equal(t, `["channel_post"]`, r.URL.Query().Get("allowed_updates"))

			mu.Lock()
			offsets = append(offsets, r.URL.Query().Get("offset"))
			mu.Unlock()

			// Первая пачка: пост из целевого канала, пост из чужого, пустое обновление
			if atomic.AddInt32(&calls, 1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":101,"channel_post":{"message_id":11,"date":1736931845,"text":"9:05 B","chat":{"id":-100500,"type":"channel","title":"signals"}}},
					{"update_id":102,"channel_post":{"message_id":12,"date":1736931850,"text":"10:00 S","chat":{"id":-100999,"type":"channel","title":"other"}}},
					{"update_id":103}
				]}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":104,"channel_post":{"message_id":13,"date":1736931860,"text":"S","chat":{"id":-100500,"type":"channel","title":"signals"}}}
			]}`))
		}
	}))
	defer server.Close()

	source := NewSource(NewClient(server.URL, "test-token", time.Second), -100500)
	assert.Equal(t, "telegram", source.Name())

	conn, err := source.Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	sub, err := source.Subscribe(context.Background(), conn)
	require.NoError(t, err)
	defer sub.Close()

	msg, err := sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "11", msg.ID)
	assert.Equal(t, "9:05 B", msg.Text)
	assert.Equal(t, int64(1736931845), msg.ArrivedAt.Unix())

	msg, err = sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "13", msg.ID)
	assert.Equal(t, "S", msg.Text)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(offsets), 2)
	assert.Equal(t, "", offsets[0])
	assert.Equal(t, "104", offsets[1])
}
