package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gennotes/pkg/api"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("user"), r.URL.Query().Get("device"))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, wsURL, user, device string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL+"?user="+user+"&device="+device, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) api.PushMessage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg api.PushMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_SendToUser(t *testing.T) {
	hub, wsURL := newTestHub(t)

	laptop := dial(t, wsURL, "alice", "laptop")
	phone := dial(t, wsURL, "alice", "phone")
	dial(t, wsURL, "bob", "laptop")

	require.Eventually(t, func() bool { return hub.Count() == 3 }, 2*time.Second, 10*time.Millisecond)

	msg := api.PushMessage{Type: api.PushReminder, Title: "Call mom"}
	assert.Equal(t, 2, hub.SendToUser(context.Background(), "alice", msg))
	assert.Equal(t, msg, readMessage(t, laptop))
	assert.Equal(t, msg, readMessage(t, phone))

	assert.Zero(t, hub.SendToUser(context.Background(), "nobody", msg))
}

func TestHub_Broadcast(t *testing.T) {
	hub, wsURL := newTestHub(t)

	alice := dial(t, wsURL, "alice", "laptop")
	bob := dial(t, wsURL, "bob", "laptop")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, hub.Broadcast(context.Background(), api.PushMessage{Type: api.PushDailySync}))
	assert.Equal(t, api.PushDailySync, readMessage(t, alice).Type)
	assert.Equal(t, api.PushDailySync, readMessage(t, bob).Type)
}

func TestHub_Disconnect(t *testing.T) {
	hub, wsURL := newTestHub(t)

	conn := dial(t, wsURL, "alice", "laptop")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	hub, wsURL := newTestHub(t)

	conn := dial(t, wsURL, "alice", "laptop")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
