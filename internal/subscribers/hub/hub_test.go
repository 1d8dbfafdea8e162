package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilepro.local/hunt-gateway/internal/events"
)

func TestHandleRoutesBySession(t *testing.T) {
	h := New(nil)
	a, stopA := h.Watch("ses_a")
	defer stopA()
	b, stopB := h.Watch("ses_b")
	defer stopB()

	require.NoError(t, h.Handle(context.Background(), events.Envelope{EventID: "evt_1", SessionID: "ses_a"}))

	select {
	case got := <-a:
		assert.Equal(t, "evt_1", got.EventID)
	default:
		t.Fatal("expected event for ses_a watcher")
	}
	select {
	case got := <-b:
		t.Fatalf("unexpected event for ses_b watcher: %+v", got)
	default:
	}
}

func TestHandleDropsForSlowWatcher(t *testing.T) {
	h := New(nil)
	h.buffer = 1
	ch, stop := h.Watch("ses_a")
	defer stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Handle(context.Background(), events.Envelope{SessionID: "ses_a"}))
	}
	assert.Len(t, ch, 1)
}

func TestStopUnregistersAndCloses(t *testing.T) {
	h := New(nil)
	ch, stop := h.Watch("ses_a")
	assert.Equal(t, 1, h.Watchers("ses_a"))

	stop()
	stop()
	assert.Zero(t, h.Watchers("ses_a"))
	_, open := <-ch
	assert.False(t, open)

	require.NoError(t, h.Handle(context.Background(), events.Envelope{SessionID: "ses_a"}))
}

func TestStreamWritesEventsToWebsocket(t *testing.T) {
	h := New(nil)
	upgrader := websocket.Upgrader{}
	done := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		done <- h.Stream(r.Context(), conn, "ses_a")
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Watchers("ses_a") == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Handle(context.Background(), events.Envelope{
		EventID:   "evt_9",
		EventType: events.TypeGridChanged,
		SessionID: "ses_a",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Envelope
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "evt_9", got.EventID)
	assert.Equal(t, events.TypeGridChanged, got.EventType)

	require.NoError(t, conn.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after peer closed")
	}
	require.Eventually(t, func() bool { return h.Watchers("ses_a") == 0 }, time.Second, 10*time.Millisecond)
}
