// Package hub fans lifecycle events out to live websocket watchers of a
// session, such as a coach observing a trainee's grid.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
)

const (
	defaultBuffer = 32
	writeWait     = 10 * time.Second
	pingPeriod    = 30 * time.Second
)

// Hub is a Subscriber that keeps per-session watcher channels. A slow
// watcher loses events rather than blocking the dispatcher.
type Hub struct {
	logger *zap.Logger
	buffer int

	mu       sync.Mutex
	next     uint64
	watchers map[string]map[uint64]chan events.Envelope
}

func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:   logger,
		buffer:   defaultBuffer,
		watchers: make(map[string]map[uint64]chan events.Envelope),
	}
}

func (h *Hub) Name() string {
	return "hub"
}

// Ordered keeps watcher streams in emit order.
func (h *Hub) Ordered() {}

func (h *Hub) Handle(_ context.Context, event events.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.watchers[event.SessionID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("dropping event for slow watcher",
				zap.String("session_id", event.SessionID),
				zap.Uint64("watcher", id),
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
	return nil
}

// Watch registers a watcher for sessionID. The returned stop func closes the
// channel and must be called once.
func (h *Hub) Watch(sessionID string) (<-chan events.Envelope, func()) {
	ch := make(chan events.Envelope, h.buffer)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.watchers[sessionID] == nil {
		h.watchers[sessionID] = make(map[uint64]chan events.Envelope)
	}
	h.watchers[sessionID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.watchers[sessionID], id)
			if len(h.watchers[sessionID]) == 0 {
				delete(h.watchers, sessionID)
			}
			close(ch)
		})
	}
}

// Watchers reports how many watchers sessionID has.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[sessionID])
}

// Stream writes sessionID's events to conn as JSON until ctx ends, the peer
// goes away or a write fails.
func (h *Hub) Stream(ctx context.Context, conn *websocket.Conn, sessionID string) error {
	ch, stop := h.Watch(sessionID)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Reads only serve to notice the peer closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case event := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
