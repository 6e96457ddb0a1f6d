package gateway

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/attache-hq/attache/internal/agent"
	"github.com/attache-hq/attache/internal/logging"
)

// EventHub fans agent turn lifecycle events out to websocket subscribers.
// Publishing never blocks; a subscriber that cannot keep up is dropped.
type EventHub struct {
	log      *logging.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan agent.Event
}

// NewEventHub creates an event hub.
func NewEventHub(allowedOrigins []string, log *logging.Logger) *EventHub {
	return &EventHub{
		log:  log.Sub("events"),
		subs: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(allowedOrigins),
		},
	}
}

// checkWebSocketOrigin validates the Origin header against the configured
// allowlist. Requests without an Origin (non-browser clients) are allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Publish delivers an event to every subscriber. Implements agent.Observer.
func (h *EventHub) Publish(evt agent.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.send <- evt:
		default:
			h.log.Warn().Msg("dropping slow event subscriber")
			close(sub.send)
			delete(h.subs, sub)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan agent.Event, 16)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	h.log.Debug().Str("remote", r.RemoteAddr).Int("subscribers", count).Msg("event subscriber connected")

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// writeLoop pushes events to the connection until the channel closes.
func (h *EventHub) writeLoop(sub *subscriber) {
	for evt := range sub.send {
		if err := sub.conn.WriteJSON(evt); err != nil {
			h.remove(sub)
			return
		}
	}
	sub.conn.Close()
}

// readLoop discards inbound frames and detects disconnects.
func (h *EventHub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.remove(sub)
			return
		}
	}
}

func (h *EventHub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		close(sub.send)
		delete(h.subs, sub)
	}
	h.mu.Unlock()
	sub.conn.Close()
}

// Subscribers returns the current subscriber count.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
