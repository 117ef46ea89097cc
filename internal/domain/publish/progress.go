package publish

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/pkg/response"
)

// Hub fans publish attempt state transitions out to websocket subscribers.
// A subscriber watches exactly one attempt id; a slow or closed connection
// drops events rather than blocking the pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*websocket.Conn]struct{}
}

// NewHub creates a progress hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*websocket.Conn]struct{})}
}

// Notify implements Notifier
func (h *Hub) Notify(ev Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[ev.AttemptID]))
	for conn := range h.subs[ev.AttemptID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Str("attempt_id", ev.AttemptID).Msg("Dropping progress subscriber")
			h.unsubscribe(ev.AttemptID, conn)
			conn.Close()
		}
	}
}

func (h *Hub) subscribe(attemptID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[attemptID] == nil {
		h.subs[attemptID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[attemptID][conn] = struct{}{}
}

func (h *Hub) unsubscribe(attemptID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[attemptID], conn)
	if len(h.subs[attemptID]) == 0 {
		delete(h.subs, attemptID)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the progress stream carries no
	// sensitive data beyond attempt states.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS handles GET /ws/publish?attempt=<id>
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attempt")
	if attemptID == "" {
		response.BadRequest(w, "Missing attempt id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.subscribe(attemptID, conn)
	log.Debug().Str("attempt_id", attemptID).Msg("Progress subscriber connected")

	// Read pump: we never expect client messages, but reading detects close
	go func() {
		defer func() {
			h.unsubscribe(attemptID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
