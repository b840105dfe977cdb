package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/guybartal/momentloop-sub000/internal/infra"
)

// Envelope is the wire frame pushed to subscribers.
type Envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// Hub manages WebSocket connections grouped by project id and broadcasts
// job lifecycle events to them.
type Hub struct {
	mu       sync.Mutex
	projects map[string]map[*websocket.Conn]struct{}
	// writeMu serializes broadcasts: a gorilla connection supports only
	// one concurrent writer.
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	logger   infra.Logger
}

func NewHub(logger infra.Logger, checkOrigin func(*http.Request) bool) *Hub {
	return &Hub{
		projects: make(map[string]map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Serve upgrades the request and keeps the connection registered for the
// project until the peer goes away. Inbound frames are discarded; the
// channel is push-only.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.register(projectID, conn)
	h.logger.Debug().Str("project_id", projectID).Msg("websocket connected")

	defer func() {
		h.unregister(projectID, conn)
		_ = conn.Close()
		h.logger.Debug().Str("project_id", projectID).Msg("websocket disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastToProject sends an event to every connection subscribed to the
// project. Connections that fail to accept the write are dropped.
func (h *Hub) BroadcastToProject(projectID, event string, data map[string]any) {
	if h == nil {
		return
	}
	msg := Envelope{Event: event, Data: data}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.projects[projectID]))
	for c := range h.projects[projectID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, c := range conns {
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Warn().Err(err).Str("project_id", projectID).Msg("websocket write failed")
			h.unregister(projectID, c)
			_ = c.Close()
		}
	}
}

// ConnectionCount reports how many subscribers a project currently has.
func (h *Hub) ConnectionCount(projectID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.projects[projectID])
}

func (h *Hub) register(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.projects[projectID]
	if !ok {
		group = make(map[*websocket.Conn]struct{})
		h.projects[projectID] = group
	}
	group[conn] = struct{}{}
}

func (h *Hub) unregister(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.projects[projectID]
	if !ok {
		return
	}
	delete(group, conn)
	if len(group) == 0 {
		delete(h.projects, projectID)
	}
}
