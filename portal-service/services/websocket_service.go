package services

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"insureportal-backend/shared/events"
	applog "insureportal-backend/shared/logger"
	utils "insureportal-backend/shared/utils/auth"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// StreamMessage is what a subscriber receives on the form stream
type StreamMessage struct {
	Type      string        `json:"type"`
	Event     *events.Event `json:"event,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// WebSocketManager streams form events to connected editors and dashboards.
type WebSocketManager struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
	mutex    sync.RWMutex
	clients  map[*websocket.Conn]*utils.Identity
}

func NewWebSocketManager(hub *events.Hub, allowedOrigins ...string) *WebSocketManager {
	wsm := &WebSocketManager{
		hub:     hub,
		clients: make(map[*websocket.Conn]*utils.Identity),
	}
	wsm.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if originAllowed(origin, r.Host, allowedOrigins) {
				return true
			}
			applog.Warn().Str("origin", origin).Msg("🚫 WebSocket connection rejected from origin")
			return false
		},
	}
	return wsm
}

// originAllowed accepts non-browser clients, same-host pages and the configured frontends.
func originAllowed(origin, host string, allowed []string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	parsed, err := url.Parse(origin)
	return err == nil && parsed.Host == host
}

// Visible reports whether a subscriber may learn about the event: same
// organization, and for clients only their own forms.
func Visible(id *utils.Identity, event events.Event) bool {
	if id == nil || event.OrganizationID != id.OrganizationID {
		return false
	}
	return id.IsAdmin() || event.CreatedByID == id.UserID
}

// Serve upgrades the request and streams visible events until either side closes.
func (wsm *WebSocketManager) Serve(c *gin.Context, id *utils.Identity) {
	conn, err := wsm.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		applog.Warn().Err(err).Msg("❌ Failed to upgrade WebSocket")
		return
	}

	stream, cancel := wsm.hub.Subscribe()
	wsm.register(conn, id)
	defer func() {
		cancel()
		wsm.unregister(conn)
	}()

	done := make(chan struct{})
	go wsm.readLoop(conn, done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	if err := writeJSON(conn, StreamMessage{Type: "connection", Timestamp: time.Now().UTC()}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			if !Visible(id, event) {
				continue
			}
			ev := event
			if err := writeJSON(conn, StreamMessage{Type: string(event.Type), Event: &ev, Timestamp: time.Now().UTC()}); err != nil {
				applog.Debug().Err(err).Str("user_id", id.UserID.String()).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func (wsm *WebSocketManager) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				applog.Debug().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, message StreamMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(message)
}

func (wsm *WebSocketManager) register(conn *websocket.Conn, id *utils.Identity) {
	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()
	wsm.clients[conn] = id
	applog.Info().Str("user_id", id.UserID.String()).Int("total", len(wsm.clients)).Msg("🔌 WebSocket client connected")
}

func (wsm *WebSocketManager) unregister(conn *websocket.Conn) {
	wsm.mutex.Lock()
	defer wsm.mutex.Unlock()
	if id, ok := wsm.clients[conn]; ok {
		delete(wsm.clients, conn)
		conn.Close()
		applog.Info().Str("user_id", id.UserID.String()).Int("total", len(wsm.clients)).Msg("🔌 WebSocket client disconnected")
	}
}

// GetConnectionCount returns number of active connections
func (wsm *WebSocketManager) GetConnectionCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}
