package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mentorship-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// StatusWriter flips the persisted online flag.
type StatusWriter interface {
	SetOnline(ctx context.Context, id string, online bool) error
}

// Hub is the websocket transport over a Registry.
type Hub struct {
	registry Registry
	status   StatusWriter
	upgrader websocket.Upgrader
	clock    func() time.Time
}

func NewHub(registry Registry, status StatusWriter, allowedOrigins []string) *Hub {
	h := &Hub{registry: registry, status: status, clock: time.Now}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Envelope is every frame the hub writes.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// client is one websocket connection. send is closed only by the hub after
// the read loop exits, so Deliver never writes to a closed channel.
type client struct {
	conn *websocket.Conn
	send chan any
	done chan struct{}
}

func (c *client) Deliver(payload any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// NotifyMentor pushes payload to the mentor's live connection. It reports
// whether the frame was queued; it never blocks.
func (h *Hub) NotifyMentor(ctx context.Context, mentorID string, payload any) bool {
	conn, ok := h.registry.Lookup(mentorID)
	if !ok {
		return false
	}
	delivered := conn.Deliver(payload)
	if !delivered {
		logger.From(ctx).Warn("mentor notification dropped", "mentor_id", mentorID)
	}
	return delivered
}

// Serve upgrades the request and holds the connection for principalID until it closes.
func (h *Hub) Serve(c *gin.Context, principalID string) {
	ctx := c.Request.Context()
	log := logger.From(ctx)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "principal_id", principalID, "err", err)
		return
	}
	cl := &client{conn: ws, send: make(chan any, sendBuffer), done: make(chan struct{})}

	h.registry.Register(principalID, cl, h.clock())
	h.setOnline(context.WithoutCancel(ctx), principalID, true)
	log.Info("presence connected", "principal_id", principalID)

	go h.writePump(cl)
	h.readPump(cl, principalID)

	close(cl.done)
	h.registry.Unregister(principalID, cl)
	if _, still := h.registry.Lookup(principalID); !still {
		h.setOnline(context.WithoutCancel(ctx), principalID, false)
	}
	log.Info("presence disconnected", "principal_id", principalID)
}

func (h *Hub) readPump(cl *client, principalID string) {
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		h.registry.Touch(principalID, h.clock())
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		h.registry.Touch(principalID, h.clock())
		var msg Envelope
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			cl.Deliver(Envelope{Type: "pong"})
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Sweep drops connections that stopped heartbeating and marks them offline.
func (h *Hub) Sweep(ctx context.Context) (int, error) {
	stale := h.registry.Sweep(h.clock())
	for _, id := range stale {
		h.setOnline(ctx, id, false)
	}
	return len(stale), nil
}

func (h *Hub) setOnline(ctx context.Context, id string, online bool) {
	if h.status == nil {
		return
	}
	if err := h.status.SetOnline(ctx, id, online); err != nil {
		logger.From(ctx).Warn("update online flag failed", "principal_id", id, "online", online, "err", err)
	}
}
