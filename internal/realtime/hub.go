package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/licitabrasil/licita-api/internal/metrics"
	"github.com/licitabrasil/licita-api/internal/model"
)

const (
	EventPing = "ping"
	EventPong = "pong"

	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

// Message is the frame pushed to clients.
type Message struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type clientMessage struct {
	Event string `json:"event"`
}

type client struct {
	userID uuid.UUID
	role   model.Role
	send   chan Message
	cancel context.CancelFunc
}

// Hub keeps the open websocket connections grouped in rooms. A connection
// joins user:<id> and role:<ROLE>.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}

	acceptOptions *websocket.AcceptOptions
	metrics       *metrics.Metrics
	log           zerolog.Logger
	now           func() time.Time
}

func NewHub(allowedOrigins []string, m *metrics.Metrics, log zerolog.Logger) *Hub {
	options := &websocket.AcceptOptions{OriginPatterns: allowedOrigins}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			options = &websocket.AcceptOptions{InsecureSkipVerify: true}
			break
		}
	}
	return &Hub{
		clients:       map[*client]struct{}{},
		rooms:         map[string]map[*client]struct{}{},
		acceptOptions: options,
		metrics:       m,
		log:           log.With().Str("component", "realtime").Logger(),
		now:           time.Now,
	}
}

func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

func RoleRoom(role model.Role) string {
	return "role:" + string(role)
}

// Serve upgrades the request and blocks until the connection ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, principal model.Principal) {
	conn, err := websocket.Accept(w, r, h.acceptOptions)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{
		userID: principal.UserID,
		role:   principal.Role,
		send:   make(chan Message, sendBuffer),
		cancel: cancel,
	}
	h.register(c)
	defer h.unregister(c)

	go h.writeLoop(ctx, conn, c)

	err = h.readLoop(ctx, conn, c)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure, websocket.CloseStatus(err) == websocket.StatusGoingAway:
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		h.log.Debug().Err(err).Str("user_id", c.userID.String()).Msg("websocket read ended")
	}
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, c *client) error {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if msg.Event == EventPing {
			h.deliver(c, Message{Event: EventPong, Timestamp: h.now().UTC()})
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("user_id", c.userID.String()).Msg("websocket write failed")
				c.cancel()
				return
			}
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.join(UserRoom(c.userID), c)
	h.join(RoleRoom(c.role), c)
	h.metrics.ConnectionOpened()
	h.log.Info().Str("user_id", c.userID.String()).Str("role", string(c.role)).Msg("client connected")
}

func (h *Hub) join(room string, c *client) {
	members, ok := h.rooms[room]
	if !ok {
		members = map[*client]struct{}{}
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for _, room := range []string{UserRoom(c.userID), RoleRoom(c.role)} {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	// Emitters send under the read lock, so closing here cannot race a send.
	close(c.send)
	h.metrics.ConnectionClosed()
	h.log.Info().Str("user_id", c.userID.String()).Msg("client disconnected")
}

func (h *Hub) EmitToUser(userID uuid.UUID, event string, payload any) {
	h.emit(UserRoom(userID), event, payload)
}

func (h *Hub) EmitToRole(role model.Role, event string, payload any) {
	h.emit(RoleRoom(role), event, payload)
}

func (h *Hub) Broadcast(event string, payload any) {
	msg := Message{Event: event, Data: payload, Timestamp: h.now().UTC()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.deliver(c, msg)
	}
}

func (h *Hub) emit(room, event string, payload any) {
	msg := Message{Event: event, Data: payload, Timestamp: h.now().UTC()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		h.deliver(c, msg)
	}
}

// deliver never blocks; a client whose buffer is full misses the message.
func (h *Hub) deliver(c *client, msg Message) {
	select {
	case c.send <- msg:
		h.metrics.MessageDelivered(msg.Event)
	default:
		h.metrics.MessageDropped()
		h.log.Warn().Str("user_id", c.userID.String()).Str("event", msg.Event).Msg("send buffer full, message dropped")
	}
}

// ConnectedUsers lists the distinct users with at least one open connection.
func (h *Hub) ConnectedUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{}, len(h.clients))
	users := make([]uuid.UUID, 0, len(h.clients))
	for c := range h.clients {
		if _, ok := seen[c.userID]; ok {
			continue
		}
		seen[c.userID] = struct{}{}
		users = append(users, c.userID)
	}
	return users
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)]) > 0
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown asks every open connection to close.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.cancel()
	}
}
