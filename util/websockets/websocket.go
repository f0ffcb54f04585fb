package websockets

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	clientSendBuf  = 16
	maxMessageSize = 4 * 1024
	countTimeout   = 3 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Manager owns the broadcast group: the set of currently connected viewer
// sessions. Membership changes only on connect/disconnect; fan-out only
// reads it. Delivery is best effort, viewers reconcile via the snapshot
// endpoint.
type Manager struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	log        zerolog.Logger

	// CountFunc answers on-demand count requests from viewers. Set once
	// during startup wiring, before Run.
	CountFunc func(ctx context.Context) (int64, error)
}

// NewManager initializes a Manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client, 8),
		unregister: make(chan *Client, 8),
		log:        log,
	}
}

// Run starts the manager loop. Meant to run as a goroutine for the life of
// the process.
func (manager *Manager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client] = true
			total := len(manager.clients)
			manager.mu.Unlock()
			manager.log.Info().Int("total_clients", total).Msg("viewer connected")

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, exists := manager.clients[client]; exists {
				delete(manager.clients, client)
				close(client.send)
			}
			total := len(manager.clients)
			manager.mu.Unlock()
			manager.log.Info().Int("total_clients", total).Msg("viewer disconnected")

		case event := <-manager.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				manager.log.Error().Err(err).Str("event", event.Event).Msg("failed to marshal event")
				continue
			}
			manager.mu.Lock()
			for client := range manager.clients {
				select {
				case client.send <- payload:
				default:
					// Send buffer full: the viewer is stalled. Drop it
					// rather than block every other connection.
					delete(manager.clients, client)
					close(client.send)
					client.Conn.Close()
				}
			}
			manager.mu.Unlock()
		}
	}
}

// BroadcastNewPin pushes a new-pin event to every connected viewer.
func (manager *Manager) BroadcastNewPin(pin NewPinEvent) {
	manager.broadcast <- Event{Event: EventNewPin, Data: pin}
}

// BroadcastMemberCount pushes the refreshed member count to every viewer.
func (manager *Manager) BroadcastMemberCount(count int64) {
	manager.broadcast <- Event{Event: EventMemberCount, Data: MemberCountEvent{Count: count}}
}

// ClientCount reports the broadcast group size.
func (manager *Manager) ClientCount() int {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return len(manager.clients)
}

// HandleConnections upgrades HTTP requests to WebSocket connections and
// joins them to the broadcast group until they disconnect.
func (manager *Manager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{Conn: conn, send: make(chan []byte, clientSendBuf)}
	manager.register <- client

	go client.writePump()

	conn.SetReadLimit(maxMessageSize)
	defer func() {
		manager.unregister <- client
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg incomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			manager.log.Debug().Err(err).Msg("invalid websocket message")
			continue
		}

		switch msg.Type {
		case MsgTypeGetMemberCount:
			manager.sendCount(client)
		}
	}
}

// sendCount answers a single viewer's on-demand count request.
func (manager *Manager) sendCount(client *Client) {
	if manager.CountFunc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	defer cancel()

	count, err := manager.CountFunc(ctx)
	if err != nil {
		manager.log.Error().Err(err).Msg("failed to get member count for viewer")
		return
	}

	payload, err := json.Marshal(Event{Event: EventMemberCount, Data: MemberCountEvent{Count: count}})
	if err != nil {
		return
	}

	// The manager may have dropped this client and closed its send channel
	// in the meantime; every close happens under mu, so checking membership
	// under the same lock keeps the send safe.
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if !manager.clients[client] {
		return
	}

	select {
	case client.send <- payload:
	default:
	}
}

// writePump drains the client's send channel onto the connection. Exits
// when the manager closes the channel.
func (c *Client) writePump() {
	defer c.Conn.Close()

	for payload := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}

	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
