package transport

import (
	"context"
	"sync"
	"time"

	"cardroom/domain/entities"
	"cardroom/domain/events"

	log "github.com/sirupsen/logrus"
)

// Client is one realtime connection owned by an identity
type Client struct {
	Username string
	send     chan ServerMessage
	once     sync.Once
}

// NewClient creates a client with an outbound buffer of size buffer
func NewClient(username string, buffer int) *Client {
	return &Client{
		Username: username,
		send:     make(chan ServerMessage, buffer),
	}
}

// Outbound returns the channel the write loop drains
func (c *Client) Outbound() <-chan ServerMessage {
	return c.send
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// LobbySource lists rooms for lobby subscribers
type LobbySource func(ctx context.Context) ([]*entities.Room, error)

// Hub is the connection registry. It maps identities to their open connections
// and delivers committed domain events to the connections they concern.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Client]struct{}
	lobby       map[*Client]struct{}
	lobbySource LobbySource
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]map[*Client]struct{}),
		lobby:       make(map[*Client]struct{}),
	}
}

// SetLobbySource sets the room lister used to refresh lobby subscribers
func (h *Hub) SetLobbySource(source LobbySource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lobbySource = source
}

// Register adds a connection for its identity. Every connection starts in the
// lobby; UnsubscribeLobby opts out.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.connections[c.Username]
	if !ok {
		set = make(map[*Client]struct{})
		h.connections[c.Username] = set
	}
	set[c] = struct{}{}
	h.lobby[c] = struct{}{}
}

// Unregister removes a connection and returns how many the identity still has open
func (h *Hub) Unregister(c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.lobby, c)
	remaining := 0
	if set, ok := h.connections[c.Username]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			c.close()
		}
		remaining = len(set)
		if remaining == 0 {
			delete(h.connections, c.Username)
		}
	}
	return remaining
}

// ConnectionCount returns the number of open connections for username
func (h *Hub) ConnectionCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[username])
}

// SubscribeLobby adds c to the lobby subscribers
func (h *Hub) SubscribeLobby(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c.Username][c]; ok {
		h.lobby[c] = struct{}{}
	}
}

// UnsubscribeLobby removes c from the lobby subscribers
func (h *Hub) UnsubscribeLobby(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lobby, c)
}

// Publish implements interfaces.EventPublisher. Delivery never blocks: a client
// whose buffer is full misses the message.
func (h *Hub) Publish(event events.Event) error {
	switch e := event.(type) {
	case events.RoomChangedEvent:
		if e.Room == nil {
			h.sendLobby(ServerMessage{Type: MessageRoomClosed, RoomID: e.RoomID})
			return nil
		}
		h.sendUsers(e.Room.Members, ServerMessage{Type: MessageRoomUpdate, RoomID: e.RoomID, Data: e.Room})
	case events.LobbyChangedEvent:
		h.refreshLobby()
	case events.RoundSettledEvent:
		if e.Round != nil {
			h.sendUsers(e.Round.Members, ServerMessage{Type: MessageRoundResult, RoomID: e.Round.RoomID, Data: e.Round})
		}
	case events.BalanceChangedEvent:
		h.sendUsers([]string{e.Username}, ServerMessage{Type: MessageBalance, Data: e})
	case events.RefundIssuedEvent:
		h.sendUsers([]string{e.Username}, ServerMessage{Type: MessageRefund, RoomID: e.RoomID, Data: e})
	}
	return nil
}

func (h *Hub) refreshLobby() {
	h.mu.RLock()
	source := h.lobbySource
	subscribers := len(h.lobby)
	h.mu.RUnlock()
	if source == nil || subscribers == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rooms, err := source(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to list rooms for lobby subscribers")
		return
	}
	h.sendLobby(ServerMessage{Type: MessageRooms, Data: rooms})
}

func (h *Hub) sendUsers(usernames []string, msg ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, username := range usernames {
		for c := range h.connections[username] {
			deliver(c, msg)
		}
	}
}

func (h *Hub) sendLobby(msg ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.lobby {
		deliver(c, msg)
	}
}

// deliver must be called with the hub lock held so c cannot be closed concurrently
func deliver(c *Client, msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		log.WithFields(log.Fields{
			"username": c.Username,
			"type":     msg.Type,
		}).Warn("Client outbound buffer full, dropping message")
	}
}

// Send queues a direct reply to c
func (h *Hub) Send(c *Client, msg ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[c.Username][c]; ok {
		deliver(c, msg)
	}
}
