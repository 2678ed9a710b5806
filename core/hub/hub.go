package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mwalimu/darasa/core"
)

type (
	// Client is one realtime channel between a connected peer and the hub.
	// The hub only ever pushes to it; reading is the transport's business.
	Client interface {
		Send(data []byte) error
		Close() error
	}

	// Connection is the hub's registry entry for a Client. A connection with
	// UserID 0 is anonymous: it receives all broadcasts but takes no part in
	// presence. Lifecycle: anonymous -> identified (Announce) -> closed
	// (Unregister); there is no way back to anonymous.
	Connection struct {
		ID     string
		UserID int
		client Client
	}

	// RecipientPolicy resolves which connections receive an event.
	// The default delivers to all; a narrower policy can be supplied without
	// touching the relay mechanics.
	RecipientPolicy func(evt Event, conns []*Connection) []*Connection

	// Hub tracks open connections, derives per-user presence from them and
	// fans events out. All state is in-memory and resets on restart;
	// reconnecting clients must re-announce. Delivery is best effort,
	// at-most-once per connection at broadcast time: no queuing for
	// disconnected clients, no replay.
	Hub struct {
		mu       sync.Mutex
		conns    map[Client]*Connection
		presence map[int]int // user ID -> open identified connections
		policy   RecipientPolicy
		logger   core.Logger
	}
)

// AllRecipients is the default RecipientPolicy: every open connection.
func AllRecipients(_ Event, conns []*Connection) []*Connection { return conns }

// NewHub returns a Hub delivering to recipients resolved by policy
// (all connections when nil).
func NewHub(logger core.Logger, policy RecipientPolicy) *Hub {
	if policy == nil {
		policy = AllRecipients
	}
	return &Hub{
		conns:    make(map[Client]*Connection),
		presence: make(map[int]int),
		policy:   policy,
		logger:   logger,
	}
}

// Register adds c as an anonymous connection. Membership only; no events fire.
func (h *Hub) Register(c Client) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn := &Connection{ID: uuid.New().String(), client: c}
	h.conns[c] = conn
	return conn
}

// Announce associates a user with the connection and broadcasts user:online
// to every connection, the announcer included. Repeat announces on an
// already-identified connection are dropped.
func (h *Hub) Announce(c Client, userID int) {
	if userID <= 0 {
		return
	}

	h.mu.Lock()
	conn, ok := h.conns[c]
	if !ok || conn.UserID != 0 {
		h.mu.Unlock()
		return
	}
	conn.UserID = userID
	h.presence[userID]++
	h.mu.Unlock()

	h.Broadcast(Event{Name: EventUserOnline, Data: PresenceData{UserID: userID}})
}

// Unregister removes the connection. For an identified connection the user's
// open-connection count is decremented and user:offline broadcast only once
// the count reaches zero, so a second tab keeps the user online.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	userID, lastConn := h.removeLocked(c)
	h.mu.Unlock()

	if lastConn {
		h.Broadcast(Event{Name: EventUserOffline, Data: PresenceData{UserID: userID}})
	}
}

// removeLocked drops the connection from the registry and reports whether the
// removal took its user offline. Callers must hold h.mu.
func (h *Hub) removeLocked(c Client) (userID int, lastConn bool) {
	conn, ok := h.conns[c]
	if !ok {
		return 0, false
	}
	delete(h.conns, c)
	_ = c.Close()

	if conn.UserID == 0 {
		return 0, false
	}
	userID = conn.UserID
	if n := h.presence[userID] - 1; n > 0 {
		h.presence[userID] = n
		return userID, false
	}
	delete(h.presence, userID)
	return userID, true
}

// Online reports whether at least one live connection announced userID.
func (h *Hub) Online(userID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presence[userID] > 0
}

// NumConnections returns the number of open connections, anonymous included.
func (h *Hub) NumConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// RelayChat broadcasts a persisted chat message to all connections.
// Callers must only relay records the store has already accepted.
func (h *Hub) RelayChat(msg interface{}) {
	h.Broadcast(Event{Name: EventChatNew, Data: msg})
}

// RelayTyping broadcasts a typing start/stop signal. Signals with a missing
// endpoint are dropped silently. Nothing is buffered and no server-side
// timeout exists; clearing a stale indicator is the consumer's business.
func (h *Hub) RelayTyping(start bool, from, to int) {
	if from <= 0 || to <= 0 {
		return
	}
	name := EventTypingStop
	if start {
		name = EventTypingStart
	}
	h.Broadcast(Event{Name: name, Data: TypingData{From: from, To: to}})
}

// RelayAnnouncement broadcasts a persisted announcement to all connections.
func (h *Hub) RelayAnnouncement(a interface{}) {
	h.Broadcast(Event{Name: EventAnnouncementNew, Data: a})
}

// Broadcast delivers evt to the connections resolved by the recipient policy.
// Connections that fail to accept the write are dropped; a user whose last
// connection is dropped this way goes offline like any other disconnect.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error(fmt.Sprintf("marshaling %s event: %v", evt.Name, err), err)
		return
	}

	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}

	var offline []int
	for _, conn := range h.policy(evt, conns) {
		if err := conn.client.Send(data); err != nil {
			if userID, lastConn := h.removeLocked(conn.client); lastConn {
				offline = append(offline, userID)
			}
		}
	}
	h.mu.Unlock()

	for _, userID := range offline {
		h.Broadcast(Event{Name: EventUserOffline, Data: PresenceData{UserID: userID}})
	}
}
