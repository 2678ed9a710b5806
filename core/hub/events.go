package hub

// Event names on the wire. Outbound events go to every open connection;
// consumers filter client-side.
const (
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
	EventChatNew         = "chat:new"
	EventTypingStart     = "typing:start"
	EventTypingStop      = "typing:stop"
	EventAnnouncementNew = "announcement:new"
)

// Inbound event names, sent by clients over an open connection.
const (
	EventPresenceAnnounce = "presence:announce"
)

type (
	// Event is the wire envelope for everything the hub relays.
	Event struct {
		Name string      `json:"event"`
		Data interface{} `json:"data"`
	}

	// PresenceData carries online/offline transitions.
	PresenceData struct {
		UserID int `json:"user_id"`
	}

	// TypingData is an ephemeral (from, to) typing signal; never persisted.
	TypingData struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
)
