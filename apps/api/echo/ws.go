package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/darasa/core/hub"
)

type wsApi struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func registerHubAPI(e *echo.Echo, h *hub.Hub) {
	api := &wsApi{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// clients connect from the SPA on another origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	e.GET("/ws", api.serve)
}

// inboundEvent defers data decoding until the event name is known.
type inboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// serve upgrades the request and hands the connection to the hub. Connections
// start anonymous; clients identify themselves with a presence:announce event.
func (api *wsApi) serve(ctx echo.Context) error {
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	client := hub.NewWebsocketClient(conn)
	api.hub.Register(client)
	go api.readPump(conn, client)
	return nil
}

// readPump consumes inbound frames until the peer goes away. Frames that are
// not valid JSON events are dropped without closing the connection.
func (api *wsApi) readPump(conn *websocket.Conn, client hub.Client) {
	defer api.hub.Unregister(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var evt inboundEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}
		switch evt.Name {
		case hub.EventPresenceAnnounce:
			var pd hub.PresenceData
			if err := json.Unmarshal(evt.Data, &pd); err != nil {
				continue
			}
			api.hub.Announce(client, pd.UserID)
		case hub.EventTypingStart, hub.EventTypingStop:
			var td hub.TypingData
			if err := json.Unmarshal(evt.Data, &td); err != nil {
				continue
			}
			api.hub.RelayTyping(evt.Name == hub.EventTypingStart, td.From, td.To)
		}
	}
}
