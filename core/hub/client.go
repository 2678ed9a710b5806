package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	// time allowed to write an event to the peer
	writeWait = 10 * time.Second

	// per-connection outbound buffer; a peer that cannot drain this many
	// events is dropped rather than allowed to stall the hub
	sendBufferSize = 64
)

var (
	errClientClosed = errors.New("client closed")
	errSendFull     = errors.New("send buffer full")
)

// wsClient wraps a gorilla/websocket connection behind the Client interface.
// Writes are serialized through a buffered channel drained by a single
// write pump, since gorilla connections support one concurrent writer only.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

var _ Client = (*wsClient)(nil)

// NewWebsocketClient wraps conn and starts its write pump.
func NewWebsocketClient(conn *websocket.Conn) Client {
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *wsClient) Send(data []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendFull
	}
}

func (c *wsClient) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
