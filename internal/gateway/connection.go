package gateway

import (
	"sync"
	"time"

	"github.com/Iron-Ham/arena/internal/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 30 * time.Second
	sendBuffer    = 128
	maxFrameBytes = 16 * 1024
)

// CloseReplaced is the close code sent to a socket superseded by a newer
// connection of the same user in the same channel.
const CloseReplaced = 4001

var (
	errConnectionClosed = errors.New("connection closed")
	errBufferFull       = errors.New("connection buffer exceeded")
)

// Identity is who a connection speaks for.
type Identity struct {
	UserID     string
	Name       string
	Privileged bool
}

// Connection wraps one websocket bound to a single chat channel. Outbound
// writes go through a buffered queue drained by a write loop; it is safe
// for concurrent use.
type Connection struct {
	ID        string
	ChannelID string
	Identity

	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

// NewConnection constructs a Connection for a user in a channel.
func NewConnection(channelID string, id Identity, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Identity:  id,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. A client too slow to drain its queue
// is disconnected.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errBufferFull
	}
}

// Close terminates the connection with a close frame. Later calls are no-ops.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

// Done is closed once the connection has been closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseInternalServerErr, "ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
