package gameserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write before the connection is
	// considered dead.
	writeWait = 10 * time.Second

	// sendQueueSize is the outbound backlog per connection. Events for
	// a client whose queue is full are dropped, not awaited; the sink
	// contract is fire-and-forget.
	sendQueueSize = 64
)

// Client is one live websocket connection bound to a player. Reads run
// on the connection's serve goroutine; writes are serialized through
// the send queue and its pump goroutine.
type Client struct {
	playerID uint32
	userID   string
	conn     *websocket.Conn

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newClient(playerID uint32, userID string, conn *websocket.Conn) *Client {
	return &Client{
		playerID: playerID,
		userID:   userID,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// PlayerID returns the bound player's id.
func (c *Client) PlayerID() uint32 {
	return c.playerID
}

// UserID returns the authenticated account id.
func (c *Client) UserID() string {
	return c.userID
}

// enqueue hands a marshaled frame to the write pump. Returns false when
// the client is closed or its queue is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// writePump drains the send queue onto the socket until the client
// closes or a write fails. Must run on its own goroutine.
func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.done:
			// Drain what was queued before the close, then say goodbye.
			for {
				select {
				case frame := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// close shuts the client down. Safe to call more than once and from any
// goroutine; the read loop exits via the closed connection.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
