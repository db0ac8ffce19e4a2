package notifier

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client binds one websocket connection to one hub subscription. The
// subscription ends when the connection does; events buffered for a dead
// connection are discarded and the client re-fetches state on reconnect.
type Client struct {
	conn   *websocket.Conn
	sub    *Subscription
	logger *slog.Logger
}

func NewClient(conn *websocket.Conn, sub *Subscription, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		sub:    sub,
		logger: logger,
	}
}

// ReadPump drains inbound frames to run the keepalive protocol and detect
// disconnects. Clients send no application messages; anything readable is
// discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.sub.Unsubscribe()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
	}
}

// WritePump forwards subscription events to the connection and pings it on
// an interval. Exits when the subscription channel closes or a write
// fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case change, ok := <-c.sub.Events():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			b, err := json.Marshal(change)
			if err != nil {
				c.logger.Error("failed to marshal change event", "error", err)
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
