package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// UserClient is one live websocket connection for a user. Outbound frames
// go through the buffered send channel consumed by a single writer
// goroutine.
type UserClient struct {
	UserId string
	conn   *websocket.Conn
	send   chan []byte
}

func NewClient(userId string, conn *websocket.Conn) *UserClient {
	return &UserClient{
		UserId: userId,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
}

// ReadPump pulls inbound frames and hands them to onMessage. It owns the
// read side of the connection and returns when the peer goes away.
func (c *UserClient) ReadPump(unregister func(*UserClient), onMessage func(data []byte)) {
	defer func() {
		unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		onMessage(data)
	}
}

// WritePump drains the send channel and keeps the connection alive with
// pings. Closing the send channel terminates it.
func (c *UserClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
