package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/angga0x/ownchat/internal/models"
)

// Client wraps a websocket connection as a registry Handle. Writes are
// serialized through a mutex because gorilla connections allow only one
// concurrent writer.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	writeMu sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Send marshals the event and writes it to the connection.
func (c *Client) Send(event models.ServerEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendError pushes a structured rejection on the connection. Best-effort.
func (c *Client) SendError(code, message string) {
	_ = c.Send(models.ServerEvent{
		Type:  models.EventError,
		Error: &models.ErrorPayload{Code: code, Message: message},
	})
}
