package handler

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

const (
	writeWait = 10 * time.Second
	// requestWait bounds how long a client may stay silent before its
	// job request arrives.
	requestWait = 60 * time.Second
)

// wsConn adapts a websocket to session.Conn. After the request is read a
// background reader keeps consuming frames so close frames and dropped
// peers are noticed.
type wsConn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws, closed: make(chan struct{})}
}

func (c *wsConn) ReadRequest(v any) error {
	c.ws.SetReadDeadline(time.Now().Add(requestWait))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		c.markClosed()
		return err
	}
	c.ws.SetReadDeadline(time.Time{})
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed job request: %v: %w", err, common.ErrBadRequest)
	}
	go c.watch()
	return nil
}

func (c *wsConn) watch() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.markClosed()
			return
		}
	}
}

func (c *wsConn) Send(msg model.StatusMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) Closed() <-chan struct{} {
	return c.closed
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	c.markClosed()
	return c.ws.Close()
}

func (c *wsConn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}
