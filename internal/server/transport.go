package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsConn adapts a gorilla WebSocket connection to Conn. Reads happen on the
// interpreter goroutine; writes are queued on send and drained by writePump.
type wsConn struct {
	conn *websocket.Conn
	addr string
	log  *zap.Logger

	mu     sync.Mutex
	send   chan string
	closed bool
	done   chan struct{}
}

func newWSConn(conn *websocket.Conn, addr string, cfg Config, log *zap.Logger) *wsConn {
	c := &wsConn{
		conn: conn,
		addr: addr,
		log:  log.With(zap.String("remote_addr", addr)),
		send: make(chan string, cfg.SendBufferSize),
		done: make(chan struct{}),
	}
	conn.SetReadLimit(cfg.MaxMessageSize)
	c.setupReadConnection()
	go c.writePump()
	return c
}

func (c *wsConn) RemoteAddr() string { return c.addr }

// setupReadConnection configures read deadlines and the pong handler.
func (c *wsConn) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadUsername reads the handshake frame, which carries the bare username.
func (c *wsConn) ReadUsername() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", c.readError(err)
	}
	return string(data), nil
}

// Receive reads and decodes the next client frame.
func (c *wsConn) Receive() (chat.Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return chat.Message{}, c.readError(err)
	}
	return chat.Decode(data)
}

// readError logs a read failure at a level matching how expected it is.
func (c *wsConn) readError(err error) error {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Info("Frame exceeded maximum size", zap.Error(err))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Peer closed connection", zap.Error(err))
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("Connection closed", zap.Error(err))
	default:
		c.log.Info("WebSocket read error", zap.Error(err))
	}
	return fmt.Errorf("read frame: %w", err)
}

// Send queues text for the write pump without blocking.
func (c *wsConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionClosed
	}
	select {
	case c.send <- text:
		return nil
	default:
		return ErrOutboundFull
	}
}

// Close stops accepting sends. Queued frames are flushed before the socket
// is closed by the write pump.
func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Wait blocks until the write pump has closed the socket or timeout elapses.
// On timeout the socket is closed directly.
func (c *wsConn) Wait(timeout time.Duration) {
	select {
	case <-c.done:
	case <-time.After(timeout):
		c.log.Warn("Write pump did not finish in time; closing socket")
		c.closeSocket()
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeSocket()
		close(c.done)
	}()

	for {
		select {
		case text, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if err := c.write(websocket.TextMessage, []byte(text)); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Info("Error writing message", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Error writing ping", zap.Error(err))
				return
			}
		}
	}
}

func (c *wsConn) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsConn) writeClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.write(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error writing close message", zap.Error(err))
	}
}

func (c *wsConn) closeSocket() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error closing connection", zap.Error(err))
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}
