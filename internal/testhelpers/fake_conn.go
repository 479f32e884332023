package testhelpers

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
)

// ErrFakeClosed is returned by FakeConn.Send after Close.
var ErrFakeClosed = errors.New("fake connection closed")

// FakeConn is an in-memory connection driven by a test. Frames pushed with
// Push are returned by Receive in order; everything the server sends is
// recorded and can be awaited with Next.
type FakeConn struct {
	Addr string

	username string
	inbound  chan inboundFrame
	outbound chan string

	mu      sync.Mutex
	closed  bool
	sent    []string
	sendErr error
	done    chan struct{}
}

type inboundFrame struct {
	msg chat.Message
	err error
}

// NewFakeConn creates a fake whose handshake frame is username.
func NewFakeConn(username string) *FakeConn {
	return &FakeConn{
		Addr:     "fake:" + username,
		username: username,
		inbound:  make(chan inboundFrame, 64),
		outbound: make(chan string, 256),
		done:     make(chan struct{}),
	}
}

// ReadUsername returns the handshake frame.
func (c *FakeConn) ReadUsername() (string, error) {
	return c.username, nil
}

// Receive blocks for the next pushed frame, or returns io.EOF once the peer
// hung up or the connection was closed.
func (c *FakeConn) Receive() (chat.Message, error) {
	select {
	case f, ok := <-c.inbound:
		if !ok {
			return chat.Message{}, io.EOF
		}
		return f.msg, f.err
	case <-c.done:
		return chat.Message{}, io.EOF
	}
}

// Send records text unless the connection is closed or a failure was injected.
func (c *FakeConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrFakeClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, text)
	c.outbound <- text
	return nil
}

// Close marks the connection closed and unblocks Receive.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *FakeConn) RemoteAddr() string { return c.Addr }

// Push queues a message as if the peer had sent it.
func (c *FakeConn) Push(msg chat.Message) {
	c.inbound <- inboundFrame{msg: msg}
}

// PushInput queues a typed line converted the same way the client does.
func (c *FakeConn) PushInput(line string) {
	c.Push(chat.FromInput(line))
}

// PushError makes the next Receive fail with err.
func (c *FakeConn) PushError(err error) {
	c.inbound <- inboundFrame{err: err}
}

// HangUp simulates the peer disconnecting.
func (c *FakeConn) HangUp() {
	close(c.inbound)
}

// FailSends makes every later Send return err.
func (c *FakeConn) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Next waits up to timeout for the next line sent to this connection.
func (c *FakeConn) Next(timeout time.Duration) (string, bool) {
	select {
	case text := <-c.outbound:
		return text, true
	case <-time.After(timeout):
		return "", false
	}
}

// Sent returns every line sent so far.
func (c *FakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// Closed reports whether Close has been called.
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
