// Package client implements the interactive terminal client: it joins a relay
// under a username, prints every line the server sends and forwards typed
// lines as chat or commands.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicateUsername is returned by Run when the server rejected the
// username because another participant already uses it.
var ErrDuplicateUsername = errors.New("username already in use")

const (
	handshakeTimeout = 5 * time.Second
	writeWait        = 10 * time.Second
	closeWait        = 2 * time.Second
)

// Client is one interactive session against a relay server.
type Client struct {
	cfg    Config
	in     io.Reader
	out    io.Writer
	log    *zap.Logger
	dialer *websocket.Dialer
}

// New creates a client reading typed lines from in and printing server lines
// to out.
func New(cfg Config, in io.Reader, out io.Writer, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		in:  in,
		out: out,
		log: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Run connects, sends the username and relays until the user logs out, the
// server hangs up or ctx is cancelled. End of input counts as a logout.
func (c *Client) Run(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", c.cfg.URL(), err)
	}
	defer conn.Close()

	c.log.Debug("Connected", zap.String("url", c.cfg.URL()), zap.String("username", c.cfg.Username))
	fmt.Fprintf(c.out, "Connection accepted %s\n", conn.RemoteAddr())

	if err := c.write(conn, websocket.TextMessage, []byte(c.cfg.Username)); err != nil {
		return fmt.Errorf("send username: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	lines := make(chan string)
	go c.scan(lines, stop)

	serverGone := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(serverGone)
		return c.listen(conn)
	})
	g.Go(func() error {
		defer c.hangUp(conn, serverGone)
		return c.forward(gctx, conn, lines, serverGone)
	})
	return g.Wait()
}

// listen prints server lines until the connection ends.
func (c *Client) listen(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Debug("Read ended", zap.Error(err))
			fmt.Fprintln(c.out, "Server has closed the connection")
			return nil
		}

		text := string(data)
		if text == chat.DuplicateSentinel {
			fmt.Fprintln(c.out, "Your username is already in use.")
			return ErrDuplicateUsername
		}
		fmt.Fprint(c.out, text)
	}
}

// forward sends typed lines until a logout has been sent.
func (c *Client) forward(ctx context.Context, conn *websocket.Conn, lines <-chan string, serverGone <-chan struct{}) error {
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case <-serverGone:
			return nil
		case l, ok := <-lines:
			if !ok {
				l = string(chat.CommandLogout)
			}
			line = strings.TrimRight(l, "\r")
		}
		if line == "" {
			continue
		}

		msg := chat.FromInput(line)
		if err := c.send(conn, msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		if msg.Kind == chat.KindCommand && strings.TrimSpace(msg.Body) == string(chat.CommandLogout) {
			return nil
		}
	}
}

// hangUp sends the closing CONNECTION message, then gives the server a
// moment to close its side before the socket is torn down.
func (c *Client) hangUp(conn *websocket.Conn, serverGone <-chan struct{}) {
	if err := c.send(conn, chat.Message{Kind: chat.KindConnection}); err != nil {
		c.log.Debug("Final message not sent", zap.Error(err))
	}

	select {
	case <-serverGone:
	case <-time.After(closeWait):
		c.log.Debug("Server did not close in time; closing socket")
		_ = conn.Close()
	}
}

func (c *Client) scan(lines chan<- string, stop <-chan struct{}) {
	defer close(lines)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stop:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warn("Error reading input", zap.Error(err))
	}
}

func (c *Client) send(conn *websocket.Conn, msg chat.Message) error {
	data, err := chat.Encode(msg)
	if err != nil {
		return err
	}
	return c.write(conn, websocket.TextMessage, data)
}

func (c *Client) write(conn *websocket.Conn, messageType int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}
