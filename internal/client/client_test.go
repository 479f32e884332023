package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var clock = func() time.Time { return time.Date(2026, 10, 18, 20, 15, 42, 0, time.UTC) }

type relay struct {
	srv *server.Server
	ts  *httptest.Server
	url string
}

func startRelay(t *testing.T) *relay {
	t.Helper()

	srv := server.New(server.DefaultConfig(), nil, zaptest.NewLogger(t), server.WithClock(clock))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close(5 * time.Second)
	})
	return &relay{srv: srv, ts: ts, url: testhelpers.WebSocketURL(ts)}
}

func (r *relay) config(username string) Config {
	addr := r.ts.Listener.Addr().(*net.TCPAddr)
	return Config{Username: username, ServerAddr: addr.IP.String(), Port: addr.Port}
}

// blockingInput is stdin that never produces a line until closed.
func blockingInput(t *testing.T) io.Reader {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	return pr
}

func runAsync(ctx context.Context, c *Client) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
		return nil
	}
}

func TestClient_ChatThenLogout(t *testing.T) {
	r := startRelay(t)
	bob := testhelpers.Join(t, r.url, "bob")

	var out bytes.Buffer
	in := strings.NewReader("hello everyone\n\n/logout\nnever sent\n")
	err := New(r.config("alice"), in, &out, zaptest.NewLogger(t)).Run(context.Background())
	require.NoError(t, err)

	testhelpers.ExpectLine(t, bob, chat.JoinedLine("alice"))
	testhelpers.ExpectLine(t, bob, "(20:15:42) alice : hello everyone\n")
	testhelpers.ExpectLine(t, bob, chat.LogoutLine("alice"))

	printed := out.String()
	assert.True(t, strings.HasPrefix(printed, "Connection accepted "))
	assert.Contains(t, printed, "alice just connected.\n(20:15:42) alice : hello everyone\n")
	assert.True(t, strings.HasSuffix(printed, "Server has closed the connection\n"))
	assert.NotContains(t, printed, "never sent")
	assert.Equal(t, []string{"bob"}, r.srv.Registry().Usernames())
}

func TestClient_CommandsAndPrivateMessages(t *testing.T) {
	r := startRelay(t)
	bob := testhelpers.Join(t, r.url, "bob")

	var out bytes.Buffer
	in := strings.NewReader("/msg bob psst\n/list\n/logout\n")
	require.NoError(t, New(r.config("alice"), in, &out, nil).Run(context.Background()))

	testhelpers.ExpectLine(t, bob, chat.JoinedLine("alice"))
	testhelpers.ExpectLine(t, bob, "(20:15:42) alice -> bob : psst\n")

	printed := out.String()
	assert.Contains(t, printed, "(20:15:42) alice -> bob : psst\n")
	assert.Contains(t, printed, "\nbob\n")
}

func TestClient_EndOfInputLogsOut(t *testing.T) {
	r := startRelay(t)
	bob := testhelpers.Join(t, r.url, "bob")

	var out bytes.Buffer
	require.NoError(t, New(r.config("alice"), strings.NewReader(""), &out, nil).Run(context.Background()))

	testhelpers.ExpectLine(t, bob, chat.JoinedLine("alice"))
	testhelpers.ExpectLine(t, bob, chat.LogoutLine("alice"))
}

func TestClient_DuplicateUsername(t *testing.T) {
	r := startRelay(t)
	testhelpers.Join(t, r.url, "alice")

	var out bytes.Buffer
	err := New(r.config("alice"), blockingInput(t), &out, nil).Run(context.Background())

	require.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Contains(t, out.String(), "Your username is already in use.\n")
	assert.Equal(t, 1, r.srv.Registry().Len())
}

func TestClient_ServerShutdown(t *testing.T) {
	r := startRelay(t)
	bob := testhelpers.Join(t, r.url, "bob")

	var out bytes.Buffer
	done := runAsync(context.Background(), New(r.config("carol"), blockingInput(t), &out, nil))
	testhelpers.ExpectLine(t, bob, chat.JoinedLine("carol"))

	require.NoError(t, r.srv.Close(5*time.Second))

	require.NoError(t, waitRun(t, done))
	assert.True(t, strings.HasSuffix(out.String(), "Server has closed the connection\n"))
}

func TestClient_ContextCancelled(t *testing.T) {
	r := startRelay(t)
	bob := testhelpers.Join(t, r.url, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := runAsync(ctx, New(r.config("carol"), blockingInput(t), &out, nil))
	testhelpers.ExpectLine(t, bob, chat.JoinedLine("carol"))

	cancel()

	require.NoError(t, waitRun(t, done))
	testhelpers.ExpectLine(t, bob, chat.DroppedLine("carol"))
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := Config{Username: "alice", ServerAddr: "127.0.0.1", Port: port}
	err = New(cfg, strings.NewReader(""), io.Discard, nil).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not connect to ws://127.0.0.1:")
}
