// Package testhelpers provides utilities shared by the relay's package tests:
// an in-memory connection for driving the interpreter directly and WebSocket
// helpers for end-to-end tests against an httptest server.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/gorilla/websocket"
)

// DefaultTimeout bounds every blocking read in the helpers.
const DefaultTimeout = 2 * time.Second

// WebSocketURL converts an httptest server URL into its /ws endpoint.
func WebSocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// ConnectWebSocket dials url, optionally presenting an Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Dial connects and sends the username handshake frame.
func Dial(t *testing.T, url, username string) *websocket.Conn {
	t.Helper()

	conn, _, err := ConnectWebSocket(url, "")
	if err != nil {
		t.Fatalf("Failed to connect %s: %v", username, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(username)); err != nil {
		t.Fatalf("Failed to send username %s: %v", username, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Join dials as username and waits until the server announces the arrival,
// so admission order across successive Join calls is deterministic.
func Join(t *testing.T, url, username string) *websocket.Conn {
	t.Helper()

	conn := Dial(t, url, username)
	ExpectLine(t, conn, chat.JoinedLine(username))
	return conn
}

// SendInput sends a typed line the way the terminal client does.
func SendInput(t *testing.T, conn *websocket.Conn, line string) {
	t.Helper()

	data, err := chat.Encode(chat.FromInput(line))
	if err != nil {
		t.Fatalf("Failed to encode %q: %v", line, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Failed to send %q: %v", line, err)
	}
}

// ReadLine reads one server frame.
func ReadLine(conn *websocket.Conn, timeout time.Duration) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	_, data, err := conn.ReadMessage()
	return string(data), err
}

// ExpectLine reads one frame and fails unless it equals want.
func ExpectLine(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()

	got, err := ReadLine(conn, DefaultTimeout)
	if err != nil {
		t.Fatalf("Expected %q, got error: %v", want, err)
	}
	if got != want {
		t.Fatalf("Expected %q, got %q", want, got)
	}
}

// ExpectNoMessage fails if any frame arrives within timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	got, err := ReadLine(conn, timeout)
	if err == nil {
		t.Fatalf("Expected no message, got %q", got)
	}
}

// CloseWebSocket sends a close frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
