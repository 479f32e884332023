// Package server implements the relay's session registry, message router and
// command interpreter, together with the WebSocket transport and HTTP surface
// that feed them.
//
// Every connection runs one interpreter goroutine (handshake then read loop)
// and one write pump. Shared membership lives in a single Registry guarded by
// one lock; the Router takes the same lock for every delivery.
package server
