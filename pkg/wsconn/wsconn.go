// Package wsconn wraps a websocket connection with a write lock. A
// connection's reads all happen on its own serve loop, but writes fan out
// from every room member's loop during a broadcast and must not interleave.
package wsconn

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn serializes writers. gorilla/websocket supports one concurrent reader
// and one concurrent writer, so the read side needs no lock.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
