package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/watchparty/server/pkg/wsconn"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// WSRouter dispatches typed JSON messages read from a websocket connection to
// registered handlers. A handler returning an error terminates the
// connection's serve loop.
type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

func (r *WSRouter) wrap(handler HandlerFunc) HandlerFunc {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	return handler
}

// ServeConn reads messages until the connection drops or a handler fails.
func (r *WSRouter) ServeConn(ctx context.Context, conn *wsconn.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			conn.WriteJSON(map[string]string{"error": "unknown message type"})
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := r.wrap(handler)(msgCtx, conn, msg.Payload); err != nil {
			return err
		}
	}
}
