package controller

import (
	"context"

	"github.com/watchparty/server/pkg/wsconn"
)

// Output is the envelope for every server-to-client websocket message.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) writeToConn(ctx context.Context, conn *wsconn.Conn, out *Output) error {
	if err := conn.WriteJSON(out); err != nil {
		c.logger.InfoContext(ctx, "failed to write to conn", "error", err)
		conn.Close()
		return err
	}

	return nil
}

// broadcast is best-effort. A failed write closes the dead connection; its own
// serve loop then observes the close and runs the usual disconnect path.
func (c controller) broadcast(ctx context.Context, conns []*wsconn.Conn, out *Output) {
	for _, conn := range conns {
		if err := conn.WriteJSON(out); err != nil {
			c.logger.InfoContext(ctx, "failed to broadcast to conn", "error", err)
			conn.Close()
		}
	}
}
