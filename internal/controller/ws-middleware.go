package controller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/watchparty/server/pkg/wsconn"
	"github.com/watchparty/server/pkg/wsrouter"
)

func (c controller) loggingWSMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
		start := time.Now()
		err := next(ctx, conn, payload)
		c.logger.DebugContext(ctx, "message handled",
			"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
			"processing_time_us", time.Since(start).Microseconds(),
			"error", err,
		)

		return err
	}
}
