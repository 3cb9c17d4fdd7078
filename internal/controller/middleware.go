package controller

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/watchparty/server/pkg/ctxlogger"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", uuid.NewString()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) loggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.DebugContext(r.Context(), "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"processing_time_ms", time.Since(start).Milliseconds(),
		)
	})
}
