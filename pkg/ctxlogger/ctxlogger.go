package ctxlogger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// ContextHandler adds slog attributes accumulated in the context via
// AppendCtx to every record it handles.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		for _, attr := range attrs {
			r.AddAttrs(attr)
		}
	}

	return h.Handler.Handle(ctx, r)
}

// AppendCtx returns a context carrying the parent's attributes plus attrs.
func AppendCtx(parent context.Context, attrs ...slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	existing, _ := parent.Value(ctxKey{}).([]slog.Attr)
	newAttrs := make([]slog.Attr, 0, len(existing)+len(attrs))
	newAttrs = append(newAttrs, existing...)
	newAttrs = append(newAttrs, attrs...)

	return context.WithValue(parent, ctxKey{}, newAttrs)
}
