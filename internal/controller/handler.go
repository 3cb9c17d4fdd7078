package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/watchparty/server/internal/service/room"
	"github.com/watchparty/server/pkg/ctxlogger"
	"github.com/watchparty/server/pkg/wsconn"
)

// handleWS upgrades the request, joins the room and serves the connection's
// message loop until it drops or a handler reports a fatal error.
func (c controller) handleWS(w http.ResponseWriter, r *http.Request) {
	roomId := strings.ToLower(r.URL.Query().Get("roomId"))
	if roomId == "" || !c.validate.Var(roomId, "alphanum") {
		c.logger.InfoContext(r.Context(), "rejected ws request with malformed room id", "room_id", roomId)
		http.Error(w, "malformed room id", http.StatusBadRequest)
		return
	}

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	// Broadcasts to this conn come from every room member's serve loop; the
	// wrapper serializes those writers.
	conn := wsconn.New(ws)
	connId := uuid.NewString()

	ctx := ctxlogger.AppendCtx(r.Context(),
		slog.String("room_id", roomId),
		slog.String("conn_id", connId),
	)
	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, connIdCtxKey, connId)

	joinResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId: roomId,
		ConnId: connId,
		Conn:   conn,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to join room", "error", err)
		conn.Close()
		return
	}

	c.logger.InfoContext(ctx, "user joined", "user_name", joinResp.JoinedUser.Name)

	// The request context dies with the handler; disconnect still has store
	// work to do after the serve loop returns.
	defer c.disconnect(context.WithoutCancel(ctx), roomId, connId)

	c.broadcast(ctx, joinResp.Conns, &Output{Type: "chatMessage", Payload: joinResp.JoinMessage})
	c.broadcast(ctx, joinResp.Conns, &Output{Type: "update", Payload: joinResp.Room})

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "connection closed", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, roomId, connId string) {
	resp, err := c.roomService.Disconnect(ctx, &room.DisconnectParams{
		RoomId: roomId,
		ConnId: connId,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect", "error", err)
		return
	}

	if resp.IsRoomDeleted {
		c.logger.InfoContext(ctx, "room deleted")
		return
	}

	if resp.LeaveMessage != nil {
		c.broadcast(ctx, resp.Conns, &Output{Type: "chatMessage", Payload: resp.LeaveMessage})
	}
	if resp.Room != nil {
		c.broadcast(ctx, resp.Conns, &Output{Type: "update", Payload: resp.Room})
	}
}
