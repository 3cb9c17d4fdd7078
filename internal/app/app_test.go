package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchparty/server/internal/domain"
	connectioninmemory "github.com/watchparty/server/internal/repository/connection/inmemory"
	"github.com/watchparty/server/internal/repository/room/fallback"
	roominmemory "github.com/watchparty/server/internal/repository/room/inmemory"
	roomredis "github.com/watchparty/server/internal/repository/room/redis"
	"github.com/watchparty/server/internal/service/room"
	"github.com/watchparty/server/pkg/wsconn"
)

// TestRoomSession walks a full session against the real wiring: redis-backed
// store behind the fallback wrapper, two users, playback, chat, disconnects.
func TestRoomSession(t *testing.T) {
	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.Default()
	durable := roomredis.NewRepo(rc, logger, chatTTL, typingTTL)
	memory := roominmemory.NewRepo(logger, 50, typingTTL)
	store := fallback.NewRepo(durable, durable, memory, logger, &fallback.Config{
		Timeout:       time.Second,
		ProbeInterval: probeInterval,
	})
	connRepo := connectioninmemory.NewRepo()
	service := room.NewService(store, connRepo, logger, &room.Config{
		DefaultMediaUrl:   "https://cdn.example.com/default.mp4",
		ChatHistoryLimit:  50,
		MaxChatMessageLen: maxChatMessageLen,
		GenerateAttempts:  generateAttempts,
	})

	ctx := context.Background()

	// user 1 joins a fresh room
	joinResp1, err := service.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId: "test",
		ConnId: "conn1",
		Conn:   wsconn.New(&websocket.Conn{}),
	})
	require.NoError(t, err)
	assert.Equal(t, "conn1", joinResp1.Room.OwnerId)
	assert.Len(t, joinResp1.Room.Users, 1)
	assert.Equal(t, domain.MessageTypeJoin, joinResp1.JoinMessage.Type)
	t.Log("room created")

	// user 2 joins the same room
	joinResp2, err := service.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId: "test",
		ConnId: "conn2",
		Conn:   wsconn.New(&websocket.Conn{}),
	})
	require.NoError(t, err)
	assert.Equal(t, "conn1", joinResp2.Room.OwnerId, "owner must not change on later joins")
	assert.Len(t, joinResp2.Room.Users, 2)
	assert.Len(t, joinResp2.Conns, 2)
	t.Log("second user joined")

	// playback mutations
	playResp, err := service.PlayUrl(ctx, &room.PlayUrlParams{RoomId: "test", Url: "https://x/video.mp4"})
	require.NoError(t, err)
	require.NotNil(t, playResp.Room)
	assert.Equal(t, "https://x/video.mp4", playResp.Room.TargetState.Playing.Src[0].Src)

	pausedResp, err := service.SetPaused(ctx, &room.SetPausedParams{RoomId: "test", Paused: false})
	require.NoError(t, err)
	assert.False(t, pausedResp.Room.TargetState.Paused)

	// chat
	chatResp, err := service.SendChatMessage(ctx, &room.SendChatMessageParams{
		RoomId:  "test",
		ConnId:  "conn2",
		Message: "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, chatResp.Message)
	assert.Len(t, chatResp.Conns, 2)

	history, err := service.ChatHistory(ctx, "test")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hello", history[2].Message)
	t.Log("chat verified")

	// owner leaves, ownership moves to user 2
	discResp, err := service.Disconnect(ctx, &room.DisconnectParams{RoomId: "test", ConnId: "conn1"})
	require.NoError(t, err)
	assert.False(t, discResp.IsRoomDeleted)
	assert.Equal(t, "conn2", discResp.Room.OwnerId)

	// last user leaves, room and chat are gone
	discResp, err = service.Disconnect(ctx, &room.DisconnectParams{RoomId: "test", ConnId: "conn2"})
	require.NoError(t, err)
	assert.True(t, discResp.IsRoomDeleted)

	roomState, err := service.Fetch(ctx, "test")
	require.NoError(t, err)
	assert.Nil(t, roomState)

	t.Log(rc.Keys(ctx, "*").Val())
}
