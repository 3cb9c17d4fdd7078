package redis

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/repository/room"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRepo(rc, logger, 24*time.Hour, 10*time.Second), s
}

func TestRoomRoundTrip(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := r.GetRoom(ctx, "test")
	require.ErrorIs(t, err, room.ErrRoomNotFound)

	roomState := domain.NewRoom("test", "conn1", "https://x/v.mp4")
	roomState.TargetState.Progress = 12.5
	require.NoError(t, r.SetRoom(ctx, "test", roomState))

	got, err := r.GetRoom(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", got.Id)
	assert.Equal(t, "conn1", got.OwnerId)
	assert.Equal(t, 12.5, got.TargetState.Progress)
	assert.Equal(t, -1, got.TargetState.Playlist.CurrentIndex)
}

func TestRoomsSetTracksRooms(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetRoom(ctx, "a", domain.NewRoom("a", "c1", "u")))
	require.NoError(t, r.SetRoom(ctx, "b", domain.NewRoom("b", "c2", "u")))
	// a second write must not double-count
	require.NoError(t, r.SetRoom(ctx, "a", domain.NewRoom("a", "c1", "u")))

	count, err := r.CountRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ids, err := r.RoomIds(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, r.DeleteRoom(ctx, "a"))

	exists, err := r.RoomExists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err = r.CountRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOnlineUsersCounter(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	// missing key reads as zero
	count, err := r.CountOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = r.IncrementOnlineUsers(ctx)
	require.NoError(t, err)
	count, err = r.IncrementOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = r.DecrementOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChatStream(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, r.AddChatMessage(ctx, "test", domain.ChatMessage{
			Id:        strconv.Itoa(i),
			UserId:    "u1",
			UserName:  "alice",
			Message:   "m" + strconv.Itoa(i),
			Timestamp: int64(1000 + i),
			Type:      domain.MessageTypeMessage,
		}))
	}

	history, err := r.ChatHistory(ctx, "test", 50)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "0", history[0].Id)
	assert.Equal(t, "m3", history[3].Message)
	assert.Equal(t, int64(1003), history[3].Timestamp)
	assert.Equal(t, "alice", history[3].UserName)

	// count bounds the result to the newest messages
	history, err = r.ChatHistory(ctx, "test", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2", history[0].Id)

	// retention rides on key expiry
	assert.Positive(t, s.TTL("chat:test"))
	s.FastForward(25 * time.Hour)

	history, err = r.ChatHistory(ctx, "test", 50)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestClearChatHistory(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddChatMessage(ctx, "test", domain.ChatMessage{Id: "1"}))
	require.NoError(t, r.AddTypingUser(ctx, "test", "u1"))

	require.NoError(t, r.ClearChatHistory(ctx, "test"))

	history, err := r.ChatHistory(ctx, "test", 50)
	require.NoError(t, err)
	assert.Empty(t, history)

	typing, err := r.TypingUsers(ctx, "test")
	require.NoError(t, err)
	assert.Empty(t, typing)
}

func TestTypingExpiry(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.AddTypingUser(ctx, "test", "u1"))
	require.NoError(t, r.AddTypingUser(ctx, "test", "u2"))

	typing, err := r.TypingUsers(ctx, "test")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, typing)

	require.NoError(t, r.RemoveTypingUser(ctx, "test", "u1"))
	typing, err = r.TypingUsers(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, typing)

	s.FastForward(11 * time.Second)
	typing, err = r.TypingUsers(ctx, "test")
	require.NoError(t, err)
	assert.Empty(t, typing)
}

func TestWipe(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetRoom(ctx, "test", domain.NewRoom("test", "c1", "u")))
	_, err := r.IncrementOnlineUsers(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Wipe(ctx))

	count, err := r.CountRooms(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	users, err := r.CountOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, users)
}
