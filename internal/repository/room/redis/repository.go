package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/repository/room"
)

const (
	roomsKey     = "rooms"
	userCountKey = "userCount"
)

type repo struct {
	rc        *redis.Client
	logger    *slog.Logger
	chatTTL   time.Duration
	typingTTL time.Duration
}

func NewRepo(rc *redis.Client, logger *slog.Logger, chatTTL, typingTTL time.Duration) *repo {
	return &repo{
		rc:        rc,
		logger:    logger,
		chatTTL:   chatTTL,
		typingTTL: typingTTL,
	}
}

// Ping reports backend reachability for the degradation wrapper.
func (r repo) Ping(ctx context.Context) error {
	return r.rc.Ping(ctx).Err()
}

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) GetRoom(ctx context.Context, roomId string) (*domain.Room, error) {
	data, err := r.rc.Get(ctx, r.getRoomKey(roomId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, room.ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var roomState domain.Room
	if err := json.Unmarshal(data, &roomState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &roomState, nil
}

func (r repo) SetRoom(ctx context.Context, roomId string, roomState *domain.Room) error {
	data, err := json.Marshal(roomState)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	r.logger.DebugContext(ctx, "set room", "room_id", roomId, "bytes", len(data))

	pipe := r.rc.TxPipeline()
	pipe.SAdd(ctx, roomsKey, roomId)
	pipe.Set(ctx, r.getRoomKey(roomId), data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) DeleteRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "delete room", "room_id", roomId)

	pipe := r.rc.TxPipeline()
	pipe.SRem(ctx, roomsKey, roomId)
	pipe.Del(ctx, r.getRoomKey(roomId))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

func (r repo) RoomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) RoomIds(ctx context.Context) ([]string, error) {
	ids, err := r.rc.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	return ids, nil
}

func (r repo) CountRooms(ctx context.Context) (int, error) {
	count, err := r.rc.SCard(ctx, roomsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	return int(count), nil
}

func (r repo) IncrementOnlineUsers(ctx context.Context) (int, error) {
	count, err := r.rc.Incr(ctx, userCountKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment user count: %w", err)
	}

	return int(count), nil
}

func (r repo) DecrementOnlineUsers(ctx context.Context) (int, error) {
	count, err := r.rc.Decr(ctx, userCountKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement user count: %w", err)
	}

	return int(count), nil
}

func (r repo) CountOnlineUsers(ctx context.Context) (int, error) {
	res, err := r.rc.Get(ctx, userCountKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	count, err := strconv.Atoi(res)
	if err != nil {
		return 0, fmt.Errorf("failed to parse user count: %w", err)
	}

	return count, nil
}

func (r repo) Wipe(ctx context.Context) error {
	if err := r.rc.FlushAll(ctx).Err(); err != nil {
		return fmt.Errorf("failed to wipe store: %w", err)
	}

	return nil
}
