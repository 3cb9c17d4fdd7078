package redis

import (
	"context"
	"fmt"
)

func (r repo) getTypingKey(roomId string) string {
	return "typing:" + roomId
}

// AddTypingUser adds the user to the room's typing set. The whole set expires
// after the typing TTL; every add refreshes it.
func (r repo) AddTypingUser(ctx context.Context, roomId, userId string) error {
	typingKey := r.getTypingKey(roomId)

	pipe := r.rc.TxPipeline()
	pipe.SAdd(ctx, typingKey, userId)
	pipe.Expire(ctx, typingKey, r.typingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add typing user: %w", err)
	}

	return nil
}

func (r repo) RemoveTypingUser(ctx context.Context, roomId, userId string) error {
	if err := r.rc.SRem(ctx, r.getTypingKey(roomId), userId).Err(); err != nil {
		return fmt.Errorf("failed to remove typing user: %w", err)
	}

	return nil
}

func (r repo) TypingUsers(ctx context.Context, roomId string) ([]string, error) {
	users, err := r.rc.SMembers(ctx, r.getTypingKey(roomId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get typing users: %w", err)
	}

	return users, nil
}
