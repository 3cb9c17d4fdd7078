package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/watchparty/server/internal/domain"
)

func (r repo) getChatKey(roomId string) string {
	return "chat:" + roomId
}

// AddChatMessage appends to the room's stream. Retention is the backend's
// key expiry, refreshed on every append.
func (r repo) AddChatMessage(ctx context.Context, roomId string, msg domain.ChatMessage) error {
	chatKey := r.getChatKey(roomId)

	pipe := r.rc.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: chatKey,
		Values: map[string]any{
			"id":        msg.Id,
			"userId":    msg.UserId,
			"userName":  msg.UserName,
			"message":   msg.Message,
			"timestamp": strconv.FormatInt(msg.Timestamp, 10),
			"type":      msg.Type,
		},
	})
	pipe.Expire(ctx, chatKey, r.chatTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add chat message: %w", err)
	}

	return nil
}

// ChatHistory returns the most recent count messages in chronological order.
func (r repo) ChatHistory(ctx context.Context, roomId string, count int) ([]domain.ChatMessage, error) {
	entries, err := r.rc.XRevRangeN(ctx, r.getChatKey(roomId), "+", "-", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		messages = append(messages, chatMessageFromStream(entries[i].Values))
	}

	return messages, nil
}

func (r repo) ClearChatHistory(ctx context.Context, roomId string) error {
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getChatKey(roomId))
	pipe.Del(ctx, r.getTypingKey(roomId))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}

	return nil
}

func chatMessageFromStream(values map[string]any) domain.ChatMessage {
	msg := domain.ChatMessage{
		Id:       stringField(values, "id"),
		UserId:   stringField(values, "userId"),
		UserName: stringField(values, "userName"),
		Message:  stringField(values, "message"),
		Type:     stringField(values, "type"),
	}
	msg.Timestamp, _ = strconv.ParseInt(stringField(values, "timestamp"), 10, 64)

	return msg
}

func stringField(values map[string]any, key string) string {
	s, _ := values[key].(string)
	return s
}
