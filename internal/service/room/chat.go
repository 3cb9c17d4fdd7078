package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/watchparty/server/internal/domain"
	roomrepo "github.com/watchparty/server/internal/repository/room"
)

// SendChatMessage appends a user message to the room's chat stream. The text
// is trimmed and size-bounded; empty or oversized input is dropped.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	user := roomState.UserByConnectionId(params.ConnId)
	if user == nil {
		s.logger.InfoContext(ctx, "chat message from unknown user",
			"room_id", params.RoomId,
			"conn_id", params.ConnId,
		)
		return SendChatMessageResponse{}, nil
	}

	text := strings.TrimSpace(params.Message)
	if text == "" || len(text) > s.maxChatMessageLen {
		s.logger.InfoContext(ctx, "rejecting chat message",
			"room_id", params.RoomId,
			"length", len(text),
		)
		return SendChatMessageResponse{}, nil
	}

	msg := domain.ChatMessage{
		Id:        uuid.NewString(),
		UserId:    user.Uid,
		UserName:  user.Name,
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
		Type:      domain.MessageTypeMessage,
	}
	if err := s.store.AddChatMessage(ctx, params.RoomId, msg); err != nil {
		return SendChatMessageResponse{}, fmt.Errorf("failed to add chat message: %w", err)
	}

	return SendChatMessageResponse{
		Message: &msg,
		Conns:   s.connRepo.RoomConns(params.RoomId),
	}, nil
}

// ChatHistory returns the retained messages, oldest first.
func (s *service) ChatHistory(ctx context.Context, roomId string) ([]domain.ChatMessage, error) {
	messages, err := s.store.ChatHistory(ctx, roomId, s.chatHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}

	return messages, nil
}

// SetTyping refreshes or clears the user's typing-presence entry. The
// announcement goes to every member but the sender. A missing room is not a
// violation here; typing signals can trail a disconnect.
func (s *service) SetTyping(ctx context.Context, params *SetTypingParams) (SetTypingResponse, error) {
	roomState, err := s.store.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return SetTypingResponse{}, nil
		}

		return SetTypingResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	user := roomState.UserByConnectionId(params.ConnId)
	if user == nil {
		return SetTypingResponse{}, nil
	}

	if params.IsTyping {
		err = s.store.AddTypingUser(ctx, params.RoomId, user.Uid)
	} else {
		err = s.store.RemoveTypingUser(ctx, params.RoomId, user.Uid)
	}
	if err != nil {
		return SetTypingResponse{}, fmt.Errorf("failed to update typing presence: %w", err)
	}

	sender, err := s.connRepo.GetConn(params.ConnId)
	if err != nil {
		sender = nil
	}

	return SetTypingResponse{
		UserId:   user.Uid,
		UserName: user.Name,
		IsTyping: params.IsTyping,
		Conns:    s.roomConnsExcept(params.RoomId, sender),
	}, nil
}

// TypingUsers lists the user ids currently marked as typing.
func (s *service) TypingUsers(ctx context.Context, roomId string) ([]string, error) {
	return s.store.TypingUsers(ctx, roomId)
}
