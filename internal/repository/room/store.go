package room

import (
	"context"
	"errors"

	"github.com/watchparty/server/internal/domain"
)

var ErrRoomNotFound = errors.New("room not found")

// Store is the persistence contract for room snapshots and their side-channel
// state. Room writes are idempotent full-snapshot puts; there are no
// partial-field updates at this layer. Implementations keep the room id index
// consistent with the stored keys on every put and delete.
type Store interface {
	GetRoom(ctx context.Context, roomId string) (*domain.Room, error)
	SetRoom(ctx context.Context, roomId string, room *domain.Room) error
	DeleteRoom(ctx context.Context, roomId string) error
	RoomExists(ctx context.Context, roomId string) (bool, error)
	RoomIds(ctx context.Context) ([]string, error)
	CountRooms(ctx context.Context) (int, error)

	IncrementOnlineUsers(ctx context.Context) (int, error)
	DecrementOnlineUsers(ctx context.Context) (int, error)
	CountOnlineUsers(ctx context.Context) (int, error)

	AddChatMessage(ctx context.Context, roomId string, msg domain.ChatMessage) error
	ChatHistory(ctx context.Context, roomId string, count int) ([]domain.ChatMessage, error)
	ClearChatHistory(ctx context.Context, roomId string) error

	AddTypingUser(ctx context.Context, roomId, userId string) error
	RemoveTypingUser(ctx context.Context, roomId, userId string) error
	TypingUsers(ctx context.Context, roomId string) ([]string, error)

	Wipe(ctx context.Context) error
}
