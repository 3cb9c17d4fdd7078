package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/pkg/randstr"
	"github.com/watchparty/server/pkg/wsconn"
)

var (
	// ErrRoomNotFound from a mutating operation is a consistency violation:
	// the room must have been created on join, so its absence means the join
	// invariant was broken. Callers treat it as fatal for the connection.
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

type iRoomStore interface {
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

type iConnRepo interface {
	Add(conn *wsconn.Conn, connId, roomId string) error
	RemoveByConnId(connId string) error
	GetConn(connId string) (*wsconn.Conn, error)
	RoomConns(roomId string) []*wsconn.Conn
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	// DefaultMediaUrl seeds the target state of freshly created rooms.
	DefaultMediaUrl string
	// ChatHistoryLimit caps how many messages a history request returns.
	ChatHistoryLimit int
	// MaxChatMessageLen bounds a single chat message.
	MaxChatMessageLen int
	// GenerateAttempts bounds room id uniqueness retries before falling
	// back to a longer id.
	GenerateAttempts int
}

// service mutates room state with a read-modify-write cycle against a single
// store key and no locking. Concurrent mutations of the same room race and
// the later write wins, silently discarding the earlier one; this
// last-write-wins model is accepted, not accidental.
type service struct {
	store     iRoomStore
	connRepo  iConnRepo
	generator iGenerator
	logger    *slog.Logger

	defaultMediaUrl   string
	chatHistoryLimit  int
	maxChatMessageLen int
	generateAttempts  int
}

func NewService(store iRoomStore, connRepo iConnRepo, logger *slog.Logger, cfg *Config) *service {
	s := service{
		store:             store,
		connRepo:          connRepo,
		logger:            logger,
		defaultMediaUrl:   cfg.DefaultMediaUrl,
		chatHistoryLimit:  cfg.ChatHistoryLimit,
		maxChatMessageLen: cfg.MaxChatMessageLen,
		generateAttempts:  cfg.GenerateAttempts,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
