package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/repository/room"
)

// repo is the process-local fallback store. Values are kept JSON-encoded so
// readers never alias a writer's snapshot. State held here is only valid for
// the lifetime of this process and is not shared across replicas.
type repo struct {
	mu        sync.RWMutex
	rooms     map[string][]byte
	roomIds   map[string]struct{}
	userCount int
	chat      map[string][]domain.ChatMessage
	typing    map[string]map[string]time.Time
	chatLimit int
	typingTTL time.Duration
	logger    *slog.Logger

	// now is swappable so expiry is testable without wall-clock waits.
	now func() time.Time
}

func NewRepo(logger *slog.Logger, chatLimit int, typingTTL time.Duration) *repo {
	return &repo{
		rooms:     make(map[string][]byte),
		roomIds:   make(map[string]struct{}),
		chat:      make(map[string][]domain.ChatMessage),
		typing:    make(map[string]map[string]time.Time),
		chatLimit: chatLimit,
		typingTTL: typingTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (r *repo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *repo) GetRoom(_ context.Context, roomId string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	var roomState domain.Room
	if err := json.Unmarshal(data, &roomState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &roomState, nil
}

func (r *repo) SetRoom(_ context.Context, roomId string, roomState *domain.Room) error {
	data, err := json.Marshal(roomState)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms[roomId] = data
	r.roomIds[roomId] = struct{}{}

	return nil
}

func (r *repo) DeleteRoom(_ context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, roomId)
	delete(r.roomIds, roomId)

	return nil
}

func (r *repo) RoomExists(_ context.Context, roomId string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomId]

	return ok, nil
}

func (r *repo) RoomIds(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.roomIds))
	for id := range r.roomIds {
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *repo) CountRooms(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.roomIds), nil
}

func (r *repo) IncrementOnlineUsers(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userCount++

	return r.userCount, nil
}

func (r *repo) DecrementOnlineUsers(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userCount > 0 {
		r.userCount--
	}

	return r.userCount, nil
}

func (r *repo) CountOnlineUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.userCount, nil
}

func (r *repo) AddChatMessage(_ context.Context, roomId string, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := append(r.chat[roomId], msg)
	if len(messages) > r.chatLimit {
		messages = messages[len(messages)-r.chatLimit:]
	}
	r.chat[roomId] = messages

	return nil
}

func (r *repo) ChatHistory(_ context.Context, roomId string, count int) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := r.chat[roomId]
	if len(messages) > count {
		messages = messages[len(messages)-count:]
	}

	out := make([]domain.ChatMessage, len(messages))
	copy(out, messages)

	return out, nil
}

func (r *repo) ClearChatHistory(_ context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.chat, roomId)
	delete(r.typing, roomId)

	return nil
}

// AddTypingUser records the user with an absolute deadline. Expiry is
// enforced on every access instead of with timers, so entries outlive
// nothing and tests control the clock.
func (r *repo) AddTypingUser(_ context.Context, roomId, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.typing[roomId]
	if !ok {
		set = make(map[string]time.Time)
		r.typing[roomId] = set
	}
	set[userId] = r.now().Add(r.typingTTL)

	return nil
}

func (r *repo) RemoveTypingUser(_ context.Context, roomId, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.typing[roomId]; ok {
		delete(set, userId)
		if len(set) == 0 {
			delete(r.typing, roomId)
		}
	}

	return nil
}

func (r *repo) TypingUsers(_ context.Context, roomId string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.typing[roomId]
	now := r.now()
	users := make([]string, 0, len(set))
	for userId, deadline := range set {
		if now.After(deadline) {
			delete(set, userId)
			continue
		}
		users = append(users, userId)
	}
	if len(set) == 0 {
		delete(r.typing, roomId)
	}

	return users, nil
}

func (r *repo) Wipe(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rooms = make(map[string][]byte)
	r.roomIds = make(map[string]struct{})
	r.chat = make(map[string][]domain.ChatMessage)
	r.typing = make(map[string]map[string]time.Time)
	r.userCount = 0

	r.logger.Debug("wiped in-memory store")

	return nil
}
