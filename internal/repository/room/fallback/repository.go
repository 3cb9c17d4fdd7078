// Package fallback wraps a durable room store with an in-process one. Every
// operation goes to the durable backend under a bounded timeout; any failure
// flips a health flag and the call is served from memory instead. Callers
// never see which backend answered. Fallback state is process-local, so a
// multi-replica deployment running degraded loses cross-process consistency;
// that is an accepted trade, not a bug.
package fallback

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/repository/room"
)

// Pinger reports durable-backend reachability, used for re-probing while
// degraded.
type Pinger interface {
	Ping(ctx context.Context) error
}

type repo struct {
	primary room.Store // nil when no durable backend is configured
	ping    Pinger
	memory  room.Store
	logger  *slog.Logger

	timeout       time.Duration
	probeInterval time.Duration
	healthy       atomic.Bool
	lastProbe     atomic.Int64
}

type Config struct {
	// Timeout bounds every call against the durable backend. No store
	// operation may hang past it.
	Timeout time.Duration
	// ProbeInterval limits how often a degraded repo re-checks the backend.
	ProbeInterval time.Duration
}

// NewRepo builds the wrapper. primary may be nil for a memory-only
// deployment; ping must belong to the same backend as primary.
func NewRepo(primary room.Store, ping Pinger, memory room.Store, logger *slog.Logger, cfg *Config) *repo {
	r := &repo{
		primary:       primary,
		ping:          ping,
		memory:        memory,
		logger:        logger,
		timeout:       cfg.Timeout,
		probeInterval: cfg.ProbeInterval,
	}
	r.healthy.Store(primary != nil)

	return r
}

// Healthy reports whether the durable backend served the last operation.
func (r *repo) Healthy() bool {
	return r.healthy.Load()
}

// BackendKind names the backend currently in use.
func (r *repo) BackendKind() string {
	if r.healthy.Load() {
		return "durable"
	}

	return "memory"
}

func (r *repo) usePrimary(ctx context.Context) bool {
	if r.primary == nil {
		return false
	}
	if r.healthy.Load() {
		return true
	}

	// Degraded: probe at most once per interval.
	now := time.Now().UnixNano()
	last := r.lastProbe.Load()
	if now-last < r.probeInterval.Nanoseconds() {
		return false
	}
	if !r.lastProbe.CompareAndSwap(last, now) {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.ping.Ping(probeCtx); err != nil {
		return false
	}

	r.healthy.Store(true)
	r.logger.InfoContext(ctx, "durable store is reachable again")

	return true
}

func (r *repo) degrade(ctx context.Context, op string, err error) {
	if r.healthy.CompareAndSwap(true, false) {
		r.lastProbe.Store(time.Now().UnixNano())
	}
	r.logger.WarnContext(ctx, "durable store unavailable, falling back to memory", "op", op, "error", err)
}

// passthrough reports errors the domain defines, which must reach the caller
// instead of triggering degradation.
func passthrough(err error) bool {
	return errors.Is(err, room.ErrRoomNotFound)
}

func (r *repo) GetRoom(ctx context.Context, roomId string) (*domain.Room, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		roomState, err := r.primary.GetRoom(opCtx, roomId)
		cancel()
		if err == nil || passthrough(err) {
			return roomState, err
		}
		r.degrade(ctx, "get room", err)
	}

	return r.memory.GetRoom(ctx, roomId)
}

func (r *repo) SetRoom(ctx context.Context, roomId string, roomState *domain.Room) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.SetRoom(opCtx, roomId, roomState)
		cancel()
		if err == nil {
			return nil
		}
		r.degrade(ctx, "set room", err)
	}

	return r.memory.SetRoom(ctx, roomId, roomState)
}

func (r *repo) DeleteRoom(ctx context.Context, roomId string) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.DeleteRoom(opCtx, roomId)
		cancel()
		if err == nil {
			return nil
		}
		r.degrade(ctx, "delete room", err)
	}

	return r.memory.DeleteRoom(ctx, roomId)
}

func (r *repo) RoomExists(ctx context.Context, roomId string) (bool, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		exists, err := r.primary.RoomExists(opCtx, roomId)
		cancel()
		if err == nil {
			return exists, nil
		}
		r.degrade(ctx, "room exists", err)
	}

	return r.memory.RoomExists(ctx, roomId)
}

func (r *repo) RoomIds(ctx context.Context) ([]string, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		ids, err := r.primary.RoomIds(opCtx)
		cancel()
		if err == nil {
			return ids, nil
		}
		r.degrade(ctx, "room ids", err)
	}

	return r.memory.RoomIds(ctx)
}

func (r *repo) CountRooms(ctx context.Context) (int, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		count, err := r.primary.CountRooms(opCtx)
		cancel()
		if err == nil {
			return count, nil
		}
		r.degrade(ctx, "count rooms", err)
	}

	return r.memory.CountRooms(ctx)
}

func (r *repo) IncrementOnlineUsers(ctx context.Context) (int, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		count, err := r.primary.IncrementOnlineUsers(opCtx)
		cancel()
		if err == nil {
			return count, nil
		}
		r.degrade(ctx, "increment online users", err)
	}

	return r.memory.IncrementOnlineUsers(ctx)
}

func (r *repo) DecrementOnlineUsers(ctx context.Context) (int, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		count, err := r.primary.DecrementOnlineUsers(opCtx)
		cancel()
		if err == nil {
			return count, nil
		}
		r.degrade(ctx, "decrement online users", err)
	}

	return r.memory.DecrementOnlineUsers(ctx)
}

func (r *repo) CountOnlineUsers(ctx context.Context) (int, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		count, err := r.primary.CountOnlineUsers(opCtx)
		cancel()
		if err == nil {
			return count, nil
		}
		r.degrade(ctx, "count online users", err)
	}

	return r.memory.CountOnlineUsers(ctx)
}

func (r *repo) AddChatMessage(ctx context.Context, roomId string, msg domain.ChatMessage) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.AddChatMessage(opCtx, roomId, msg)
		cancel()
		if err == nil {
			return nil
		}
		r.degrade(ctx, "add chat message", err)
	}

	return r.memory.AddChatMessage(ctx, roomId, msg)
}

func (r *repo) ChatHistory(ctx context.Context, roomId string, count int) ([]domain.ChatMessage, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		messages, err := r.primary.ChatHistory(opCtx, roomId, count)
		cancel()
		if err == nil {
			return messages, nil
		}
		r.degrade(ctx, "chat history", err)
	}

	return r.memory.ChatHistory(ctx, roomId, count)
}

func (r *repo) ClearChatHistory(ctx context.Context, roomId string) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.ClearChatHistory(opCtx, roomId)
		cancel()
		if err == nil {
			return nil
		}
		r.degrade(ctx, "clear chat history", err)
	}

	return r.memory.ClearChatHistory(ctx, roomId)
}

func (r *repo) AddTypingUser(ctx context.Context, roomId, userId string) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.AddTypingUser(opCtx, roomId, userId)
		cancel()
		if err == nil {
			return nil
		}
		r.degrade(ctx, "add typing user", err)
	}

	return r.memory.AddTypingUser(ctx, roomId, userId)
}

func (r *repo) RemoveTypingUser(ctx context.Context, roomId, userId string) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.RemoveTypingUser(opCtx, roomId, userId)
		cancel()
		if err == nil {
			return nil
		}
		r.degrade(ctx, "remove typing user", err)
	}

	return r.memory.RemoveTypingUser(ctx, roomId, userId)
}

func (r *repo) TypingUsers(ctx context.Context, roomId string) ([]string, error) {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		users, err := r.primary.TypingUsers(opCtx, roomId)
		cancel()
		if err == nil {
			return users, nil
		}
		r.degrade(ctx, "typing users", err)
	}

	return r.memory.TypingUsers(ctx, roomId)
}

func (r *repo) Wipe(ctx context.Context) error {
	if r.usePrimary(ctx) {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.primary.Wipe(opCtx)
		cancel()
		if err != nil {
			r.degrade(ctx, "wipe", err)
		}
	}

	// Memory state is wiped unconditionally so both backends start clean.
	return r.memory.Wipe(ctx)
}
