package room

import (
	"context"
	"fmt"

	"github.com/watchparty/server/internal/domain"
)

// RoomSnapshots loads every stored room. Rooms that vanish between the index
// read and the fetch are skipped.
func (s *service) RoomSnapshots(ctx context.Context) ([]*domain.Room, error) {
	ids, err := s.store.RoomIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*domain.Room, 0, len(ids))
	for _, id := range ids {
		roomState, err := s.store.GetRoom(ctx, id)
		if err != nil {
			continue
		}
		rooms = append(rooms, roomState)
	}

	return rooms, nil
}

// GetStats returns room and online-user counts. Failures degrade to zero
// counts instead of errors; the stats surface must never break a session.
func (s *service) GetStats(ctx context.Context) Stats {
	rooms, err := s.store.CountRooms(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count rooms", "error", err)
	}
	users, err := s.store.CountOnlineUsers(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count online users", "error", err)
	}

	return Stats{Rooms: rooms, Users: users}
}

func (s *service) Wipe(ctx context.Context) error {
	return s.store.Wipe(ctx)
}

// GenerateRoomId picks an unused id whose length follows the current room
// count: 4 characters below 2000 rooms, 5 below 20000, 6 beyond. After a
// bounded number of collisions it falls back to one extra character instead
// of looping forever.
func (s *service) GenerateRoomId(ctx context.Context) (string, error) {
	count, err := s.store.CountRooms(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count rooms: %w", err)
	}

	length := 4
	switch {
	case count >= 20000:
		length = 6
	case count >= 2000:
		length = 5
	}

	for attempt := 0; attempt < s.generateAttempts; attempt++ {
		roomId := s.generator.GenerateRandomString(length)
		exists, err := s.store.RoomExists(ctx, roomId)
		if err != nil {
			return "", fmt.Errorf("failed to check if room exists: %w", err)
		}
		if !exists {
			return roomId, nil
		}
	}

	return s.generator.GenerateRandomString(length + 1), nil
}
