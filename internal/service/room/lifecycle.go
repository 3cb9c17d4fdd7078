package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/repository/connection"
	roomrepo "github.com/watchparty/server/internal/repository/room"
)

// JoinRoom attaches a connection to a room, creating the room on first join
// with the default target state and the joining connection as owner. The
// caller broadcasts the join message and the updated snapshot to the
// returned conns.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	exists, err := s.store.RoomExists(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		roomState := domain.NewRoom(params.RoomId, params.ConnId, s.defaultMediaUrl)
		if err := s.store.SetRoom(ctx, params.RoomId, roomState); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}
		s.logger.InfoContext(ctx, "created room", "room_id", params.RoomId)
	}

	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	// The conn registers before any room state changes so a rejected
	// connection leaves no trace in the snapshot.
	if err := s.connRepo.Add(params.Conn, params.ConnId, params.RoomId); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add connection: %w", err)
	}

	user := s.newUser(params.ConnId)
	roomState.Users = append(roomState.Users, user)

	joinMessage := systemMessage(domain.MessageTypeJoin, &user, user.Name+" joined the room")
	if err := s.store.AddChatMessage(ctx, params.RoomId, joinMessage); err != nil {
		s.connRepo.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, fmt.Errorf("failed to add chat message: %w", err)
	}

	resp, err := s.saveAndBroadcast(ctx, roomState)
	if err != nil {
		s.connRepo.RemoveByConnId(params.ConnId)
		return JoinRoomResponse{}, err
	}

	// The counter moves only after the join committed; Disconnect decrements
	// it for committed joins alone. Counting is stats-only, so a failed bump
	// must not undo the join.
	if _, err := s.store.IncrementOnlineUsers(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to increment online users", "error", err)
	}

	return JoinRoomResponse{
		Room:        resp.Room,
		JoinedUser:  user,
		JoinMessage: joinMessage,
		Conns:       resp.Conns,
	}, nil
}

// Disconnect detaches a connection. The last user leaving deletes the room
// and its chat history; a departing owner hands the room to the first
// remaining user.
func (s *service) Disconnect(ctx context.Context, params *DisconnectParams) (DisconnectResponse, error) {
	if _, err := s.store.DecrementOnlineUsers(ctx); err != nil {
		return DisconnectResponse{}, fmt.Errorf("failed to decrement online users: %w", err)
	}

	if err := s.connRepo.RemoveByConnId(params.ConnId); err != nil && !errors.Is(err, connection.ErrNotFound) {
		return DisconnectResponse{}, fmt.Errorf("failed to remove connection: %w", err)
	}

	roomState, err := s.store.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return DisconnectResponse{}, nil
		}

		return DisconnectResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	leaving := roomState.RemoveUserByConnectionId(params.ConnId)

	var leaveMessage *domain.ChatMessage
	if leaving != nil {
		msg := systemMessage(domain.MessageTypeLeave, leaving, leaving.Name+" left the room")
		if err := s.store.AddChatMessage(ctx, params.RoomId, msg); err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to add chat message: %w", err)
		}
		if err := s.store.RemoveTypingUser(ctx, params.RoomId, leaving.Uid); err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to remove typing user: %w", err)
		}
		leaveMessage = &msg
	}

	if len(roomState.Users) == 0 {
		if err := s.store.DeleteRoom(ctx, params.RoomId); err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to delete room: %w", err)
		}
		if err := s.store.ClearChatHistory(ctx, params.RoomId); err != nil {
			return DisconnectResponse{}, fmt.Errorf("failed to clear chat history: %w", err)
		}
		s.logger.InfoContext(ctx, "deleted empty room and chat history", "room_id", params.RoomId)

		return DisconnectResponse{LeaveMessage: leaveMessage, IsRoomDeleted: true}, nil
	}

	if roomState.OwnerId == params.ConnId {
		roomState.OwnerId = roomState.Users[0].Uid
		s.logger.InfoContext(ctx, "transferred room ownership",
			"room_id", params.RoomId,
			"new_owner_id", roomState.OwnerId,
		)
	}

	resp, err := s.saveAndBroadcast(ctx, roomState)
	if err != nil {
		return DisconnectResponse{}, err
	}

	return DisconnectResponse{
		Room:         resp.Room,
		LeaveMessage: leaveMessage,
		Conns:        resp.Conns,
	}, nil
}
