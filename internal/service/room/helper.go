package room

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"time"

	"github.com/goombaio/namegenerator"

	"github.com/watchparty/server/internal/domain"
	roomrepo "github.com/watchparty/server/internal/repository/room"
	"github.com/watchparty/server/pkg/wsconn"
)

const avatarUrlTemplate = "https://api.dicebear.com/7.x/avataaars/svg?seed=%s"

// mustGetRoom loads a room that a mutating operation requires to exist.
// Absence is reported as ErrRoomNotFound, the fatal consistency violation.
func (s *service) mustGetRoom(ctx context.Context, roomId string) (*domain.Room, error) {
	roomState, err := s.store.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomId)
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return roomState, nil
}

// saveAndBroadcast persists the snapshot, stamps the server time and pairs it
// with the room's current broadcast group. Delivery is the caller's concern.
func (s *service) saveAndBroadcast(ctx context.Context, roomState *domain.Room) (BroadcastResponse, error) {
	if err := s.store.SetRoom(ctx, roomState.Id, roomState); err != nil {
		return BroadcastResponse{}, fmt.Errorf("failed to set room: %w", err)
	}

	roomState.ServerTime = time.Now().UnixMilli()

	return BroadcastResponse{
		Room:  roomState,
		Conns: s.connRepo.RoomConns(roomState.Id),
	}, nil
}

func (s *service) roomConnsExcept(roomId string, exclude *wsconn.Conn) []*wsconn.Conn {
	all := s.connRepo.RoomConns(roomId)
	conns := make([]*wsconn.Conn, 0, len(all))
	for _, conn := range all {
		if conn != exclude {
			conns = append(conns, conn)
		}
	}

	return conns
}

// newUser builds the user state for a fresh connection. The display name and
// avatar derive deterministically from the connection id.
func (s *service) newUser(connId string) domain.UserState {
	return domain.UserState{
		Uid:           connId,
		Name:          displayName(connId),
		Avatar:        fmt.Sprintf(avatarUrlTemplate, connId),
		ConnectionIds: []string{connId},
		Player: domain.UserPlayer{
			Progress:     0,
			Paused:       true,
			PlaybackRate: 1,
		},
	}
}

func displayName(uid string) string {
	h := fnv.New64a()
	h.Write([]byte(uid))

	return namegenerator.NewNameGenerator(int64(h.Sum64())).Generate()
}

func systemMessage(msgType string, user *domain.UserState, text string) domain.ChatMessage {
	return domain.ChatMessage{
		Id:        fmt.Sprintf("%s-%d-%s", msgType, time.Now().UnixMilli(), user.Uid),
		UserId:    user.Uid,
		UserName:  user.Name,
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
		Type:      msgType,
	}
}

func isUrl(s string) bool {
	u, err := url.Parse(s)

	return err == nil && u.Scheme != "" && u.Host != ""
}
