package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/watchparty/server/internal/domain"
	roomrepo "github.com/watchparty/server/internal/repository/room"
)

// ApplyAction is the degraded transport path: it applies a restricted subset
// of playback operations straight against the stored snapshot, with no
// fan-out. Other clients observe the change on their next poll. Unknown
// events are logged and the snapshot written back untouched, mirroring the
// persistent path's silent-rejection rule.
func (s *service) ApplyAction(ctx context.Context, params *ApplyActionParams) error {
	roomState, err := s.store.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return fmt.Errorf("failed to get room: %w", err)
	}

	switch params.Event {
	case "setPaused":
		var paused bool
		if err := json.Unmarshal(params.Data, &paused); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		roomState.TargetState.Paused = paused
		roomState.UpdateLastSync()

	case "seek":
		var progress float64
		if err := json.Unmarshal(params.Data, &progress); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		roomState.TargetState.Progress = progress
		roomState.UpdateLastSync()

	case "playUrl":
		var rawUrl string
		if err := json.Unmarshal(params.Data, &rawUrl); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if !isUrl(rawUrl) {
			s.logger.InfoContext(ctx, "ignoring malformed url", "room_id", params.RoomId, "url", rawUrl)
			break
		}
		roomState.TargetState.Playing = domain.MediaElement{
			Src: []domain.Source{{Src: rawUrl, Resolution: ""}},
			Sub: []domain.Subtitle{},
		}
		roomState.TargetState.Playlist.CurrentIndex = -1
		roomState.TargetState.Progress = 0
		roomState.UpdateLastSync()

	default:
		s.logger.InfoContext(ctx, "unhandled fallback event", "room_id", params.RoomId, "event", params.Event)
	}

	if err := s.store.SetRoom(ctx, params.RoomId, roomState); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

// GetRoomState returns the stamped snapshot for polling clients.
func (s *service) GetRoomState(ctx context.Context, roomId string) (*domain.Room, error) {
	roomState, err := s.store.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	roomState.ServerTime = time.Now().UnixMilli()

	return roomState, nil
}
