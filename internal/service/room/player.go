package room

import (
	"context"
	"errors"
	"time"

	"github.com/watchparty/server/internal/domain"
	roomrepo "github.com/watchparty/server/internal/repository/room"
)

func (s *service) SetPaused(ctx context.Context, params *SetPausedParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	roomState.TargetState.Paused = params.Paused
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

func (s *service) SetLoop(ctx context.Context, params *SetLoopParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	roomState.TargetState.Loop = params.Loop
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

func (s *service) SetPlaybackRate(ctx context.Context, params *SetPlaybackRateParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	if params.PlaybackRate <= 0 {
		s.logger.InfoContext(ctx, "ignoring non-positive playback rate",
			"room_id", params.RoomId,
			"playback_rate", params.PlaybackRate,
		)
		return BroadcastResponse{}, nil
	}

	roomState.TargetState.PlaybackRate = params.PlaybackRate
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

// SetProgress records the reporting user's own playback position. It never
// touches the authoritative target state; playEnded reads it as a last
// resort, nothing else does.
func (s *service) SetProgress(ctx context.Context, params *SetProgressParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	user := roomState.UserByConnectionId(params.ConnId)
	if user == nil {
		s.logger.InfoContext(ctx, "progress report from unknown user",
			"room_id", params.RoomId,
			"conn_id", params.ConnId,
		)
		return BroadcastResponse{}, nil
	}
	user.Player.Progress = params.Progress

	return s.saveAndBroadcast(ctx, roomState)
}

// Seek sets the authoritative progress and forces a resync.
func (s *service) Seek(ctx context.Context, params *SeekParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	roomState.TargetState.Progress = params.Progress
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

// PlayUrl replaces the playing media with a single-source element. A
// malformed url is ignored without an error; the client gave us garbage and
// there is nothing useful to tell the room.
func (s *service) PlayUrl(ctx context.Context, params *PlayUrlParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	if !isUrl(params.Url) {
		s.logger.InfoContext(ctx, "ignoring malformed url", "room_id", params.RoomId, "url", params.Url)
		return BroadcastResponse{}, nil
	}

	roomState.TargetState.Playing = domain.MediaElement{
		Src: []domain.Source{{Src: params.Url, Resolution: ""}},
		Sub: []domain.Subtitle{},
	}
	roomState.TargetState.Playlist.CurrentIndex = -1
	roomState.TargetState.Progress = 0
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

func (s *service) PlayItemFromPlaylist(ctx context.Context, params *PlayItemFromPlaylistParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	playlist := &roomState.TargetState.Playlist
	if params.Index < 0 || params.Index >= len(playlist.Items) {
		s.logger.InfoContext(ctx, "playlist index out of range",
			"room_id", params.RoomId,
			"index", params.Index,
			"playlist_length", len(playlist.Items),
		)
		return BroadcastResponse{}, nil
	}

	roomState.TargetState.Playing = playlist.Items[params.Index]
	playlist.CurrentIndex = params.Index
	roomState.TargetState.Progress = 0
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

// PlayEnded reacts to a client reaching the end of the media: restart when
// looping, advance when the playlist has a next item, otherwise pause at the
// reporter's last known position for best-effort continuity.
func (s *service) PlayEnded(ctx context.Context, params *PlayEndedParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	target := &roomState.TargetState
	switch {
	case target.Loop:
		target.Progress = 0
		target.Paused = false
	case target.Playlist.HasNext():
		target.Playlist.CurrentIndex++
		target.Playing = target.Playlist.Items[target.Playlist.CurrentIndex]
		target.Progress = 0
		target.Paused = false
	default:
		target.Progress = 0
		if user := roomState.UserByConnectionId(params.ConnId); user != nil {
			target.Progress = user.Player.Progress
		}
		target.Paused = true
	}
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

// PlayAgain restarts the current media from the beginning.
func (s *service) PlayAgain(ctx context.Context, params *PlayAgainParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	roomState.TargetState.Progress = 0
	roomState.TargetState.Paused = false
	roomState.UpdateLastSync()

	return s.saveAndBroadcast(ctx, roomState)
}

// Fetch is a manual resync: it returns the stamped snapshot for the
// requesting connection only and mutates nothing. A missing room is not
// fatal here; the requester simply gets nothing.
func (s *service) Fetch(ctx context.Context, roomId string) (*domain.Room, error) {
	roomState, err := s.store.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			s.logger.InfoContext(ctx, "room not found for fetch request", "room_id", roomId)
			return nil, nil
		}

		return nil, err
	}

	roomState.ServerTime = time.Now().UnixMilli()

	return roomState, nil
}

// UpdateUser applies a user's own profile changes (name, avatar).
func (s *service) UpdateUser(ctx context.Context, params *UpdateUserParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	user := roomState.UserByConnectionId(params.ConnId)
	if user == nil {
		s.logger.InfoContext(ctx, "profile update from unknown user",
			"room_id", params.RoomId,
			"conn_id", params.ConnId,
		)
		return BroadcastResponse{}, nil
	}

	if params.Name != "" {
		user.Name = params.Name
	}
	if params.Avatar != "" {
		user.Avatar = params.Avatar
	}

	return s.saveAndBroadcast(ctx, roomState)
}
