package room

import "context"

// UpdatePlaylist replaces the room's playlist verbatim. The server does no
// diffing: insert, delete and move bookkeeping is composed by the caller
// (domain.Playlist carries the canonical rules). An update whose
// currentIndex is out of bounds for the new item count is rejected outright.
func (s *service) UpdatePlaylist(ctx context.Context, params *UpdatePlaylistParams) (BroadcastResponse, error) {
	roomState, err := s.mustGetRoom(ctx, params.RoomId)
	if err != nil {
		return BroadcastResponse{}, err
	}

	if !params.Playlist.Valid() {
		s.logger.InfoContext(ctx, "rejecting playlist with out of range index",
			"room_id", params.RoomId,
			"current_index", params.Playlist.CurrentIndex,
			"playlist_length", len(params.Playlist.Items),
		)
		return BroadcastResponse{}, nil
	}

	roomState.TargetState.Playlist = params.Playlist

	return s.saveAndBroadcast(ctx, roomState)
}
