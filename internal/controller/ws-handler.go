package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/service/room"
	"github.com/watchparty/server/pkg/wsconn"
)

// broadcastUpdate publishes the snapshot a mutating operation produced. A nil
// Room means the service silently rejected the input and there is nothing to
// send.
func (c controller) broadcastUpdate(ctx context.Context, resp room.BroadcastResponse) error {
	if resp.Room == nil {
		return nil
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "update", Payload: resp.Room})

	return nil
}

func (c controller) handleSetPaused(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var paused bool
	if err := json.Unmarshal(payload, &paused); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.SetPaused(ctx, &room.SetPausedParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		Paused: paused,
	})
	if err != nil {
		return fmt.Errorf("failed to set paused: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleSetLoop(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var loop bool
	if err := json.Unmarshal(payload, &loop); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.SetLoop(ctx, &room.SetLoopParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		Loop:   loop,
	})
	if err != nil {
		return fmt.Errorf("failed to set loop: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleSetProgress(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var progress float64
	if err := json.Unmarshal(payload, &progress); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.SetProgress(ctx, &room.SetProgressParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		ConnId:   c.getConnIdFromCtx(ctx),
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("failed to set progress: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleSetPlaybackRate(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var rate float64
	if err := json.Unmarshal(payload, &rate); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.SetPlaybackRate(ctx, &room.SetPlaybackRateParams{
		RoomId:       c.getRoomIdFromCtx(ctx),
		PlaybackRate: rate,
	})
	if err != nil {
		return fmt.Errorf("failed to set playback rate: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleSeek(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var progress float64
	if err := json.Unmarshal(payload, &progress); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.Seek(ctx, &room.SeekParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handlePlayUrl(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var url string
	if err := json.Unmarshal(payload, &url); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.PlayUrl(ctx, &room.PlayUrlParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		Url:    url,
	})
	if err != nil {
		return fmt.Errorf("failed to play url: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handlePlayAgain(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	resp, err := c.roomService.PlayAgain(ctx, &room.PlayAgainParams{
		RoomId: c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to play again: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handlePlayEnded(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	resp, err := c.roomService.PlayEnded(ctx, &room.PlayEndedParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		ConnId: c.getConnIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to handle play ended: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handlePlayItemFromPlaylist(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var index int
	if err := json.Unmarshal(payload, &index); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.PlayItemFromPlaylist(ctx, &room.PlayItemFromPlaylistParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		Index:  index,
	})
	if err != nil {
		return fmt.Errorf("failed to play item from playlist: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleUpdatePlaylist(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var playlist domain.Playlist
	if err := json.Unmarshal(payload, &playlist); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.UpdatePlaylist(ctx, &room.UpdatePlaylistParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		Playlist: playlist,
	})
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleUpdateUser(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var data struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.UpdateUser(ctx, &room.UpdateUserParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		ConnId: c.getConnIdFromCtx(ctx),
		Name:   data.Name,
		Avatar: data.Avatar,
	})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return c.broadcastUpdate(ctx, resp)
}

func (c controller) handleFetch(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	roomState, err := c.roomService.Fetch(ctx, c.getRoomIdFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch room: %w", err)
	}
	if roomState == nil {
		return nil
	}

	c.writeToConn(ctx, conn, &Output{Type: "update", Payload: roomState})

	return nil
}

func (c controller) handleSendChatMessage(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		RoomId:  c.getRoomIdFromCtx(ctx),
		ConnId:  c.getConnIdFromCtx(ctx),
		Message: text,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	if resp.Message == nil {
		return nil
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "chatMessage", Payload: resp.Message})

	return nil
}

func (c controller) handleRequestChatHistory(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	messages, err := c.roomService.ChatHistory(ctx, c.getRoomIdFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to get chat history: %w", err)
	}

	c.writeToConn(ctx, conn, &Output{Type: "chatHistory", Payload: messages})

	return nil
}

func (c controller) handleSetTyping(ctx context.Context, conn *wsconn.Conn, payload json.RawMessage) error {
	var isTyping bool
	if err := json.Unmarshal(payload, &isTyping); err != nil {
		c.logger.InfoContext(ctx, "malformed payload", "error", err)
		return nil
	}

	resp, err := c.roomService.SetTyping(ctx, &room.SetTypingParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		ConnId:   c.getConnIdFromCtx(ctx),
		IsTyping: isTyping,
	})
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	if resp.UserId == "" {
		return nil
	}

	c.broadcast(ctx, resp.Conns, &Output{Type: "userTyping", Payload: map[string]any{
		"userId":   resp.UserId,
		"userName": resp.UserName,
		"isTyping": resp.IsTyping,
	}})

	return nil
}
