package room

import (
	"encoding/json"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/pkg/wsconn"
)

type JoinRoomParams struct {
	RoomId string
	ConnId string
	Conn   *wsconn.Conn
}

type JoinRoomResponse struct {
	Room        *domain.Room
	JoinedUser  domain.UserState
	JoinMessage domain.ChatMessage
	Conns       []*wsconn.Conn
}

type DisconnectParams struct {
	RoomId string
	ConnId string
}

type DisconnectResponse struct {
	// Room is nil when the room was deleted along with its chat history.
	Room          *domain.Room
	LeaveMessage  *domain.ChatMessage
	Conns         []*wsconn.Conn
	IsRoomDeleted bool
}

// BroadcastResponse carries the snapshot to publish and the room's current
// broadcast group. A nil Room means the operation was silently rejected and
// nothing must be sent.
type BroadcastResponse struct {
	Room  *domain.Room
	Conns []*wsconn.Conn
}

type SetPausedParams struct {
	RoomId string
	Paused bool
}

type SetLoopParams struct {
	RoomId string
	Loop   bool
}

type SetPlaybackRateParams struct {
	RoomId       string
	PlaybackRate float64
}

type SetProgressParams struct {
	RoomId   string
	ConnId   string
	Progress float64
}

type SeekParams struct {
	RoomId   string
	Progress float64
}

type PlayUrlParams struct {
	RoomId string
	Url    string
}

type PlayItemFromPlaylistParams struct {
	RoomId string
	Index  int
}

type PlayEndedParams struct {
	RoomId string
	ConnId string
}

type PlayAgainParams struct {
	RoomId string
}

type UpdatePlaylistParams struct {
	RoomId   string
	Playlist domain.Playlist
}

type UpdateUserParams struct {
	RoomId string
	ConnId string
	Name   string
	Avatar string
}

type SendChatMessageParams struct {
	RoomId  string
	ConnId  string
	Message string
}

type SendChatMessageResponse struct {
	// Message is nil when the input was rejected.
	Message *domain.ChatMessage
	Conns   []*wsconn.Conn
}

type SetTypingParams struct {
	RoomId   string
	ConnId   string
	IsTyping bool
}

type SetTypingResponse struct {
	// UserId is empty when there is nothing to announce.
	UserId   string
	UserName string
	IsTyping bool
	// Conns excludes the reporting connection; typing updates go to other
	// members only.
	Conns []*wsconn.Conn
}

type ApplyActionParams struct {
	RoomId string
	Event  string
	Data   json.RawMessage
}

type Stats struct {
	Rooms int `json:"rooms"`
	Users int `json:"users"`
}
