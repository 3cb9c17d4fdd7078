package domain

import "time"

// Room is the unit of isolation: one shared playback and chat context,
// addressed by a short lowercase alphanumeric id.
type Room struct {
	Id          string      `json:"id"`
	OwnerId     string      `json:"ownerId"`
	Users       []UserState `json:"users"`
	TargetState PlayState   `json:"targetState"`
	// ServerTime is stamped in milliseconds right before every broadcast or
	// fetch. Its persisted value carries no meaning.
	ServerTime int64 `json:"serverTime"`
}

// PlayState is the authoritative playback state all clients converge to.
type PlayState struct {
	Playing      MediaElement `json:"playing"`
	Paused       bool         `json:"paused"`
	Progress     float64      `json:"progress"`
	PlaybackRate float64      `json:"playbackRate"`
	Loop         bool         `json:"loop"`
	LastSync     float64      `json:"lastSync"`
	Playlist     Playlist     `json:"playlist"`
}

// UserState describes one connected participant. Player holds the playback
// position the user last reported about itself; it is informational and never
// authoritative.
type UserState struct {
	Uid           string     `json:"uid"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	ConnectionIds []string   `json:"connectionIds"`
	Player        UserPlayer `json:"player"`
}

type UserPlayer struct {
	Progress     float64 `json:"progress"`
	Paused       bool    `json:"paused"`
	PlaybackRate float64 `json:"playbackRate"`
}

type MediaElement struct {
	Src   []Source   `json:"src"`
	Sub   []Subtitle `json:"sub"`
	Title string     `json:"title,omitempty"`
}

type Source struct {
	Src        string `json:"src"`
	Resolution string `json:"resolution"`
}

type Subtitle struct {
	Src  string `json:"src"`
	Lang string `json:"lang"`
}

const (
	MessageTypeMessage = "message"
	MessageTypeSystem  = "system"
	MessageTypeJoin    = "join"
	MessageTypeLeave   = "leave"
)

// ChatMessage is append-only and immutable once stored.
type ChatMessage struct {
	Id        string `json:"id"`
	UserId    string `json:"userId"`
	UserName  string `json:"userName"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// NewRoom builds a room with the default target state: the configured default
// media, paused at zero progress, rate 1, loop off and an empty playlist that
// is not being played from.
func NewRoom(roomId, ownerId, defaultMediaUrl string) *Room {
	return &Room{
		Id:      roomId,
		OwnerId: ownerId,
		Users:   []UserState{},
		TargetState: PlayState{
			Playing: MediaElement{
				Src: []Source{{Src: defaultMediaUrl, Resolution: ""}},
				Sub: []Subtitle{},
			},
			Paused:       true,
			Progress:     0,
			PlaybackRate: 1,
			Loop:         false,
			LastSync:     UnixSeconds(time.Now()),
			Playlist: Playlist{
				Items:        []MediaElement{},
				CurrentIndex: -1,
			},
		},
		ServerTime: time.Now().UnixMilli(),
	}
}

// UserByConnectionId returns the user whose canonical connection id matches,
// or nil.
func (r *Room) UserByConnectionId(connId string) *UserState {
	for i := range r.Users {
		if len(r.Users[i].ConnectionIds) > 0 && r.Users[i].ConnectionIds[0] == connId {
			return &r.Users[i]
		}
	}

	return nil
}

// RemoveUserByConnectionId removes the matching user and returns the removed
// entry, or nil if no user matched.
func (r *Room) RemoveUserByConnectionId(connId string) *UserState {
	for i := range r.Users {
		if len(r.Users[i].ConnectionIds) > 0 && r.Users[i].ConnectionIds[0] == connId {
			removed := r.Users[i]
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			return &removed
		}
	}

	return nil
}

// UpdateLastSync stamps the target state with the current wall clock. Every
// authoritative playback change goes through it.
func (r *Room) UpdateLastSync() {
	r.TargetState.LastSync = UnixSeconds(time.Now())
}

func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
