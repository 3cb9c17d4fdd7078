package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/service/room"
	"github.com/watchparty/server/pkg/validator"
	"github.com/watchparty/server/pkg/wsrouter"
)

type iRoomService interface {
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	Disconnect(context.Context, *room.DisconnectParams) (room.DisconnectResponse, error)

	SetPaused(context.Context, *room.SetPausedParams) (room.BroadcastResponse, error)
	SetLoop(context.Context, *room.SetLoopParams) (room.BroadcastResponse, error)
	SetPlaybackRate(context.Context, *room.SetPlaybackRateParams) (room.BroadcastResponse, error)
	SetProgress(context.Context, *room.SetProgressParams) (room.BroadcastResponse, error)
	Seek(context.Context, *room.SeekParams) (room.BroadcastResponse, error)
	PlayUrl(context.Context, *room.PlayUrlParams) (room.BroadcastResponse, error)
	PlayItemFromPlaylist(context.Context, *room.PlayItemFromPlaylistParams) (room.BroadcastResponse, error)
	PlayEnded(context.Context, *room.PlayEndedParams) (room.BroadcastResponse, error)
	PlayAgain(context.Context, *room.PlayAgainParams) (room.BroadcastResponse, error)
	UpdatePlaylist(context.Context, *room.UpdatePlaylistParams) (room.BroadcastResponse, error)
	UpdateUser(context.Context, *room.UpdateUserParams) (room.BroadcastResponse, error)
	Fetch(ctx context.Context, roomId string) (*domain.Room, error)

	SendChatMessage(context.Context, *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
	ChatHistory(ctx context.Context, roomId string) ([]domain.ChatMessage, error)
	SetTyping(context.Context, *room.SetTypingParams) (room.SetTypingResponse, error)

	ApplyAction(context.Context, *room.ApplyActionParams) error
	GetRoomState(ctx context.Context, roomId string) (*domain.Room, error)
	RoomSnapshots(ctx context.Context) ([]*domain.Room, error)
	GetStats(ctx context.Context) room.Stats
	Wipe(ctx context.Context) error
	GenerateRoomId(ctx context.Context) (string, error)
}

type iStoreHealth interface {
	Healthy() bool
	BackendKind() string
}

type controller struct {
	roomService iRoomService
	storeHealth iStoreHealth
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsmux       *wsrouter.WSRouter
}

func NewController(roomService iRoomService, storeHealth iStoreHealth, logger *slog.Logger) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		storeHealth: storeHealth,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return &c
}
