package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/watchparty/server/internal/service/room"
	"github.com/watchparty/server/pkg/rest"
)

type roomActionRequest struct {
	RoomId string          `json:"roomId" validate:"required,alphanum"`
	Event  string          `json:"event" validate:"required"`
	Data   json.RawMessage `json:"data"`
}

// handleRoomAction is the polling-transport mutation path: one playback event
// applied to a room without a websocket.
func (c controller) handleRoomAction(w http.ResponseWriter, r *http.Request) {
	var req roomActionRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}
	req.RoomId = strings.ToLower(req.RoomId)

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": validationErrors})
		return
	}

	err := c.roomService.ApplyAction(r.Context(), &room.ApplyActionParams{
		RoomId: req.RoomId,
		Event:  req.Event,
		Data:   req.Data,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to apply room action", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal server error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"success": true})
}

// handleRoomState is the polling-transport read path: the same snapshot a
// websocket client would receive from fetch.
func (c controller) handleRoomState(w http.ResponseWriter, r *http.Request) {
	roomId := strings.ToLower(r.URL.Query().Get("roomId"))
	if roomId == "" || !c.validate.Var(roomId, "alphanum") {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "malformed room id"})
		return
	}

	roomState, err := c.roomService.GetRoomState(r.Context(), roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to get room state", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal server error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, roomState)
}

func (c controller) handleGenerate(w http.ResponseWriter, r *http.Request) {
	roomId, err := c.roomService.GenerateRoomId(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to generate room id", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal server error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"roomId": roomId})
}

func (c controller) handleStats(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, c.roomService.GetStats(r.Context()))
}

func (c controller) handleDebug(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.RoomSnapshots(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to list room snapshots", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal server error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"rooms": rooms})
}

func (c controller) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.Wipe(r.Context()); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to wipe store", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal server error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"message": "wiped"})
}

func (c controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{
		"status":     "ok",
		"serverTime": time.Now().UnixMilli(),
		"backend":    c.storeHealth.BackendKind(),
		"healthy":    c.storeHealth.Healthy(),
	})
}
