package server

import (
	"net/http"

	"JamLoop/core/auth"
	"JamLoop/core/room"
	"JamLoop/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RoomEventsHandler upgrades the connection and subscribes it to a room's
// event feed. Browsers cannot set headers on WebSocket requests, so the
// token also comes as a query parameter.
func (h *APIHandler) RoomEventsHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	roomID := mux.Vars(r)["roomId"]
	jamRoom, err := h.roomRepo.GetByID(r.Context(), roomID)
	if err != nil {
		logger.Error("[RoomEvents] failed to query room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if jamRoom == nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[RoomEvents] upgrade failed", logger.ErrorField(err))
		return
	}

	client := &room.Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 64),
		RoomID:   roomID,
		UserID:   claims.UserID,
		Username: claims.Username,
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
