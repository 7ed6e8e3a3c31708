package server

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"JamLoop/logger"
	"JamLoop/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newInviteCode generates a 6-character room invite code. Codes gate access
// to private rooms, so they come from crypto/rand.
func newInviteCode() (string, error) {
	code := make([]byte, 6)
	alphabetLen := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// CreateRoomRequest is the room creation body.
type CreateRoomRequest struct {
	Title    string `json:"title"`
	BPM      int    `json:"bpm"`
	KeySig   string `json:"keySig"`
	IsPublic bool   `json:"isPublic"`
}

// CreateRoomHandler creates a jam room.
func (h *APIHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.BPM <= 0 {
		req.BPM = 120
	}
	if req.BPM < 30 || req.BPM > 300 {
		writeError(w, http.StatusBadRequest, "BPM must be between 30 and 300")
		return
	}

	ctx := r.Context()

	// Invite codes collide rarely; retry a few times rather than loop forever.
	var code string
	for attempt := 0; attempt < 5; attempt++ {
		candidate, err := newInviteCode()
		if err != nil {
			logger.Error("[CreateRoom] failed to generate invite code", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		exists, err := h.roomRepo.CodeExists(ctx, candidate)
		if err != nil {
			logger.Error("[CreateRoom] failed to check invite code", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		writeError(w, http.StatusInternalServerError, "Could not allocate invite code")
		return
	}

	room := &model.Room{
		ID:       uuid.NewString(),
		Title:    req.Title,
		BPM:      req.BPM,
		KeySig:   req.KeySig,
		IsPublic: req.IsPublic,
		Code:     code,
		HostID:   userID,
	}
	if err := h.roomRepo.Create(ctx, room); err != nil {
		logger.Error("[CreateRoom] failed to create room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[CreateRoom] room created",
		logger.String("roomId", room.ID),
		logger.Int64("hostId", userID))
	writeJSON(w, http.StatusCreated, room)
}

// GetRoomHandler returns one room with its host name and loop count.
func (h *APIHandler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	ctx := r.Context()
	room, err := h.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		logger.Error("[GetRoom] failed to query room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}

	info := model.RoomInfo{Room: *room}
	if host, err := h.userRepo.GetByID(ctx, room.HostID); err == nil && host != nil {
		info.HostName = host.Username
	}
	if count, err := h.loopRepo.CountByRoom(ctx, roomID); err == nil {
		info.LoopCount = int(count)
	}

	writeJSON(w, http.StatusOK, info)
}

// UpdateRoomRequest carries the PATCHable room fields. Pointers distinguish
// omitted fields from zero values.
type UpdateRoomRequest struct {
	Title    *string `json:"title"`
	BPM      *int    `json:"bpm"`
	KeySig   *string `json:"keySig"`
	IsPublic *bool   `json:"isPublic"`
}

// UpdateRoomHandler updates room settings. Host only.
func (h *APIHandler) UpdateRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	roomID := mux.Vars(r)["roomId"]

	ctx := r.Context()
	room, err := h.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		logger.Error("[UpdateRoom] failed to query room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}
	if room.HostID != userID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "Title cannot be empty")
			return
		}
		room.Title = title
	}
	if req.BPM != nil {
		if *req.BPM < 30 || *req.BPM > 300 {
			writeError(w, http.StatusBadRequest, "BPM must be between 30 and 300")
			return
		}
		room.BPM = *req.BPM
	}
	if req.KeySig != nil {
		room.KeySig = *req.KeySig
	}
	if req.IsPublic != nil {
		room.IsPublic = *req.IsPublic
	}

	if err := h.roomRepo.Update(ctx, room); err != nil {
		logger.Error("[UpdateRoom] failed to update room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// ListRoomsHandler returns public rooms plus the caller's own rooms.
func (h *APIHandler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := r.Context()
	public, err := h.roomRepo.ListPublic(ctx, 50, 0)
	if err != nil {
		logger.Error("[ListRooms] failed to list public rooms", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	own, err := h.roomRepo.ListByHost(ctx, userID)
	if err != nil {
		logger.Error("[ListRooms] failed to list own rooms", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Merge, own rooms first, without duplicating public rooms the caller hosts.
	seen := make(map[string]bool, len(own))
	rooms := make([]*model.Room, 0, len(own)+len(public))
	for _, room := range own {
		seen[room.ID] = true
		rooms = append(rooms, room)
	}
	for _, room := range public {
		if !seen[room.ID] {
			rooms = append(rooms, room)
		}
	}

	writeJSON(w, http.StatusOK, rooms)
}

// JoinRoomHandler resolves an invite code to a room ID.
func (h *APIHandler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing invite code")
		return
	}

	room, err := h.roomRepo.GetByCode(r.Context(), req.Code)
	if err != nil {
		logger.Error("[JoinRoom] failed to query room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "Invalid invite link")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"roomId": room.ID})
}
