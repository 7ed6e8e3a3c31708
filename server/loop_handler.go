package server

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"JamLoop/core/room"
	"JamLoop/logger"
	"JamLoop/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxLoopUploadBytes = 32 << 20

var allowedLoopExtensions = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// UploadLoopHandler accepts a multipart recording and registers it with a room.
func (h *APIHandler) UploadLoopHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLoopUploadBytes)
	if err := r.ParseMultipartForm(maxLoopUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	roomID := strings.TrimSpace(r.FormValue("roomId"))
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "Missing roomId")
		return
	}

	ctx := r.Context()
	jamRoom, err := h.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		logger.Error("[UploadLoop] failed to query room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if jamRoom == nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing audio file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedLoopExtensions[ext]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported audio format")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("[UploadLoop] failed to read upload", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Empty audio file")
		return
	}

	objectKey, url, err := h.blobs.PutLoop(ctx, data, ext, contentType)
	if err != nil {
		logger.Error("[UploadLoop] failed to store loop", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to store audio")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, ext)
	}
	if name == "" {
		name = "Untitled loop"
	}

	count, err := h.loopRepo.CountByRoom(ctx, roomID)
	if err != nil {
		logger.Error("[UploadLoop] failed to count loops", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	loop := &model.Loop{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		Name:      name,
		URL:       url,
		ObjectKey: objectKey,
		Enabled:   true,
		Volume:    1.0,
		SortOrder: int(count),
	}
	if err := h.loopRepo.Create(ctx, loop); err != nil {
		logger.Error("[UploadLoop] failed to create loop", logger.ErrorField(err))
		if removeErr := h.blobs.Remove(ctx, objectKey); removeErr != nil {
			logger.Warn("[UploadLoop] failed to remove orphaned blob",
				logger.String("objectKey", objectKey), logger.ErrorField(removeErr))
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.loopCache.InvalidateRoomLoops(ctx, roomID)
	h.hub.Broadcast(roomID, &room.Event{
		Type:    room.EventLoopCreated,
		RoomID:  roomID,
		UserID:  userID,
		Payload: loop,
	})

	logger.Info("[UploadLoop] loop uploaded",
		logger.String("loopId", loop.ID),
		logger.String("roomId", roomID),
		logger.Int64("userId", userID),
		logger.Int("bytes", len(data)))
	writeJSON(w, http.StatusCreated, loop)
}

// ListLoopsHandler returns a room's loops, or the caller's own loops when no
// roomId is given. Owner names are joined in either way.
func (h *APIHandler) ListLoopsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := r.Context()
	roomID := strings.TrimSpace(r.URL.Query().Get("roomId"))
	if roomID == "" {
		loops, err := h.loopRepo.ListByUser(ctx, userID)
		if err != nil {
			logger.Error("[ListLoops] failed to list user loops", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, loops)
		return
	}

	if cached, err := h.loopCache.GetRoomLoops(ctx, roomID); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	} else if err != nil {
		logger.Warn("[ListLoops] cache read failed", logger.ErrorField(err))
	}

	loops, err := h.loopRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logger.Error("[ListLoops] failed to list loops", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.loopCache.SetRoomLoops(ctx, roomID, loops); err != nil {
		logger.Warn("[ListLoops] cache write failed", logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, loops)
}

// UpdateLoopRequest carries the PATCHable loop fields.
type UpdateLoopRequest struct {
	Enabled *bool    `json:"enabled"`
	Volume  *float64 `json:"volume"`
	Order   *int     `json:"order"`
	Name    *string  `json:"name"`
}

// UpdateLoopHandler updates a loop. Allowed for the loop owner or the room host.
func (h *APIHandler) UpdateLoopHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	loopID := mux.Vars(r)["loopId"]

	ctx := r.Context()
	loop, err := h.loopRepo.GetByID(ctx, loopID)
	if err != nil {
		logger.Error("[UpdateLoop] failed to query loop", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if loop == nil {
		writeError(w, http.StatusNotFound, "Loop not found")
		return
	}

	allowed, err := h.canManageLoop(r, loop, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var req UpdateLoopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Enabled != nil {
		loop.Enabled = *req.Enabled
	}
	if req.Volume != nil {
		if *req.Volume < 0 || *req.Volume > 1 {
			writeError(w, http.StatusBadRequest, "Volume must be between 0 and 1")
			return
		}
		loop.Volume = *req.Volume
	}
	if req.Order != nil {
		if *req.Order < 0 {
			writeError(w, http.StatusBadRequest, "Order must be non-negative")
			return
		}
		loop.SortOrder = *req.Order
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		loop.Name = name
	}

	if err := h.loopRepo.Update(ctx, loop); err != nil {
		logger.Error("[UpdateLoop] failed to update loop", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.loopCache.InvalidateRoomLoops(ctx, loop.RoomID)
	h.hub.Broadcast(loop.RoomID, &room.Event{
		Type:    room.EventLoopUpdated,
		RoomID:  loop.RoomID,
		UserID:  userID,
		Payload: loop,
	})

	writeJSON(w, http.StatusOK, loop)
}

// DeleteLoopHandler removes a loop and its stored audio.
func (h *APIHandler) DeleteLoopHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	loopID := mux.Vars(r)["loopId"]

	ctx := r.Context()
	loop, err := h.loopRepo.GetByID(ctx, loopID)
	if err != nil {
		logger.Error("[DeleteLoop] failed to query loop", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if loop == nil {
		writeError(w, http.StatusNotFound, "Loop not found")
		return
	}

	allowed, err := h.canManageLoop(r, loop, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.loopRepo.Delete(ctx, loopID); err != nil {
		logger.Error("[DeleteLoop] failed to delete loop", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The DB row is gone; a leaked blob is recoverable, so only log failures here.
	if err := h.blobs.Remove(ctx, loop.ObjectKey); err != nil {
		logger.Warn("[DeleteLoop] failed to remove blob",
			logger.String("objectKey", loop.ObjectKey), logger.ErrorField(err))
	}

	h.loopCache.InvalidateRoomLoops(ctx, loop.RoomID)
	h.hub.Broadcast(loop.RoomID, &room.Event{
		Type:   room.EventLoopDeleted,
		RoomID: loop.RoomID,
		UserID: userID,
		Payload: map[string]string{
			"id":     loop.ID,
			"roomId": loop.RoomID,
		},
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *APIHandler) canManageLoop(r *http.Request, loop *model.Loop, userID int64) (bool, error) {
	if loop.UserID == userID {
		return true, nil
	}
	jamRoom, err := h.roomRepo.GetByID(r.Context(), loop.RoomID)
	if err != nil {
		logger.Error("[LoopPermission] failed to query room", logger.ErrorField(err))
		return false, err
	}
	return jamRoom != nil && jamRoom.HostID == userID, nil
}
