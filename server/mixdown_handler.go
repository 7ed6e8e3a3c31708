package server

import (
	"errors"
	"net/http"
	"time"

	"JamLoop/core/mixdown"
	"JamLoop/core/room"
	"JamLoop/logger"
	"JamLoop/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RenderMixdownHandler renders a room's enabled loops into a WAV, stores it,
// and records the export.
func (h *APIHandler) RenderMixdownHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	roomID := mux.Vars(r)["roomId"]

	ctx := r.Context()
	jamRoom, err := h.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		logger.Error("[RenderMixdown] failed to query room", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if jamRoom == nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return
	}

	loops, err := h.loopRepo.ListEnabledByRoom(ctx, roomID)
	if err != nil {
		logger.Error("[RenderMixdown] failed to list loops", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	inputs := make([]mixdown.LoopInput, 0, len(loops))
	for _, loop := range loops {
		input, err := mixdown.NewLoopInput(loop.ID, loop.Name, loop.ObjectKey,
			loop.Enabled, loop.Volume, loop.SortOrder)
		if err != nil {
			logger.Error("[RenderMixdown] invalid loop record",
				logger.String("loopId", loop.ID), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		inputs = append(inputs, input)
	}

	blob, err := h.engine.Render(ctx, inputs)
	if err != nil {
		var decodeErr *mixdown.DecodeError
		switch {
		case errors.Is(err, mixdown.ErrNoActiveTracks):
			writeError(w, http.StatusConflict, "No enabled loops to mix")
		case errors.As(err, &decodeErr):
			logger.Warn("[RenderMixdown] loop failed to decode",
				logger.String("roomId", roomID),
				logger.String("loopId", decodeErr.ResourceID),
				logger.ErrorField(err))
			writeError(w, http.StatusUnprocessableEntity, "A loop could not be decoded")
		default:
			logger.Error("[RenderMixdown] render failed",
				logger.String("roomId", roomID), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Mixdown failed")
		}
		return
	}

	objectKey, url, err := h.blobs.PutMixdown(ctx, blob.Data)
	if err != nil {
		logger.Error("[RenderMixdown] failed to store mixdown", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to store mixdown")
		return
	}

	record := &model.Mixdown{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		URL:       url,
		ObjectKey: objectKey,
		Filename:  mixdown.MixdownFilename(jamRoom.Title, time.Now()),
	}
	if err := h.mixdownRepo.Create(ctx, record); err != nil {
		logger.Error("[RenderMixdown] failed to record mixdown", logger.ErrorField(err))
		if removeErr := h.blobs.Remove(ctx, objectKey); removeErr != nil {
			logger.Warn("[RenderMixdown] failed to remove orphaned blob",
				logger.String("objectKey", objectKey), logger.ErrorField(removeErr))
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.hub.Broadcast(roomID, &room.Event{
		Type:    room.EventMixdownCreated,
		RoomID:  roomID,
		UserID:  userID,
		Payload: record,
	})

	logger.Info("[RenderMixdown] mixdown exported",
		logger.String("roomId", roomID),
		logger.String("mixdownId", record.ID),
		logger.Int("tracks", len(inputs)),
		logger.Int("bytes", len(blob.Data)))
	writeJSON(w, http.StatusCreated, record)
}

// ListMixdownsHandler returns exports, filtered by roomId when given, else the
// caller's own.
func (h *APIHandler) ListMixdownsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := r.Context()
	var mixdowns []*model.Mixdown
	if roomID := r.URL.Query().Get("roomId"); roomID != "" {
		mixdowns, err = h.mixdownRepo.ListByRoom(ctx, roomID)
	} else {
		mixdowns, err = h.mixdownRepo.ListByUser(ctx, userID)
	}
	if err != nil {
		logger.Error("[ListMixdowns] failed to list mixdowns", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, mixdowns)
}
