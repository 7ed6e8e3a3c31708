package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"JamLoop/cache"
	"JamLoop/config"
	"JamLoop/core/auth"
	"JamLoop/core/mixdown"
	"JamLoop/core/room"
	"JamLoop/logger"
	"JamLoop/repository"
	"JamLoop/storage"
)

type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUsername contextKey = "username"
)

// APIHandler handles all API requests.
type APIHandler struct {
	cfg         *config.Config
	userRepo    repository.UserRepository
	roomRepo    repository.RoomRepository
	loopRepo    repository.LoopRepository
	mixdownRepo repository.MixdownRepository
	blobs       *storage.BlobStore
	loopCache   *cache.LoopCache
	hub         *room.Hub
	engine      *mixdown.Engine
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	cfg *config.Config,
	userRepo repository.UserRepository,
	roomRepo repository.RoomRepository,
	loopRepo repository.LoopRepository,
	mixdownRepo repository.MixdownRepository,
	blobs *storage.BlobStore,
	loopCache *cache.LoopCache,
	hub *room.Hub,
	engine *mixdown.Engine,
) *APIHandler {
	return &APIHandler{
		cfg:         cfg,
		userRepo:    userRepo,
		roomRepo:    roomRepo,
		loopRepo:    loopRepo,
		mixdownRepo: mixdownRepo,
		blobs:       blobs,
		loopCache:   loopCache,
		hub:         hub,
		engine:      engine,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// AuthMiddleware checks for a valid JWT token and stores the caller's
// identity on the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(ctxUsername).(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
