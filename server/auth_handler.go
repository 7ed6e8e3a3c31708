package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"JamLoop/core/auth"
	"JamLoop/logger"
	"JamLoop/model"
)

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Username string `json:"username"` // username or email
	Password string `json:"password"`
}

// AuthResponse carries a token and the authenticated user.
type AuthResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// RegisterHandler handles user registration.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	if existing, err := h.userRepo.GetByUsername(ctx, req.Username); err != nil {
		logger.Error("[Register] failed to check username", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	if existing, err := h.userRepo.GetByEmail(ctx, req.Email); err != nil {
		logger.Error("[Register] failed to check email", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] failed to hash password", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error("[Register] failed to create user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("[Register] failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Register] user created",
		logger.Int64("userId", user.ID),
		logger.String("username", user.Username))
	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: *user})
}

// LoginHandler handles user login with username or email.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username/email and password are required")
		return
	}

	ctx := r.Context()
	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetByEmail(ctx, req.Username)
	} else {
		user, err = h.userRepo.GetByUsername(ctx, req.Username)
	}
	if err != nil {
		logger.Error("[Login] failed to query user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		logger.Warn("[Login] user not found", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] password mismatch", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("[Login] failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: *user})
}
