package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"JamLoop/core/auth"
)

func TestAuthMiddleware(t *testing.T) {
	auth.SetSecret("test-secret")

	token, err := auth.GenerateToken(42, "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	h := &APIHandler{}
	var gotUserID int64
	var gotUsername string
	protected := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		gotUsername, _ = GetUsernameFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			protected(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	if gotUserID != 42 {
		t.Errorf("user ID from context = %d, want 42", gotUserID)
	}
	if gotUsername != "alice" {
		t.Errorf("username from context = %q, want %q", gotUsername, "alice")
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusNotFound, "Room not found")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] != "Room not found" {
		t.Errorf("error message = %q, want %q", body["error"], "Room not found")
	}
}

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := newInviteCode()
		if err != nil {
			t.Fatalf("newInviteCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		if code != strings.ToUpper(code) {
			t.Errorf("code %q is not uppercase", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(inviteCodeAlphabet, c) {
				t.Errorf("code %q contains invalid character %q", code, c)
			}
		}
		seen[code] = true
	}
	// 100 draws from 36^6 possibilities should not all collide.
	if len(seen) < 2 {
		t.Error("invite codes are not random")
	}
}
