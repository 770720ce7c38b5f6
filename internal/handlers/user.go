package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"lost-found-backend/internal/middleware"
	"lost-found-backend/internal/models"
	"lost-found-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService  *services.UserService
	tokenTTL     time.Duration
	secureCookie bool
	maxBodyBytes int64
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, tokenTTL time.Duration, secureCookie bool, maxBodyBytes int64) *UserHandler {
	return &UserHandler{
		userService:  userService,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
		maxBodyBytes: maxBodyBytes,
	}
}

// authResponse is returned by signup and login
type authResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Signup handles POST /api/v1/auth/signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Signup(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("email", req.Email), "Failed to sign up")
		return
	}

	h.setTokenCookie(w, token)
	respondJSON(w, http.StatusCreated, authResponse{Success: true, Token: token, User: user})
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Login(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("email", req.Email), "Failed to log in")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User logged in")

	h.setTokenCookie(w, token)
	respondJSON(w, http.StatusOK, authResponse{Success: true, Token: token, User: user})
}

// Logout handles POST /api/v1/auth/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// UpdateProfile handles PATCH /api/v1/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// UploadAvatar handles POST /api/v1/me/avatar
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := parseMultipart(w, r, h.maxBodyBytes); err != nil {
		respondFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := formUploads(r, "avatar")
	if len(files) == 0 {
		respondError(w, "avatar: is required", http.StatusBadRequest)
		return
	}

	url, err := h.userService.UploadAvatar(r.Context(), userID, files[0])
	if err != nil {
		respondServiceError(w, err, log.Error().Str("user_id", userID), "Failed to upload avatar")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"avatarUrl": url,
	})
}

// ListUsers handles GET /api/v1/admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	users, err := h.userService.ListUsers(r.Context(), caller)
	if err != nil {
		respondServiceError(w, err, log.Error().Str("admin_id", caller.ID), "Failed to list users")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// DeleteUser handles DELETE /api/v1/admin/users/{user_id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	userID := chi.URLParam(r, "user_id")

	if err := h.userService.DeleteUser(r.Context(), caller, userID); err != nil {
		respondServiceError(w, err, log.Error().Str("admin_id", caller.ID).Str("user_id", userID), "Failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
