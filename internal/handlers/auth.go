package handlers

import (
	"encoding/json"
	"net/http"

	"ridezon-backend/internal/middleware"
	"ridezon-backend/internal/models"
	"ridezon-backend/internal/services"
)

// AuthHandler handles signup, login and profile requests
type AuthHandler struct {
	userService   *services.UserService
	avatarService *services.AvatarService
}

// NewAuthHandler creates a new auth handler. avatarService may be nil
// when no S3 bucket is configured.
func NewAuthHandler(userService *services.UserService, avatarService *services.AvatarService) *AuthHandler {
	return &AuthHandler{userService: userService, avatarService: avatarService}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Signup(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, authResponse{Token: token, User: user}, http.StatusCreated)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, authResponse{Token: token, User: user}, http.StatusOK)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this
// only exists so clients have a definite end-of-session call.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"message": "logged out successfully"}, http.StatusOK)
}

// Profile handles GET /api/auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.userService.Profile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, user, http.StatusOK)
}

// CompleteSignup handles PUT /api/auth/complete
func (h *AuthHandler) CompleteSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phone  string `json:"phone_number"`
		Gender string `json:"gender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	user, token, err := h.userService.CompleteSignup(r.Context(), userID, in.Phone, in.Gender)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, authResponse{Token: token, User: user}, http.StatusOK)
}

// RegisterDeviceToken handles POST /api/auth/device-token
func (h *AuthHandler) RegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DeviceToken string `json:"device_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.userService.RegisterDeviceToken(r.Context(), userID, in.DeviceToken); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]string{"message": "device token registered"}, http.StatusOK)
}

// AvatarUploadURL handles POST /api/auth/avatar/upload
func (h *AuthHandler) AvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	if h.avatarService == nil {
		respondError(w, "avatar uploads are not configured", http.StatusNotImplemented)
		return
	}

	var in struct {
		ContentType string `json:"content_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	resp, err := h.avatarService.GetPreSignedURL(r.Context(), userID, in.ContentType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

// SetAvatar handles PUT /api/auth/avatar
func (h *AuthHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatarService == nil {
		respondError(w, "avatar uploads are not configured", http.StatusNotImplemented)
		return
	}

	var in struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.avatarService.SetAvatar(r.Context(), userID, in.AvatarURL); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]string{"avatar": in.AvatarURL}, http.StatusOK)
}
