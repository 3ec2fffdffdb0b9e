package handlers

import (
	"encoding/json"
	"net/http"

	"ridezon-backend/internal/middleware"
	"ridezon-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// RideHandler handles ride CRUD and join request requests
type RideHandler struct {
	rideService *services.RideService
}

// NewRideHandler creates a new ride handler
func NewRideHandler(rideService *services.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// Create handles POST /api/rides
func (h *RideHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.RideInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ride, err := h.rideService.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, ride, http.StatusCreated)
}

// List handles GET /api/rides
func (h *RideHandler) List(w http.ResponseWriter, r *http.Request) {
	rides, err := h.rideService.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, rides, http.StatusOK)
}

// Get handles GET /api/rides/{id}
func (h *RideHandler) Get(w http.ResponseWriter, r *http.Request) {
	ride, err := h.rideService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, ride, http.StatusOK)
}

// Update handles PUT /api/rides/{id}
func (h *RideHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.RideInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ride, err := h.rideService.Update(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, ride, http.StatusOK)
}

// Delete handles DELETE /api/rides/{id}
func (h *RideHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.rideService.Delete(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]string{"message": "ride deleted successfully"}, http.StatusOK)
}

// Join handles POST /api/rides/{id}/join
func (h *RideHandler) Join(w http.ResponseWriter, r *http.Request) {
	req, err := h.rideService.Join(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, req, http.StatusCreated)
}

// Respond handles PUT /api/rides/{id}/requests/{requestId}
func (h *RideHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.rideService.Respond(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "requestId"),
		middleware.GetUserID(r.Context()), in.Status)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, req, http.StatusOK)
}

// Leave handles POST /api/rides/{id}/leave
func (h *RideHandler) Leave(w http.ResponseWriter, r *http.Request) {
	err := h.rideService.Leave(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]string{"message": "successfully left the ride"}, http.StatusOK)
}
