package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ridezon-backend/internal/repository"
	"ridezon-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// serviceErrorMessage maps the service error taxonomy to a client-safe
// message and HTTP status code. Anything unrecognized is a persistence
// or internal failure and becomes a 500 without leaking details. The
// WebSocket handler reuses the message for its error frames.
func serviceErrorMessage(err error) (string, int) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return err.Error(), http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return "invalid credentials", http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return "you are not a member of this group", http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return err.Error(), http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return err.Error(), http.StatusConflict
	default:
		log.Error().Err(err).Msg("Internal error")
		return "internal server error", http.StatusInternalServerError
	}
}

// respondServiceError sends a mapped service error
func respondServiceError(w http.ResponseWriter, err error) {
	message, statusCode := serviceErrorMessage(err)
	respondError(w, message, statusCode)
}
