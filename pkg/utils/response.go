package utils

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "wastewatch-backend/internal/errors"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Kind    apperrors.Kind `json:"kind"`
	Error   string         `json:"error"`
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, kind apperrors.Kind, message string) {
	JSON(w, status, ErrorResponse{Success: false, Kind: kind, Error: message})
}

// RespondAppError maps err onto its status and kind. Internal errors are
// logged with their cause and answered with a generic message.
func RespondAppError(w http.ResponseWriter, err error) {
	status, kind, message := apperrors.MapErrorToHTTP(err)
	if kind == apperrors.KindInternal {
		log.Printf("❌ Internal error: %v", err)
	}
	RespondError(w, status, kind, message)
}
