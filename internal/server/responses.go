package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// statusFor maps failure kinds to HTTP statuses. Feed problems are
// upstream failures, everything else is ours.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrFeedUnavailable):
		return http.StatusBadGateway, "feed_unavailable"
	case errors.Is(err, models.ErrFeedFormat):
		return http.StatusBadGateway, "feed_format"
	case errors.Is(err, models.ErrInvalidNumber):
		return http.StatusInternalServerError, "invalid_number"
	case errors.Is(err, models.ErrStoreIO):
		return http.StatusInternalServerError, "store_io"
	default:
		return http.StatusInternalServerError, ""
	}
}
