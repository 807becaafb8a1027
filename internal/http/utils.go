package http

import (
	"encoding/json"
	"net/http"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/google/uuid"
)

// errorStatus maps domain errors to HTTP status codes. Unknown errors are
// treated as storage failures.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleGetUUID generates a new UUID and returns it as JSON. Clients use it
// to mint stable device identifiers before registering.
func (s *Server) handleGetUUID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.log.Error().Msgf("Method not allowed: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	newUUID := uuid.New().String()
	response := map[string]string{"uuid": newUUID}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode UUID response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
