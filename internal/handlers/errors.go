package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/WeCr8/goodbodybucks/internal/models"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	writeJSON(w, status, map[string]string{"error": userMsg})
}

// statusForError maps domain sentinels onto HTTP statuses
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrUnknownCatalogEntry),
		errors.Is(err, models.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrContention):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes a domain error using its mapped
// status. The error text is safe to show: services phrase messages for
// clients and wrap the sentinel.
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	status := statusForError(err)
	userMsg := err.Error()
	if status == http.StatusInternalServerError {
		userMsg = "internal server error"
	}
	respondWithError(w, status, userMsg, logMsg, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// decodeJSON parses a request body, rejecting unknown fields
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
