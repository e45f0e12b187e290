package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WeCr8/goodbodybucks/internal/models"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid input", err: models.ErrInvalidInput, want: http.StatusBadRequest},
		{name: "unknown catalog entry", err: models.ErrUnknownCatalogEntry, want: http.StatusBadRequest},
		{name: "invalid state", err: models.ErrInvalidState, want: http.StatusBadRequest},
		{name: "not found", err: models.ErrNotFound, want: http.StatusNotFound},
		{name: "forbidden", err: models.ErrForbidden, want: http.StatusForbidden},
		{name: "contention", err: models.ErrContention, want: http.StatusConflict},
		{name: "integrity fault", err: models.ErrIntegrityFault, want: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), want: http.StatusInternalServerError},
		{
			name: "wrapped sentinel",
			err:  fmt.Errorf("member %s: %w", "kid-1", models.ErrNotFound),
			want: http.StatusNotFound,
		},
		{
			name: "doubly wrapped",
			err:  fmt.Errorf("purchase: %w", fmt.Errorf("not enough GB$: %w", models.ErrInvalidState)),
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRespondWithServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, "test", fmt.Errorf("member %s: %w", "kid-1", models.ErrNotFound))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if body["error"] == "" {
		t.Error("error message missing from body")
	}
}

func TestRespondWithServiceErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, "test", errors.New("dial tcp 10.0.0.1: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Errorf("internals leaked to client: %q", body["error"])
	}
}
