package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mraskin/userdir-server/internal/logger"
	"github.com/mraskin/userdir-server/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Backend failures are
// surfaced as 502 so clients can distinguish "table unreachable" from a
// bug in this process.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	var validationErr *model.ValidationError
	var backendErr *model.BackendError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, model.ErrStaleUser):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "user not present in replica, refresh and retry"})
	case errors.As(err, &backendErr):
		logger.Error("backend operation failed", "op", backendErr.Op, "error", backendErr.Err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
