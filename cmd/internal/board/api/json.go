package boardapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"taskboard/cmd/internal/board"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// writeBoardError maps board error kinds onto HTTP status codes. An illegal
// workflow edge is a well-formed but unprocessable request (422), distinct
// from a role/ownership rejection (403).
func writeBoardError(log *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case board.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case board.IsForbidden(err):
		writeError(w, http.StatusForbidden, "forbidden", "operation not permitted")
	case board.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "no such task")
	case board.IsInvalidTransition(err):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", "status transition not allowed")
	case board.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "task changed concurrently")
	default:
		log.Error("board.api.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
