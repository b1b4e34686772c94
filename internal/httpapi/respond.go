package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tsassistant/chat-backend/internal/apperr"
)

// errorBody mirrors the {"detail": ...} error envelope clients already
// parse.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encode failed", "err", err)
	}
}

// writeError maps the error taxonomy to HTTP statuses: validation and
// malformed requests are 400, missing conversations 404, provider failures
// 502, everything else 500. Internal failures log the cause but return only
// a generic detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *apperr.ValidationError
		ir *apperr.InvalidRequestError
		nf *apperr.NotFoundError
		ce *apperr.CompletionError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ir):
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: err.Error()})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusBadGateway, errorBody{Detail: err.Error()})
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error"})
	}
}

// decodeJSON reads the request body into v, rejecting unknown garbage with
// a 400-mappable error.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return &apperr.InvalidRequestError{Reason: "invalid JSON body: " + err.Error()}
	}
	return nil
}
