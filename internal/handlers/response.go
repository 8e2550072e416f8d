package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/middleware"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	respondWithJSON(w, code, errorBody{Error: errorCode, Message: message})
}

// respondWithServiceError maps a service error onto its HTTP status. Errors
// that are not AppErrors are logged and hidden behind a generic message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		respondWithJSON(w, apperrors.HTTPStatus(err), errorBody{
			Error:   string(appErr.Kind),
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	logger.Error().Err(err).
		Str("request_id", middleware.GetRequestID(r)).
		Str("path", r.URL.Path).
		Msg("Unhandled service error")
	respondWithError(w, http.StatusInternalServerError, string(apperrors.KindInternal), "An internal error occurred")
}

// decodeJSON reads a single JSON document from the request body. An empty body
// leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return "", "", false
	}
	role, _ := middleware.GetUserRole(r)
	return userID, role, true
}

func queryInt(r *http.Request, key string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
