package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"eduplatform/internal/model"
	"eduplatform/internal/service"
	"eduplatform/internal/transport/rest/middleware"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeServiceError maps a service error onto its HTTP status
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch service.Kind(err) {
	case service.KindValidation:
		var verr *service.ValidationError
		errors.As(err, &verr)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Err.Error(), Fields: verr.Fields})
	case service.KindUnauthenticated:
		writeError(w, http.StatusUnauthorized, err.Error())
	case service.KindForbidden:
		writeError(w, http.StatusForbidden, err.Error())
	case service.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case service.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// identity returns the authenticated caller or writes 401
func identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}
