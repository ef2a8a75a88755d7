package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/convert"
	"github.com/and161185/journal-keeper/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorText(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, convert.Error{Error: msg})
}

// writeError maps sentinel errors to status codes; anything else is a 500
// whose cause stays in the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeErrorText(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		writeErrorText(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists), errors.Is(err, errs.ErrVersionConflict):
		writeErrorText(w, http.StatusConflict, "already exists")
	case errors.Is(err, errs.ErrUnauthorized):
		writeErrorText(w, http.StatusUnauthorized, "no auth")
	case errors.Is(err, errs.ErrRateLimited):
		writeErrorText(w, http.StatusTooManyRequests, "rate limited")
	default:
		s.log.Error(op, zap.Error(err), zap.String("path", r.URL.Path))
		writeErrorText(w, http.StatusInternalServerError, "internal")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.ErrValidation
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrValidation
	}
	return id, nil
}

// mustUser is only reached behind Authenticate.
func mustUser(r *http.Request) uuid.UUID {
	id, _ := UserIDFromCtx(r.Context())
	return id
}
