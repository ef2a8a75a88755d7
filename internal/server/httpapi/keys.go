package httpapi

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/and161185/journal-keeper/internal/convert"
	"github.com/and161185/journal-keeper/internal/errs"
)

// putWrappedKey stores the caller's wrapped private key once.
func (s *Server) putWrappedKey(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil || len(body) == 0 {
		s.writeError(w, r, "put wrapped key", errs.ErrValidation)
		return
	}
	if err := s.keys.PutWrapped(r.Context(), mustUser(r), body); err != nil {
		s.writeError(w, r, "put wrapped key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getWrappedKey returns the stored document verbatim.
func (s *Server) getWrappedKey(w http.ResponseWriter, r *http.Request) {
	doc, err := s.keys.GetWrapped(r.Context(), mustUser(r), clientIP(r))
	if err != nil {
		s.writeError(w, r, "get wrapped key", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(doc)
}

// deleteKeyMaterial removes the caller's grants and wrapped key.
func (s *Server) deleteKeyMaterial(w http.ResponseWriter, r *http.Request) {
	n, err := s.keys.DeleteKeyMaterial(r.Context(), mustUser(r))
	if err != nil {
		s.writeError(w, r, "delete key material", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.DeletedGrants{Deleted: n})
}

func (s *Server) purgeGrants(w http.ResponseWriter, r *http.Request) {
	n, err := s.entries.PurgeGrants(r.Context(), mustUser(r))
	if err != nil {
		s.writeError(w, r, "purge grants", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.DeletedGrants{Deleted: n})
}

func (s *Server) getPublicKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "public key", err)
		return
	}
	pub, err := s.keys.PublicKey(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "public key", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.PublicKey{
		UserID:       id.String(),
		PublicKeyB64: base64.StdEncoding.EncodeToString(pub),
	})
}
