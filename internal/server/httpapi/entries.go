package httpapi

import (
	"net/http"

	"github.com/and161185/journal-keeper/internal/convert"
)

func (s *Server) getPublicEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "public entry", err)
		return
	}
	ew, err := s.entries.GetPublic(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "public entry", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToEntry(*ew, false))
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "get entry", err)
		return
	}
	ew, err := s.entries.Get(r.Context(), mustUser(r), id)
	if err != nil {
		s.writeError(w, r, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToEntry(*ew, true))
}

func (s *Server) sharedWithMe(w http.ResponseWriter, r *http.Request) {
	list, err := s.entries.SharedWithMe(r.Context(), mustUser(r))
	if err != nil {
		s.writeError(w, r, "shared with me", err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToEntries(list))
}

func (s *Server) publishEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "publish", err)
		return
	}
	var req convert.PublishRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "publish", err)
		return
	}
	pe, err := convert.FromPublishRequest(id, req)
	if err != nil {
		s.writeError(w, r, "publish", err)
		return
	}
	if err := s.entries.Publish(r.Context(), mustUser(r), pe); err != nil {
		s.writeError(w, r, "publish", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unpublishEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "unpublish", err)
		return
	}
	if err := s.entries.Unpublish(r.Context(), mustUser(r), id); err != nil {
		s.writeError(w, r, "unpublish", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putGrant(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "put grant", err)
		return
	}
	recipient, err := pathUUID(r, "recipient")
	if err != nil {
		s.writeError(w, r, "put grant", err)
		return
	}
	var req convert.PutGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "put grant", err)
		return
	}
	g, err := convert.FromPutGrantRequest(id, recipient, req)
	if err != nil {
		s.writeError(w, r, "put grant", err)
		return
	}
	if err := s.entries.PutGrant(r.Context(), mustUser(r), g); err != nil {
		s.writeError(w, r, "put grant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) revokeGrant(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, "revoke grant", err)
		return
	}
	recipient, err := pathUUID(r, "recipient")
	if err != nil {
		s.writeError(w, r, "revoke grant", err)
		return
	}
	if err := s.entries.RevokeGrant(r.Context(), mustUser(r), id, recipient); err != nil {
		s.writeError(w, r, "revoke grant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
