package http

import (
	"net/http"

	"atlas/internal/core"
	"atlas/internal/log"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings.Get(r.Context(), principal(r).UserID)
	if err != nil {
		respondError(w, r, log.OpRead, err)
		return
	}
	NewResponse().Data(settings).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := decodeStrictJSON(w, r, &patch); err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}

	settings, err := s.svc.Settings.Update(r.Context(), principal(r).UserID, patch)
	if err != nil {
		respondError(w, r, log.OpUpdate, err)
		return
	}
	NewResponse().Data(settings).Write(w)
}
