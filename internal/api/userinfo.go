package api

import (
	"encoding/json"
	"net/http"
)

// handleGetUserInfo returns the household profile metadata.
func (s *Server) handleGetUserInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.UserInfo())
}

// handleSetUserInfo replaces the household profile metadata. The whole map
// is replaced, not merged; clients send the full document.
func (s *Server) handleSetUserInfo(w http.ResponseWriter, r *http.Request) {
	var md map[string]any
	if err := json.NewDecoder(r.Body).Decode(&md); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(md) == 0 {
		writeBadRequest(w, "profile must not be empty")
		return
	}

	if err := s.engine.SetUserInfo(r.Context(), md); err != nil {
		s.logger.Warn("userinfo persist failed", "error", err)
		writeInternalError(w, "failed to persist profile")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.UserInfo())
}
