package api

import (
	"encoding/json"
	"net/http"

	"github.com/orii-home/orii-core/internal/device"
)

// maxControlActions bounds a single control batch.
const maxControlActions = 64

// controlRequest is the request body for POST /control.
type controlRequest struct {
	Actions []device.Action `json:"actions"`
}

// handleControl applies a batch of manual actions. Invalid actions are
// dropped individually, matching what happens to decision output, so the
// response reports how many took effect rather than failing the batch.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Actions) == 0 {
		writeBadRequest(w, "actions is required")
		return
	}
	if len(req.Actions) > maxControlActions {
		writeBadRequest(w, "too many actions in one batch")
		return
	}

	applied := s.engine.Submit(r.Context(), req.Actions)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "OK",
		"applied": applied,
	})
}
