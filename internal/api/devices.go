package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orii-home/orii-core/internal/device"
)

// defaultHistoryRange applies when GET /devices/{id}/history has no "since"
// parameter.
const defaultHistoryRange = time.Hour

// handleListDevices returns the visible device roster.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.VisibleSnapshot())
}

// handleGetDevice returns a single device descriptor, hidden ones included.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	desc, err := s.engine.Describe(id)
	if err != nil {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// updateDeviceRequest is the request body for PUT /devices/{id}.
type updateDeviceRequest struct {
	Param map[string]any `json:"param"`
}

// handleUpdateDevice applies a single parameter update through the same
// validation path decision actions take, then echoes the result.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Param) == 0 {
		writeBadRequest(w, "param is required")
		return
	}

	if _, err := s.engine.Describe(id); err != nil {
		writeNotFound(w, "device not found")
		return
	}

	applied := s.engine.Submit(r.Context(), []device.Action{{ID: id, Param: req.Param}})
	if applied == 0 {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, "update rejected")
		return
	}

	desc, err := s.engine.Describe(id)
	if err != nil {
		writeInternalError(w, "device vanished during update")
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// handleDeviceHistory returns recorded samples for a device over a time
// range. Responds 404 when telemetry is not running.
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	if s.history == nil || !s.history.IsConnected() {
		writeNotFound(w, "telemetry not available")
		return
	}

	if _, err := s.engine.Describe(id); err != nil {
		writeNotFound(w, "device not found")
		return
	}

	since := defaultHistoryRange
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "invalid since duration")
			return
		}
		since = parsed
	}

	samples, err := s.history.History(r.Context(), id, since)
	if err != nil {
		s.logger.Warn("history query failed", "device_id", id, "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"since":     since.String(),
		"samples":   samples,
	})
}

// deviceID parses the {id} route parameter, writing a 400 on failure.
func deviceID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeBadRequest(w, "invalid device id")
		return 0, false
	}
	return id, true
}
