package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/family-rules-core/internal/policy"
	"github.com/nerrad567/family-rules-core/internal/report"
)

// Device credential headers.
const (
	headerDeviceID    = "X-Device-Id"
	headerDeviceToken = "X-Device-Token"
)

// DeviceReport is the request body for POST /devices/report. Every field is
// optional; an empty body is a plain "what state should I be in" poll.
type DeviceReport struct {
	ScreenTimeSeconds *int64           `json:"screen_time_seconds,omitempty"`
	PerAppSeconds     map[string]int64 `json:"per_app_seconds,omitempty"`
	UTCOffsetSeconds  *int             `json:"utc_offset_seconds,omitempty"`
}

// OverrideRequest is the request body for PUT /devices/{id}/override.
type OverrideRequest struct {
	State           string `json:"state"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// OverrideResponse is returned after an override is set or cleared.
type OverrideResponse struct {
	DeviceID string `json:"device_id"`
	policy.Decision
}

// handleDeviceReport records a device's usage and returns its state.
func (s *Server) handleDeviceReport(w http.ResponseWriter, r *http.Request) {
	var body DeviceReport
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeDecodeError(w, err)
		return
	}

	resp, err := s.reports.Report(r.Context(), report.Request{
		DeviceID:          r.Header.Get(headerDeviceID),
		Secret:            r.Header.Get(headerDeviceToken),
		ScreenTimeSeconds: body.ScreenTimeSeconds,
		PerAppSeconds:     body.PerAppSeconds,
		UTCOffsetSeconds:  body.UTCOffsetSeconds,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSetOverride forces a state on a device for a bounded duration.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.State == "" {
		writeValidationError(w, "state field is required")
		return
	}

	if req.DurationSeconds <= 0 || req.DurationSeconds > int64(report.MaxOverrideDuration/time.Second) {
		writeValidationError(w, fmt.Sprintf("duration_seconds must be between 1 and %d", int64(report.MaxOverrideDuration/time.Second)))
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	decision, err := s.admin.SetOverride(r.Context(), id, policy.DeviceState(req.State), duration, actorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OverrideResponse{DeviceID: id, Decision: decision})
}

// handleClearOverride removes any override so the schedule applies again.
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	decision, err := s.admin.ClearOverride(r.Context(), id, actorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OverrideResponse{DeviceID: id, Decision: decision})
}

// handleDeviceStatus returns a device's current decision and override.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.admin.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
