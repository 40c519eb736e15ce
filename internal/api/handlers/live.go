package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/randytsao24/reachmap/internal/cache"
)

type LiveHandler struct {
	snapshots SnapshotService
}

func NewLiveHandler(snapshots SnapshotService) *LiveHandler {
	return &LiveHandler{snapshots: snapshots}
}

type liveUpdate struct {
	Enabled                *bool    `json:"enabled"`
	RefreshIntervalMinutes *float64 `json:"refresh_interval_minutes"`
}

// GetLive reports whether snapshots refresh automatically
func (h *LiveHandler) GetLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, liveBody(h.snapshots.Status()))
}

// SetLive toggles between live and frozen and optionally changes the refresh
// interval. Neither change recomputes anything.
func (h *LiveHandler) SetLive(w http.ResponseWriter, r *http.Request) {
	var update liveUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}
	if update.Enabled == nil && update.RefreshIntervalMinutes == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "enabled or refresh_interval_minutes is required",
		})
		return
	}

	if m := update.RefreshIntervalMinutes; m != nil {
		if math.IsNaN(*m) || math.IsInf(*m, 0) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "refresh_interval_minutes must be a positive number",
			})
			return
		}
		if err := h.snapshots.SetInterval(time.Duration(*m * float64(time.Minute))); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "refresh_interval_minutes must be a positive number",
				"message": err.Error(),
			})
			return
		}
	}

	if update.Enabled != nil {
		mode := cache.Frozen
		if *update.Enabled {
			mode = cache.Live
		}
		if err := h.snapshots.SetMode(mode); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Failed to change mode",
				"message": err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, liveBody(h.snapshots.Status()))
}

func liveBody(status cache.Status) map[string]any {
	body := map[string]any{
		"success":                  true,
		"enabled":                  status.Mode == cache.Live,
		"mode":                     status.Mode,
		"state":                    status.State,
		"refresh_interval_minutes": status.Interval.Minutes(),
		"generation":               status.Generation,
	}
	if status.FetchedAt != nil {
		body["fetched_at"] = status.FetchedAt.UTC().Format(time.RFC3339)
	}
	return body
}
