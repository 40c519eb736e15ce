// Package handlers contains HTTP request handlers
package handlers

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	startTime time.Time
	version   string
	snapshots SnapshotService
	stations  StationFinder
}

func NewHealthHandler(version string, snapshots SnapshotService, stations StationFinder) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), version: version, snapshots: snapshots, stations: stations}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.snapshots.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
		"stations":  h.stations.Count(),
		"cache": map[string]any{
			"mode":  status.Mode,
			"state": status.State,
		},
	})
}
