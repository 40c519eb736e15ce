package handlers

import (
	"net/http"
)

type RootHandler struct {
	version string
}

func NewRootHandler(version string) *RootHandler {
	return &RootHandler{version: version}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "reachmap",
		"description": "Estimated transit accessibility around a point in NYC",
		"version":     h.version,
		"endpoints": map[string]string{
			"GET /api":                       "API information",
			"GET /health":                    "Health check",
			"GET /metrics":                   "Prometheus metrics",
			"GET /transit/snapshot":          "Travel time snapshot (?lat&lng[&mode&zoom|lng_delta&density&center_lat&center_lng&scheme])",
			"POST /transit/snapshot/refresh": "Recompute the snapshot regardless of mode",
			"GET /transit/live":              "Live/frozen status",
			"PUT /transit/live":              "Toggle live data ({enabled, refresh_interval_minutes})",
			"GET /transit/stations/near":     "Stations near a point (?lat&lng[&radius_km&limit])",
			"GET /transit/stations/{id}":     "Station by id",
			"GET /transit/colors":            "Color schemes",
			"GET /transit/colors/{scheme}":   "Color for a travel time (?minutes[&opacity])",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the /api endpoint for available routes",
	})
}
