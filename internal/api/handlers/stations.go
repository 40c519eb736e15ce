package handlers

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/randytsao24/reachmap/internal/models"
)

const (
	defaultRadiusKm     = 1.0
	maxRadiusKm         = 10.0
	defaultStationLimit = 10
	maxStationLimit     = 50
)

type StationHandler struct {
	stations StationFinder
}

func NewStationHandler(stations StationFinder) *StationHandler {
	return &StationHandler{stations: stations}
}

// GetStationsNear returns catalog stations within radius_km of lat/lng, closest first
func (h *StationHandler) GetStationsNear(w http.ResponseWriter, r *http.Request) {
	center, ok, err := parseCoordinate(r, "lat", "lng")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": err.Error(),
		})
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "lat and lng query parameters are required",
		})
		return
	}

	radius, _, err := parseFloatParam(r, "radius_km")
	if err != nil || radius < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Invalid radius_km parameter",
		})
		return
	}
	if radius == 0 {
		radius = defaultRadiusKm
	}
	radius = min(radius, maxRadiusKm)
	limit := parseIntQueryParam(r, "limit", defaultStationLimit, 1, maxStationLimit)

	nearby := h.stations.FindWithinDistance(center, radius)
	slices.SortStableFunc(nearby, func(a, b models.StationWithDistance) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"lat":       center.Latitude,
		"lng":       center.Longitude,
		"radius_km": radius,
		"stations":  nearby,
		"count":     len(nearby),
	})
}

// GetStation returns one catalog station by id
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	station, found := h.stations.GetByID(id)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Station not found",
			"message": "Station " + id + " is not in the catalog",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"station": station,
	})
}
