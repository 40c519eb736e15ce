package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/randytsao24/reachmap/internal/cache"
	"github.com/randytsao24/reachmap/internal/colors"
	"github.com/randytsao24/reachmap/internal/models"
	"github.com/randytsao24/reachmap/internal/transit"
)

type SnapshotHandler struct {
	snapshots     SnapshotService
	defaultScheme int
	logger        *slog.Logger
}

func NewSnapshotHandler(snapshots SnapshotService, defaultScheme int, logger *slog.Logger) *SnapshotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotHandler{snapshots: snapshots, defaultScheme: defaultScheme, logger: logger}
}

type coloredPoint struct {
	models.TransitPoint
	Color string `json:"color"`
}

type snapshotResponse struct {
	Success     bool           `json:"success"`
	Mode        models.Mode    `json:"mode"`
	LastUpdated time.Time      `json:"last_updated"`
	Generation  uint64         `json:"generation"`
	Live        bool           `json:"live"`
	Scheme      int            `json:"scheme"`
	Count       int            `json:"count"`
	Points      []coloredPoint `json:"points"`
}

// GetSnapshot returns the current snapshot, computing it when the cache policy requires
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	req, scheme, err := h.parseRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid snapshot request",
			"message": err.Error(),
		})
		return
	}

	data, err := h.snapshots.Get(r.Context(), req)
	if err != nil {
		writeComputeError(w, r, h.logger, err)
		return
	}
	writeCachedJSON(w, r, h.render(data, scheme))
}

// RefreshSnapshot discards the cached snapshot and computes a new one
func (h *SnapshotHandler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	req, scheme, err := h.parseRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid snapshot request",
			"message": err.Error(),
		})
		return
	}

	data, err := h.snapshots.ForceRefresh(r.Context(), req)
	if err != nil {
		writeComputeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.render(data, scheme))
}

func (h *SnapshotHandler) render(data *models.TransitData, scheme int) snapshotResponse {
	points := make([]coloredPoint, len(data.Points))
	for i, p := range data.Points {
		points[i] = coloredPoint{TransitPoint: p, Color: colors.ColorFor(p.TravelTime, scheme)}
	}
	return snapshotResponse{
		Success:     true,
		Mode:        data.Mode,
		LastUpdated: data.LastUpdated,
		Generation:  data.Generation,
		Live:        h.snapshots.Status().Mode == cache.Live,
		Scheme:      scheme,
		Count:       len(points),
		Points:      points,
	}
}

func (h *SnapshotHandler) parseRequest(r *http.Request) (transit.Request, int, error) {
	var req transit.Request

	origin, ok, err := parseCoordinate(r, "lat", "lng")
	if err != nil {
		return req, 0, err
	}
	if !ok {
		return req, 0, errors.New("lat and lng query parameters are required")
	}
	req.Origin = origin

	req.Mode = models.ModeStations
	if mode := r.URL.Query().Get("mode"); mode != "" {
		req.Mode = models.Mode(mode)
		if !req.Mode.Valid() {
			return req, 0, errors.New("mode must be one of stations, heatmap, grid")
		}
	}

	if req.Mode != models.ModeStations {
		center, ok, err := parseCoordinate(r, "center_lat", "center_lng")
		if err != nil {
			return req, 0, err
		}
		if ok {
			req.Center = &center
		}

		if zoom := r.URL.Query().Get("zoom"); zoom != "" {
			z, err := strconv.Atoi(zoom)
			if err != nil || z < 0 {
				return req, 0, errors.New("invalid zoom parameter")
			}
			req.Zoom = z
		} else if delta, ok, err := parseFloatParam(r, "lng_delta"); err != nil {
			return req, 0, errors.New("invalid lng_delta parameter")
		} else if ok {
			req.Zoom = transit.ZoomFromLongitudeDelta(delta)
		}

		if density := r.URL.Query().Get("density"); density != "" {
			n, err := strconv.Atoi(density)
			if err != nil || n < 1 || n > transit.MaxGridDensity {
				return req, 0, errors.New("density must be an integer between 1 and " + strconv.Itoa(transit.MaxGridDensity))
			}
			req.Density = n
		}
	}

	scheme := h.defaultScheme
	if s := r.URL.Query().Get("scheme"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || !colors.ValidScheme(n) {
			return req, 0, errors.New("scheme must be between 0 and " + strconv.Itoa(colors.Count()-1))
		}
		scheme = n
	}

	return req, scheme, nil
}

// parseCoordinate reads a lat/lng pair. ok is false when both are absent.
func parseCoordinate(r *http.Request, latKey, lngKey string) (models.Coordinate, bool, error) {
	lat, hasLat, err := parseFloatParam(r, latKey)
	if err != nil {
		return models.Coordinate{}, false, errors.New("invalid " + latKey + " parameter")
	}
	lng, hasLng, err := parseFloatParam(r, lngKey)
	if err != nil {
		return models.Coordinate{}, false, errors.New("invalid " + lngKey + " parameter")
	}
	if !hasLat && !hasLng {
		return models.Coordinate{}, false, nil
	}
	if hasLat != hasLng {
		return models.Coordinate{}, false, errors.New(latKey + " and " + lngKey + " must be given together")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.Coordinate{}, false, errors.New(latKey + "/" + lngKey + " out of range")
	}
	return models.Coordinate{Latitude: lat, Longitude: lng}, true, nil
}
