package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/randytsao24/reachmap/internal/cache"
	"github.com/randytsao24/reachmap/internal/transit"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

// writeCachedJSON writes data with a content hash ETag and answers a matching
// If-None-Match with 304.
func writeCachedJSON(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to encode response",
			"message": err.Error(),
		})
		return
	}

	etag := fmt.Sprintf("\"%016x\"", xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)+1))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// writeComputeError maps snapshot errors to the single generic failure the
// client shows, with a status telling bad input from lost races.
func writeComputeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, transit.ErrInvalidDensity), errors.Is(err, transit.ErrUnknownMode):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid snapshot request",
			"message": err.Error(),
		})
	case errors.Is(err, cache.ErrSuperseded):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "Snapshot superseded",
			"message": "A newer request replaced this one; retry to get the latest snapshot",
		})
	default:
		logger.ErrorContext(r.Context(), "snapshot computation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to compute travel times",
			"message": err.Error(),
		})
	}
}

func parseFloatParam(r *http.Request, name string) (float64, bool, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, true, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, errors.New(name + " must be finite")
	}
	return f, true, nil
}

func parseIntQueryParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}

	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
