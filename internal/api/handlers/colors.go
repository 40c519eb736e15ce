package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/randytsao24/reachmap/internal/colors"
)

type ColorHandler struct {
	defaultScheme int
}

func NewColorHandler(defaultScheme int) *ColorHandler {
	return &ColorHandler{defaultScheme: defaultScheme}
}

// GetSchemes lists every color scheme for the legend
func (h *ColorHandler) GetSchemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"default_scheme": h.defaultScheme,
		"bucket_minutes": colors.BucketMinutes,
		"buckets":        colors.BucketCount,
		"schemes":        colors.Schemes(),
	})
}

// GetColor maps ?minutes= to a color in the scheme named by the path
func (h *ColorHandler) GetColor(w http.ResponseWriter, r *http.Request) {
	scheme, err := strconv.Atoi(chi.URLParam(r, "scheme"))
	if err != nil || !colors.ValidScheme(scheme) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "scheme must be between 0 and " + strconv.Itoa(colors.Count()-1),
		})
		return
	}

	minutes, ok, err := parseFloatParam(r, "minutes")
	if err != nil || !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "minutes query parameter is required",
		})
		return
	}

	opacity := 1.0
	if o, ok, err := parseFloatParam(r, "opacity"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Invalid opacity parameter",
		})
		return
	} else if ok {
		opacity = o
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"scheme":  scheme,
		"minutes": minutes,
		"bucket":  colors.Bucket(minutes),
		"color":   colors.ColorFor(minutes, scheme),
		"rgba":    colors.ColorWithOpacity(minutes, scheme, opacity),
	})
}
