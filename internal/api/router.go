package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/randytsao24/reachmap/internal/api/handlers"
	"github.com/randytsao24/reachmap/internal/config"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
// metrics may be nil.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	version string,
	snapshots handlers.SnapshotService,
	stations handlers.StationFinder,
	metrics http.Handler,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	healthHandler := handlers.NewHealthHandler(version, snapshots, stations)
	rootHandler := handlers.NewRootHandler(version)
	snapshotHandler := handlers.NewSnapshotHandler(snapshots, cfg.ColorScheme, logger)
	liveHandler := handlers.NewLiveHandler(snapshots)
	stationHandler := handlers.NewStationHandler(stations)
	colorHandler := handlers.NewColorHandler(cfg.ColorScheme)

	r := chi.NewRouter()
	r.Use(
		RequestIDs,
		Recovery(logger),
		Logging(logger),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "If-None-Match", requestIDHeader},
			ExposedHeaders: []string{"ETag", requestIDHeader},
		}),
	)
	r.NotFound(rootHandler.NotFound)

	// Core routes
	r.Get("/", rootHandler.Index)
	r.Get("/api", rootHandler.Index)
	r.Get("/health", healthHandler.Health)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/transit", func(r chi.Router) {
		if cfg.HTTPTimeout > 0 {
			r.Use(Timeout(cfg.HTTPTimeout))
		}

		// Snapshot routes
		r.Get("/snapshot", snapshotHandler.GetSnapshot)
		r.Post("/snapshot/refresh", snapshotHandler.RefreshSnapshot)

		// Live/frozen toggle
		r.Get("/live", liveHandler.GetLive)
		r.Put("/live", liveHandler.SetLive)

		// Catalog routes
		r.Get("/stations/near", stationHandler.GetStationsNear)
		r.Get("/stations/{id}", stationHandler.GetStation)

		// Color legend routes
		r.Get("/colors", colorHandler.GetSchemes)
		r.Get("/colors/{scheme}", colorHandler.GetColor)
	})

	return r
}
