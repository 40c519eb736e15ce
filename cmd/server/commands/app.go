package commands

import (
	"context"
	"log/slog"

	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/cache"
	"github.com/randytsao24/reachmap/internal/config"
	"github.com/randytsao24/reachmap/internal/location"
	"github.com/randytsao24/reachmap/internal/metrics"
	"github.com/randytsao24/reachmap/internal/transit"
)

// app holds the wired services shared by the subcommands
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *location.Catalog
	engine  *transit.Engine
	metrics *metrics.Metrics
	cache   *cache.Controller
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("station catalog loaded", "stations", catalog.Count())

	estimatorOpts := []transit.EstimatorOption{
		transit.WithAccessRadius(cfg.AccessRadiusKm),
		transit.WithEstimatorLogger(logger),
	}
	if cfg.NoiseAmplitude > 0 {
		estimatorOpts = append(estimatorOpts, transit.WithNoise(transit.SeededNoise(cfg.NoiseSeed, cfg.NoiseAmplitude)))
	}
	estimator := transit.NewEstimator(catalog, estimatorOpts...)

	engine := transit.NewEngine(catalog, estimator,
		transit.WithRadii(cfg.GridRadiusDegrees, cfg.HeatmapRadiusDegrees),
		transit.WithHeatmapDistances(cfg.StationSearchKm, cfg.WalkRadiusKm),
		transit.WithWorkers(cfg.Workers),
		transit.WithLogger(logger),
	)

	m := metrics.New(Version)

	mode := cache.Frozen
	if cfg.LiveDataEnabled {
		mode = cache.Live
	}
	controller := cache.New(engine,
		cache.WithObserver(m),
		cache.WithMode(mode),
		cache.WithInterval(cfg.RefreshInterval),
		cache.WithLogger(logger),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		engine:  engine,
		metrics: m,
		cache:   controller,
	}, nil
}

// loadCatalog prefers a SQLite catalog, then a CSV file, then the embedded data
func loadCatalog(ctx context.Context, cfg *config.Config) (*location.Catalog, error) {
	switch {
	case cfg.CatalogSQLite != "":
		db, err := location.OpenSQLite(ctx, cfg.CatalogSQLite)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		catalog, err := location.LoadSQLite(ctx, db)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "loading sqlite catalog"), "path", cfg.CatalogSQLite)
		}
		return catalog, nil
	case cfg.CatalogCSV != "":
		return location.LoadFile(cfg.CatalogCSV)
	default:
		return location.DefaultCatalog()
	}
}
