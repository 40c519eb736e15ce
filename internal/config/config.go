// Package config handles application configuration from environment variables
// and an optional TOML or YAML file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig     = zerr.New("invalid configuration")
	ErrUnsupportedFormat = zerr.New("unsupported config file format")
)

// schemeCount mirrors colors.Count(); config stays free of domain imports
const schemeCount = 5

// Config holds all application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	RefreshInterval time.Duration
	LiveDataEnabled bool
	ColorScheme     int

	GridRadiusDegrees    float64
	HeatmapRadiusDegrees float64
	StationSearchKm      float64
	WalkRadiusKm         float64
	AccessRadiusKm       float64
	Workers              int

	NoiseSeed      uint64
	NoiseAmplitude float64

	CatalogCSV    string
	CatalogSQLite string

	HTTPTimeout time.Duration
	CORSOrigins []string
}

// fileConfig is the on-disk shape. Absent keys leave defaults untouched.
type fileConfig struct {
	Port                   *string  `toml:"port" yaml:"port"`
	Env                    *string  `toml:"env" yaml:"env"`
	LogLevel               *string  `toml:"log_level" yaml:"log_level"`
	RefreshIntervalMinutes *int     `toml:"refresh_interval_minutes" yaml:"refresh_interval_minutes"`
	LiveDataEnabled        *bool    `toml:"live_data_enabled" yaml:"live_data_enabled"`
	ColorScheme            *int     `toml:"color_scheme" yaml:"color_scheme"`
	GridRadiusDegrees      *float64 `toml:"grid_radius_degrees" yaml:"grid_radius_degrees"`
	HeatmapRadiusDegrees   *float64 `toml:"heatmap_radius_degrees" yaml:"heatmap_radius_degrees"`
	StationSearchKm        *float64 `toml:"station_search_km" yaml:"station_search_km"`
	WalkRadiusKm           *float64 `toml:"walk_radius_km" yaml:"walk_radius_km"`
	AccessRadiusKm         *float64 `toml:"access_radius_km" yaml:"access_radius_km"`
	Workers                *int     `toml:"workers" yaml:"workers"`
	NoiseSeed              *uint64  `toml:"noise_seed" yaml:"noise_seed"`
	NoiseAmplitude         *float64 `toml:"noise_amplitude" yaml:"noise_amplitude"`
	CatalogCSV             *string  `toml:"catalog_csv" yaml:"catalog_csv"`
	CatalogSQLite          *string  `toml:"catalog_sqlite" yaml:"catalog_sqlite"`
	HTTPTimeoutSeconds     *int     `toml:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	CORSOrigins            []string `toml:"cors_origins" yaml:"cors_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                 "3000",
		Env:                  "development",
		LogLevel:             "info",
		RefreshInterval:      5 * time.Minute,
		LiveDataEnabled:      true,
		ColorScheme:          0,
		GridRadiusDegrees:    0.01,
		HeatmapRadiusDegrees: 0.05,
		StationSearchKm:      5.0,
		WalkRadiusKm:         1.5,
		AccessRadiusKm:       1.5,
		Workers:              4,
		HTTPTimeout:          30 * time.Second,
		CORSOrigins:          []string{"*"},
	}
}

// Load reads an optional .env, then the file named by CONFIG_FILE if set, then
// environment variables, each layer overriding the previous one.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile is Load with an explicit config file; an empty path falls back
// to CONFIG_FILE.
func LoadWithFile(path string) (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads defaults overlaid with the given file, ignoring the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "reading config file"), "path", path)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return zerr.With(zerr.Wrap(ErrUnsupportedFormat, "reading config file"), "path", path)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "parsing config file"), "path", path)
	}

	setIf(&c.Port, fc.Port)
	setIf(&c.Env, fc.Env)
	setIf(&c.LogLevel, fc.LogLevel)
	if fc.RefreshIntervalMinutes != nil {
		c.RefreshInterval = time.Duration(*fc.RefreshIntervalMinutes) * time.Minute
	}
	setIf(&c.LiveDataEnabled, fc.LiveDataEnabled)
	setIf(&c.ColorScheme, fc.ColorScheme)
	setIf(&c.GridRadiusDegrees, fc.GridRadiusDegrees)
	setIf(&c.HeatmapRadiusDegrees, fc.HeatmapRadiusDegrees)
	setIf(&c.StationSearchKm, fc.StationSearchKm)
	setIf(&c.WalkRadiusKm, fc.WalkRadiusKm)
	setIf(&c.AccessRadiusKm, fc.AccessRadiusKm)
	setIf(&c.Workers, fc.Workers)
	setIf(&c.NoiseSeed, fc.NoiseSeed)
	setIf(&c.NoiseAmplitude, fc.NoiseAmplitude)
	setIf(&c.CatalogCSV, fc.CatalogCSV)
	setIf(&c.CatalogSQLite, fc.CatalogSQLite)
	if fc.HTTPTimeoutSeconds != nil {
		c.HTTPTimeout = time.Duration(*fc.HTTPTimeoutSeconds) * time.Second
	}
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.RefreshInterval = time.Duration(getIntEnv("REFRESH_INTERVAL_MINUTES", int(c.RefreshInterval/time.Minute))) * time.Minute
	c.LiveDataEnabled = getBoolEnv("LIVE_DATA_ENABLED", c.LiveDataEnabled)
	c.ColorScheme = getIntEnv("COLOR_SCHEME", c.ColorScheme)
	c.GridRadiusDegrees = getFloatEnv("GRID_RADIUS_DEGREES", c.GridRadiusDegrees)
	c.HeatmapRadiusDegrees = getFloatEnv("HEATMAP_RADIUS_DEGREES", c.HeatmapRadiusDegrees)
	c.StationSearchKm = getFloatEnv("STATION_SEARCH_KM", c.StationSearchKm)
	c.WalkRadiusKm = getFloatEnv("WALK_RADIUS_KM", c.WalkRadiusKm)
	c.AccessRadiusKm = getFloatEnv("ACCESS_RADIUS_KM", c.AccessRadiusKm)
	c.Workers = getIntEnv("WORKERS", c.Workers)
	c.NoiseSeed = getUintEnv("NOISE_SEED", c.NoiseSeed)
	c.NoiseAmplitude = getFloatEnv("NOISE_AMPLITUDE", c.NoiseAmplitude)
	c.CatalogCSV = getEnv("CATALOG_CSV", c.CatalogCSV)
	c.CatalogSQLite = getEnv("CATALOG_SQLITE", c.CatalogSQLite)
	c.HTTPTimeout = getDurationEnv("HTTP_TIMEOUT_SECONDS", int(c.HTTPTimeout/time.Second)) * time.Second
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = splitList(origins)
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.ColorScheme < 0 || c.ColorScheme >= schemeCount:
		return invalid("COLOR_SCHEME", c.ColorScheme)
	case c.RefreshInterval <= 0:
		return invalid("REFRESH_INTERVAL_MINUTES", c.RefreshInterval.String())
	case c.GridRadiusDegrees <= 0:
		return invalid("GRID_RADIUS_DEGREES", c.GridRadiusDegrees)
	case c.HeatmapRadiusDegrees <= 0:
		return invalid("HEATMAP_RADIUS_DEGREES", c.HeatmapRadiusDegrees)
	case c.StationSearchKm <= 0:
		return invalid("STATION_SEARCH_KM", c.StationSearchKm)
	case c.WalkRadiusKm <= 0:
		return invalid("WALK_RADIUS_KM", c.WalkRadiusKm)
	case c.AccessRadiusKm <= 0:
		return invalid("ACCESS_RADIUS_KM", c.AccessRadiusKm)
	case c.Workers < 1:
		return invalid("WORKERS", c.Workers)
	case c.NoiseAmplitude < 0:
		return invalid("NOISE_AMPLITUDE", c.NoiseAmplitude)
	case c.HTTPTimeout <= 0:
		return invalid("HTTP_TIMEOUT_SECONDS", c.HTTPTimeout.String())
	}
	return nil
}

func invalid(key string, value any) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrInvalidConfig, "validating config"), "key", key), "value", value)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getUintEnv(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
