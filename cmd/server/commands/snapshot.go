package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/models"
	"github.com/randytsao24/reachmap/internal/transit"
)

var errInvalidFlag = zerr.New("invalid flag")

func (c *CLI) newSnapshotCmd() *cobra.Command {
	var (
		lat, lng             float64
		centerLat, centerLng float64
		mode                 string
		zoom, density        int
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute one snapshot and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := models.Mode(mode)
			if !m.Valid() {
				return zerr.With(zerr.Wrap(errInvalidFlag, "unknown mode"), "mode", mode)
			}

			cfg, logger, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			req := transit.Request{
				Mode:    m,
				Origin:  models.Coordinate{Latitude: lat, Longitude: lng},
				Density: density,
				Zoom:    zoom,
			}
			if cmd.Flags().Changed("center-lat") || cmd.Flags().Changed("center-lng") {
				req.Center = &models.Coordinate{Latitude: centerLat, Longitude: centerLng}
			}

			data, err := a.engine.Compute(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&lat, "lat", 40.7580, "Origin latitude")
	f.Float64Var(&lng, "lng", -73.9855, "Origin longitude")
	f.StringVar(&mode, "mode", string(models.ModeStations), "Snapshot mode: stations, heatmap or grid")
	f.IntVar(&zoom, "zoom", 0, "Map zoom level used to derive grid density")
	f.IntVar(&density, "density", 0, "Explicit lattice side length (1-200)")
	f.Float64Var(&centerLat, "center-lat", 0, "Viewport center latitude")
	f.Float64Var(&centerLng, "center-lng", 0, "Viewport center longitude")

	return cmd
}
