package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/location"
)

func (c *CLI) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the station catalog",
	}
	cmd.AddCommand(c.newCatalogImportCmd())
	return cmd
}

func (c *CLI) newCatalogImportCmd() *cobra.Command {
	var csvPath, sqlitePath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import stations from CSV into a SQLite catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sqlitePath == "" {
				return zerr.Wrap(errInvalidFlag, "--sqlite is required")
			}

			var (
				catalog *location.Catalog
				err     error
			)
			if csvPath != "" {
				catalog, err = location.LoadFile(csvPath)
			} else {
				catalog, err = location.DefaultCatalog()
			}
			if err != nil {
				return err
			}

			db, err := location.OpenSQLite(cmd.Context(), sqlitePath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := location.WriteSQLite(cmd.Context(), db, catalog.All()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d stations into %s\n", catalog.Count(), sqlitePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "Station CSV to import (defaults to the embedded catalog)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Destination SQLite database")

	return cmd
}
