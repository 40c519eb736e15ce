// Package commands implements the reachmap command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randytsao24/reachmap/internal/config"
	"github.com/randytsao24/reachmap/internal/logging"
)

// Version is overridden at build time with -ldflags "-X ...commands.Version=..."
var Version = "dev"

// CLI represents the reachmap command line interface.
type CLI struct {
	rootCmd *cobra.Command
	logOut  io.Writer
}

// New creates the command tree.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "reachmap",
		Short:         "Transit accessibility snapshots for NYC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML or YAML config file (defaults to $CONFIG_FILE)")

	c := &CLI{rootCmd: rootCmd, logOut: os.Stderr}

	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newSnapshotCmd())
	rootCmd.AddCommand(c.newCatalogCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output and logs. Used for testing.
func (c *CLI) SetOutput(out, logs io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(logs)
	c.logOut = logs
}

// loadConfig resolves configuration for cmd and builds its logger
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Env, cfg.LogLevel, c.logOut), nil
}
