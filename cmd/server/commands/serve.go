package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/randytsao24/reachmap/internal/api"
)

const shutdownTimeout = 10 * time.Second

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      api.NewRouter(cfg, logger, Version, a.cache, a.catalog, a.metrics.Handler()),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			return serve(cmd.Context(), server, a)
		},
	}
}

// serve runs server until ctx is cancelled, then drains in-flight requests
func serve(ctx context.Context, server *http.Server, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("reachmap server starting",
			"addr", server.Addr,
			"env", a.cfg.Env,
			"cache_mode", a.cache.Mode(),
			"refresh_interval", a.cache.Interval(),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "server failed to start"), "addr", server.Addr)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return zerr.Wrap(err, "graceful shutdown")
	}
	return nil
}
