package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/resolvekit/internal/api"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command, which exposes resolution over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		port    int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution API over HTTP",
		Long: `Serve resolves specifiers over HTTP against the host filesystem.

Results are cached in Redis when cache.redis.addr is configured, so that
several servers share them, and in the local cache directory otherwise.
Package descriptors are cached for the lifetime of the server.`,
		Example: `  resolvekit serve --port 9090
  curl 'localhost:9090/resolve?specifier=react&parent=/app/src/index.js'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				c.Config.Server.Port = port
			}
			return c.runServe(cmd.Context(), noCache)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config, 8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache bool) error {
	logger := loggerFromContext(ctx)

	store, err := c.newServerCache(ctx, noCache)
	if err != nil {
		return err
	}
	runner, err := c.newRunnerWithCache(store)
	if err != nil {
		return err
	}
	defer runner.Close()

	addr := c.Config.Server.Address()
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(runner, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", addr, "session", runner.Session.ID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
