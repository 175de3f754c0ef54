package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/switchboard/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/switchboard/pkg/adapters/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful stop of the HTTP listeners.
const shutdownTimeout = 5 * time.Second

// RunServe serves the HTTP API until ctx is cancelled. With an MCP address
// the MCP tools are served over SSE next to it; with Watch the Loam
// repository is watched and changed flows are published again.
func RunServe(ctx context.Context, setup *Setup, opts ServeOptions, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	httpOpts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
	if gatherer != nil {
		httpOpts = append(httpOpts, httpAdapter.WithMetrics(gatherer))
	}
	if opts.MaxBodySize > 0 {
		httpOpts = append(httpOpts, httpAdapter.WithMaxBodySize(opts.MaxBodySize))
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           httpAdapter.NewHandler(setup.Engine, httpOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "address", opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	if opts.MCPAddr != "" {
		baseURL := opts.MCPBaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + opts.MCPAddr
		}
		mcpServer := mcpAdapter.NewServer(setup.Engine, mcpAdapter.WithLogger(logger))
		g.Go(func() error {
			return mcpServer.ServeSSE(ctx, opts.MCPAddr, baseURL)
		})
	}

	if opts.Watch {
		g.Go(func() error {
			return watchFlows(ctx, setup, logger)
		})
	}

	return g.Wait()
}

// watchFlows republishes every flow document that changes. Invalid edits
// are logged and leave the previous version in place.
func watchFlows(ctx context.Context, setup *Setup, logger *slog.Logger) error {
	if setup.Loader == nil {
		return errors.New("--watch requires --loam")
	}
	changes, err := setup.Loader.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching flows for changes")
	for id := range changes {
		if err := setup.Reload(ctx, id); err != nil {
			logger.Warn("flow reload failed", "flow_id", id, "err", err)
		}
	}
	return nil
}
