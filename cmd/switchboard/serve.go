package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/switchboard/internal/cli"
	httpAdapter "github.com/aretw0/switchboard/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversation API over HTTP",
	Long: `Starts the engine behind a JSON API. Inbound chat events are posted to
/events, flows are managed under /flows and metrics are exposed on /metrics.
With --mcp-addr the same engine is offered as MCP tools over SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg, hooks, err := newRegistry(logger)
		if err != nil {
			return err
		}
		setup, err := cli.CreateEngine(ctx, engineOptions(cmd), logger, hooks)
		if err != nil {
			return err
		}
		defer setup.Close()

		addr, _ := cmd.Flags().GetString("addr")
		mcpAddr, _ := cmd.Flags().GetString("mcp-addr")
		mcpBaseURL, _ := cmd.Flags().GetString("mcp-base-url")
		watch, _ := cmd.Flags().GetBool("watch")
		maxBody, _ := cmd.Flags().GetInt64("max-body")

		return cli.RunServe(ctx, setup, cli.ServeOptions{
			Addr:        addr,
			MCPAddr:     mcpAddr,
			MCPBaseURL:  mcpBaseURL,
			Watch:       watch,
			MaxBodySize: maxBody,
		}, reg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addEngineFlags(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("mcp-addr", "", "Also serve MCP over SSE on this address")
	serveCmd.Flags().String("mcp-base-url", "", "Public base URL of the MCP server")
	serveCmd.Flags().BoolP("watch", "w", false, "Republish flows when their files change (requires --loam)")
	serveCmd.Flags().Int64("max-body", httpAdapter.DefaultMaxBodySize, "Maximum request body in bytes")
}
