package cli

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/study-advisor/internal/httpapi"
	"github.com/khanglvm/study-advisor/internal/mcp"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	var sweepEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the streaming HTTP API",
		Long: `Start the HTTP server. Analysis and chat responses stream as
newline-delimited JSON events; the cache is swept in the background.

Endpoints:
  POST /api/analysis          run the three stages
  POST /api/chat              follow-up question (X-Session-ID)
  POST /api/feedback          rate a stage result
  GET  /api/stats             cache, knowledge and usage statistics
  GET  /api/knowledge/search  query the knowledge base
  GET  /health`,
		Example: `  study-advisor serve
  study-advisor serve --addr 0.0.0.0:8080 --sweep-every 30m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if addr == "" {
				addr = a.Config.Server.Addr
			}
			srv := httpapi.New(a, a.Config.Log.Development)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx, addr)
			})
			if a.Cache != nil && sweepEvery > 0 {
				g.Go(func() error {
					return a.RunSweeper(gctx, sweepEvery)
				})
			}

			err = g.Wait()
			a.Logger.Info("Server stopped", zap.Error(err))
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().DurationVar(&sweepEvery, "sweep-every", time.Hour, "Cache sweep interval; 0 disables")

	return cmd
}

func newMCPCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the MCP server over stdin/stdout. Logs go to stderr.

Tools:
  • advisor_analyze  - run the three-stage analysis
  • advisor_chat     - follow-up question in an analysed session
  • advisor_feedback - rate a stage result
  • knowledge_search - query the knowledge base
  • advisor_stats    - cache, knowledge and usage statistics`,
		Example: `  # Register with an MCP client
  claude mcp add study-advisor -- study-advisor mcp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(a)

			a.Logger.Info("MCP server starting")
			return mcp.NewServer(a).Run()
		},
	}
}
