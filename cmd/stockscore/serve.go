package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/api"
	"github.com/seenimoa/stockscore/internal/analysis"
)

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and dashboard",
	Long: `Start the REST API, the WebSocket event feed and the embedded dashboard.

Examples:
  stockscore serve
  stockscore serve --port 9090 --no-ui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		if host == "" {
			host = cfg.API.Host
		}
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.API.Port
		}
		noUI, _ := cmd.Flags().GetBool("no-ui")

		engine, err := cfg.Engine()
		if err != nil {
			return err
		}
		hub := api.NewWSHub()
		analyzer, err := buildAnalyzer(cmd.Context(), cfg, true, analysis.WithObserver(hub.BroadcastAnalysis))
		if err != nil {
			return err
		}

		api.Version = version
		srv := api.NewServer(cfg, engine, analyzer, api.WithHub(hub))
		srv.SetServeUI(!noUI)

		addr := fmt.Sprintf("%s:%d", host, port)
		zap.L().Info("starting stockscore server",
			zap.String("addr", addr),
			zap.String("default_profile", engine.DefaultProfile().Name),
			zap.Bool("ui", !noUI),
		)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (default from config)")
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
	serveCmd.Flags().Bool("no-ui", false, "disable the embedded dashboard")
}
