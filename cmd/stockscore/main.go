// stockscore: threshold-based stock health checks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/internal/report"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockscore",
	Short: "stockscore: threshold-based stock health checks",
	Long: `stockscore rates a stock's fundamental ratios (P/E, P/S, P/B, ROE,
debt/equity and more) against fixed thresholds, sums the points under a
scoring profile, and maps the composite to a Strong Buy / Hold / Avoid tier.

Educational use only. Not financial advice.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return eris.Wrap(err, "failed to load config")
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return config.InitLogger(cfg.Logging)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "stockscore %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  stockscore: System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:         %s (%s)\n", version, commit)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Default profile: %s\n", cfg.Scoring.DefaultProfile)
		fmt.Fprintf(out, "    Narrative LLM:   %s (fallbacks: %v)\n", cfg.LLM.Primary, cfg.LLM.Fallbacks)
		fmt.Fprintf(out, "    Data source:     %s\n", cfg.DataSource.YahooBaseURL)
		fmt.Fprintf(out, "    Screener.in:     %v\n", cfg.DataSource.ScreenerFallback)
		fmt.Fprintf(out, "    Cache TTL:       %ds\n", cfg.DataSource.CacheTTL)
		fmt.Fprintf(out, "    API Server:      %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Fprintf(out, "    %-20s %s\n", k.Name+":", status)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

// --- Profiles Command ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List scoring profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := cfg.Engine()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.ProfileTable(engine.Profiles(), engine.DefaultProfile().Name))

		if show, _ := cmd.Flags().GetBool("methodology"); show {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), report.Methodology())
		}
		return nil
	},
}

func init() {
	profilesCmd.Flags().Bool("methodology", false, "also print the threshold table and verdict tiers")
}

// --- Rate Command ---

var rateCmd = &cobra.Command{
	Use:   "rate METRIC VALUE",
	Short: "Rate a single ratio against its threshold table",
	Long: `Rate a single ratio against its threshold table.

Examples:
  stockscore rate PE 18.5
  stockscore rate PB 9 --sector Technology
  stockscore rate ROE 22 --profile three`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := rating.ParseMetric(args[0])
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "invalid value %q", args[1])
		}

		engine, err := cfg.Engine()
		if err != nil {
			return err
		}
		profileName, _ := cmd.Flags().GetString("profile")
		p, err := engine.Profile(profileName)
		if err != nil {
			return err
		}
		sector, _ := cmd.Flags().GetString("sector")

		res, err := engine.Rate(rating.NewReading(m, &v, sector), p)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s: %s\n", res.Name, utils.FormatRatio(res.Value), res.Label)
		if res.Max > 0 {
			fmt.Fprintf(out, "  %d/%d points under profile %q\n", res.Score, res.Max, p.Name)
		} else {
			fmt.Fprintf(out, "  not scored by profile %q\n", p.Name)
		}
		return nil
	},
}

func init() {
	rateCmd.Flags().String("sector", "", "sector, consulted for P/B (e.g. Technology)")
	rateCmd.Flags().String("profile", "", "scoring profile (default from config)")
}
