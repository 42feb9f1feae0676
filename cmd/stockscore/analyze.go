package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/llm"
	"github.com/seenimoa/stockscore/internal/report"
)

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze TICKER",
	Short: "Fetch fundamentals for a ticker and score them",
	Long: `Fetch fundamentals, price history and headlines for a ticker, rate each
ratio, and print the composite score and verdict.

Examples:
  stockscore analyze AAPL
  stockscore analyze TCS.NS --profile three --format markdown
  stockscore analyze MSFT --narrative --pdf msft.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(flagString(cmd, "format", cfg.Report.Format))
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		analyzer, err := buildAnalyzer(ctx, cfg, wantNarrative(cmd))
		if err != nil {
			return err
		}

		a, err := analyzer.Analyze(ctx, analysis.Request{
			Ticker:        args[0],
			Profile:       flagString(cmd, "profile", ""),
			Narrative:     wantNarrative(cmd),
			HistoryPeriod: flagString(cmd, "period", ""),
		})
		if err != nil {
			return err
		}

		rc := reportConfig(cfg)
		if format != report.FormatPDF {
			if err := report.Render(cmd.OutOrStdout(), a, format, rc); err != nil {
				return err
			}
		}

		pdfPath := flagString(cmd, "pdf", "")
		if format == report.FormatPDF && pdfPath == "" {
			pdfPath = strings.ToLower(a.Ticker) + ".pdf"
		}
		if pdfPath != "" {
			if err := report.WritePDF(pdfPath, a, rc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "PDF written to %s\n", pdfPath)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("profile", "", "scoring profile (default from config, fund for ETFs)")
	analyzeCmd.Flags().Bool("narrative", false, "add an LLM-written commentary")
	analyzeCmd.Flags().String("format", "", "output format: table, json, yaml, markdown, html, pdf")
	analyzeCmd.Flags().String("pdf", "", "also write a PDF report to this file")
	analyzeCmd.Flags().String("period", "", "price history range, e.g. 1mo, 6mo, 1y")
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch TICKER [TICKER...]",
	Short: "Score a watchlist concurrently",
	Long: `Score several tickers concurrently and print one summary line each.
With --interval the watchlist is re-scored until interrupted.

Examples:
  stockscore watch AAPL MSFT GOOGL
  stockscore watch RELIANCE.NS TCS.NS --profile three --interval 15m`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		analyzer, err := buildAnalyzer(ctx, cfg, wantNarrative(cmd))
		if err != nil {
			return err
		}

		req := analysis.Request{
			Profile:   flagString(cmd, "profile", ""),
			Narrative: wantNarrative(cmd),
		}
		jsonOut := strings.EqualFold(flagString(cmd, "format", ""), "json")
		interval, _ := cmd.Flags().GetDuration("interval")

		for {
			results := analyzer.AnalyzeMany(ctx, args, req)
			if jsonOut {
				if err := writeBatchJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				printWatchlist(cmd.OutOrStdout(), results)
			}

			if interval <= 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("profile", "", "scoring profile (default from config)")
	watchCmd.Flags().Bool("narrative", false, "add an LLM-written commentary per ticker")
	watchCmd.Flags().String("format", "table", "output format: table or json")
	watchCmd.Flags().Duration("interval", 0, "re-score every interval until interrupted")
}

// ============================================================
// Wiring
// ============================================================

// buildAnalyzer wires the data sources, rating engine and, when asked for,
// the narrative router. extra options are applied last.
func buildAnalyzer(ctx context.Context, cfg *config.Config, narrative bool, extra ...analysis.Option) (*analysis.Analyzer, error) {
	engine, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	ds := cfg.DataSource
	agg := datasource.NewDefaultAggregator(datasource.Options{
		YahooBaseURL:      ds.YahooBaseURL,
		ScreenerBaseURL:   ds.ScreenerBaseURL,
		NewsFeedURL:       ds.NewsFeedURL,
		RequestsPerSecond: ds.RequestsPerSecond,
		CacheTTL:          ds.CacheDuration(),
		Timeout:           time.Duration(ds.TimeoutSec) * time.Second,
	}, ds.ScreenerFallback, ds.HeadlineLimit)

	opts := []analysis.Option{
		analysis.WithHistoryPeriod(ds.HistoryRange),
		analysis.WithConcurrency(cfg.Analysis.ConcurrentFetches),
	}

	if narrative {
		router, err := llm.NewRouterFromConfig(ctx, cfg.LLM)
		switch {
		case err == nil:
			opts = append(opts, analysis.WithNarrator(router))
		case eris.Is(err, llm.ErrNoProviders):
			zap.L().Warn("narrative requested but no LLM provider is configured")
		default:
			return nil, err
		}
	}

	return analysis.NewAnalyzer(engine, agg, append(opts, extra...)...), nil
}

func reportConfig(cfg *config.Config) report.Config {
	rc := report.DefaultConfig()
	if cfg.Report.PageSize != "" {
		rc.PageSize = cfg.Report.PageSize
	}
	return rc
}

// commandContext is cancelled on SIGINT/SIGTERM and after the configured
// analysis timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 || cfg.Analysis.TimeoutSec <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Analysis.TimeoutSec)*time.Second)
	return tctx, func() {
		cancel()
		stop()
	}
}

func wantNarrative(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("narrative") {
		v, _ := cmd.Flags().GetBool("narrative")
		return v
	}
	return cfg.Analysis.Narrative
}

func flagString(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

func printWatchlist(w io.Writer, results []analysis.BatchResult) {
	fmt.Fprintf(w, "%-14s %-8s %8s   %s\n", "TICKER", "PROFILE", "SCORE", "VERDICT")
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, r := range results {
		if r.Analysis == nil {
			fmt.Fprintf(w, "%-14s %-8s %8s   error: %s\n", r.Ticker, "-", "-", r.Error)
			continue
		}
		c := r.Analysis.Composite
		fmt.Fprintf(w, "%-14s %-8s %8s   %s\n", r.Ticker, c.Profile,
			fmt.Sprintf("%d/%d", c.Score, c.Max), c.Verdict.Label.String())
	}
}

// writeBatchJSON writes the whole batch as one JSON array. Failed tickers
// keep their entry with the error message.
func writeBatchJSON(w io.Writer, results []analysis.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return eris.Wrap(err, "encode watchlist")
	}
	return nil
}
