// Package api provides the HTTP REST API server for stockscore.
//
// It exposes endpoints for rating single ratios, scoring ratio sets under a
// profile, full ticker analysis, watchlists, and WebSocket streaming of
// completed analyses.
package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/internal/report"
	"github.com/seenimoa/stockscore/web"
)

// Version is reported by the health endpoint. Set by the CLI at startup.
var Version = "dev"

// Analyzer runs ticker analyses. *analysis.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Analysis, error)
	AnalyzeMany(ctx context.Context, tickers []string, req analysis.Request) []analysis.BatchResult
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	engine    *rating.Engine
	analyzer  Analyzer
	reportCfg report.Config
	validate  *validator.Validate
	wsHub     *WSHub
	serveUI   bool // when true, serve the embedded dashboard at /
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithHub makes the server stream events from hub. Register
// hub.BroadcastAnalysis as an analyzer observer to publish analyses.
func WithHub(hub *WSHub) ServerOption {
	return func(s *Server) { s.wsHub = hub }
}

// NewServer creates a configured API server with all routes and middleware.
// The engine scores /rate and /score requests; the analyzer serves ticker
// analysis and watchlists.
func NewServer(cfg *config.Config, engine *rating.Engine, analyzer Analyzer, opts ...ServerOption) *Server {
	rc := report.DefaultConfig()
	if cfg.Report.PageSize != "" {
		rc.PageSize = cfg.Report.PageSize
	}

	srv := &Server{
		cfg:       cfg,
		engine:    engine,
		analyzer:  analyzer,
		reportCfg: rc,
		validate:  validator.New(),
		wsHub:     NewWSHub(),
		serveUI:   true,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded dashboard is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled
// or SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Scoring
		r.Get("/profiles", s.handleProfiles)
		r.Get("/profiles/{name}", s.handleProfile)
		r.Get("/methodology", s.handleMethodology)
		r.Post("/rate", s.handleRate)
		r.Post("/score", s.handleScore)

		// Analysis
		r.With(middleware.Timeout(s.analysisTimeout())).Get("/analyze/{ticker}", s.handleAnalyze)
		r.With(middleware.Timeout(s.analysisTimeout())).Post("/watchlist", s.handleWatchlist)

		// Config
		r.Get("/config", s.handleGetConfig)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	if s.serveUI {
		mountUI(r, web.DistFS())
	}

	return r
}

// mountUI serves the embedded dashboard. Unknown paths fall back to
// index.html.
func mountUI(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := strings.TrimPrefix(req.URL.Path, "/")
		if path != "" {
			if f, err := distFS.Open(path); err == nil {
				f.Close()
				fileServer.ServeHTTP(w, req)
				return
			}
		}

		data, err := fs.ReadFile(distFS, "index.html")
		if err != nil {
			http.Error(w, "dashboard not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		writeBody(w, "text/html; charset=utf-8", data)
	})
}

func (s *Server) analysisTimeout() time.Duration {
	if s.cfg.Analysis.TimeoutSec > 0 {
		return time.Duration(s.cfg.Analysis.TimeoutSec) * time.Second
	}
	return 120 * time.Second
}

// requestLogger logs one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
