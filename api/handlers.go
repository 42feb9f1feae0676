package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/internal/report"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RateRequest is the body for POST /api/v1/rate.
type RateRequest struct {
	Metric  string   `json:"metric" validate:"required"`
	Value   *float64 `json:"value"`
	Sector  string   `json:"sector,omitempty"`
	Profile string   `json:"profile,omitempty"`
}

// ScoreRequest is the body for POST /api/v1/score.
type ScoreRequest struct {
	Profile string              `json:"profile,omitempty"`
	Values  map[string]*float64 `json:"values" validate:"required,min=1"`
	Sector  string              `json:"sector,omitempty"`
}

// WatchlistRequest is the body for POST /api/v1/watchlist.
type WatchlistRequest struct {
	Tickers   []string `json:"tickers" validate:"required,min=1,max=50,dive,required"`
	Profile   string   `json:"profile,omitempty"`
	Narrative bool     `json:"narrative,omitempty"`
}

// ProfileInfo describes a scoring profile.
type ProfileInfo struct {
	rating.Profile
	Max          int    `json:"max"`
	SecondaryMax int    `json:"secondary_max,omitempty"`
	Summary      string `json:"summary"`
	Default      bool   `json:"default"`
}

// MethodologyInfo is the threshold table and verdict tiers.
type MethodologyInfo struct {
	Thresholds []rating.Threshold `json:"thresholds"`
	Tiers      []rating.TierRule  `json:"tiers"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    Version,
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	def := s.engine.DefaultProfile().Name
	profiles := s.engine.Profiles()
	out := make([]ProfileInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileInfo(p, def))
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Profile(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    profileInfo(p, s.engine.DefaultProfile().Name),
	})
}

func (s *Server) handleMethodology(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: MethodologyInfo{
			Thresholds: rating.Thresholds(),
			Tiers:      rating.DefaultTiers,
		},
	})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !s.decode(w, r, &req) {
		return
	}

	m, err := rating.ParseMetric(req.Metric)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.engine.Profile(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Rate(rating.NewReading(m, req.Value, req.Sector), p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !s.decode(w, r, &req) {
		return
	}

	values := make(map[rating.Metric]*float64, len(req.Values))
	for key, v := range req.Values {
		m, err := rating.ParseMetric(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, dup := values[m]; dup {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("metric %s given more than once", m))
			return
		}
		values[m] = v
	}

	comp, err := s.engine.ScoreNamed(req.Profile, rating.ReadingsFromValues(values, req.Sector))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: comp})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if format == report.FormatTable {
		format = report.FormatJSON
	}

	narrative := s.cfg.Analysis.Narrative
	if v := q.Get("narrative"); v != "" {
		narrative, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "narrative must be a boolean")
			return
		}
	}

	a, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		Ticker:        chi.URLParam(r, "ticker"),
		Profile:       q.Get("profile"),
		Narrative:     narrative,
		HistoryPeriod: q.Get("period"),
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	switch format {
	case report.FormatJSON:
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: a})
	case report.FormatMarkdown:
		writeBody(w, "text/markdown; charset=utf-8", []byte(report.Markdown(a, s.reportCfg)))
	default:
		var buf bytes.Buffer
		if err := report.Render(&buf, a, format, s.reportCfg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeBody(w, contentType(format), buf.Bytes())
	}
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	var req WatchlistRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Profile != "" {
		if _, err := s.engine.Profile(req.Profile); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	results := s.analyzer.AnalyzeMany(r.Context(), req.Tickers, analysis.Request{
		Profile:   req.Profile,
		Narrative: req.Narrative,
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

// ============================================================
// Helpers
// ============================================================

func profileInfo(p rating.Profile, defaultName string) ProfileInfo {
	return ProfileInfo{
		Profile:      p,
		Max:          p.Max(),
		SecondaryMax: p.SecondaryMax(),
		Summary:      p.Summary(),
		Default:      p.Name == defaultName,
	}
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "invalid request: " + strings.Join(msgs, ", ")
}

// statusFor maps analysis errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, utils.ErrInvalidTicker),
		errors.Is(err, rating.ErrUnknownProfile),
		errors.Is(err, rating.ErrUnsupportedMetric):
		return http.StatusBadRequest
	case errors.Is(err, datasource.ErrTickerNotFound),
		errors.Is(err, datasource.ErrNoHistory):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatHTML:
		return "text/html; charset=utf-8"
	case report.FormatPDF:
		return "application/pdf"
	case report.FormatYAML:
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}
