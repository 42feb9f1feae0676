package api

import (
	"net/http"

	"github.com/seenimoa/stockscore/internal/config"
)

// ConfigView is the redacted configuration returned by GET /api/v1/config.
// API keys appear only as masked key statuses.
type ConfigView struct {
	DefaultProfile string             `json:"default_profile"`
	Profiles       []string           `json:"profiles"`
	LLMPrimary     string             `json:"llm_primary"`
	LLMFallbacks   []string           `json:"llm_fallbacks,omitempty"`
	Narrative      bool               `json:"narrative_default"`
	HistoryRange   string             `json:"history_range"`
	CacheTTL       int                `json:"cache_ttl_sec"`
	Keys           []config.KeyStatus `json:"keys"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	profiles := s.engine.Profiles()
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigView{
			DefaultProfile: s.engine.DefaultProfile().Name,
			Profiles:       names,
			LLMPrimary:     s.cfg.LLM.Primary,
			LLMFallbacks:   s.cfg.LLM.Fallbacks,
			Narrative:      s.cfg.Analysis.Narrative,
			HistoryRange:   s.cfg.DataSource.HistoryRange,
			CacheTTL:       s.cfg.DataSource.CacheTTL,
			Keys:           config.CheckAPIKeys(s.cfg),
		},
	})
}
