package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/cryptostrat/internal/report"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode json response")
	}
}

// handleHealth reports liveness plus the resource panel.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct, err := resourceUsage()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read resource usage")
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "cryptostrat",
		"uptime":  time.Since(s.cfg.StartedAt).String(),
		"cpu_pct": cpuPct,
		"mem_pct": memPct,
		"symbols": s.cfg.Symbols,
	})
}

// handleStatus reports the strategy state for every tracked symbol.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]interface{}, len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		state, err := s.cfg.Strategy.Latest(sym)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", sym).Msg("failed to load strategy state")
			http.Error(w, "failed to load strategy state", http.StatusInternalServerError)
			return
		}
		out[sym] = state
	}
	budget, _ := s.cfg.Usage.Get(time.Now().UTC().Format("2006-01-02"))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols":           out,
		"gemini_calls_used": budget,
	})
}

// handleSymbolStatus reports one symbol's strategy state.
func (s *Server) handleSymbolStatus(w http.ResponseWriter, r *http.Request) {
	sym := chi.URLParam(r, "symbol")
	state, err := s.cfg.Strategy.Latest(sym)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", sym).Msg("failed to load strategy state")
		http.Error(w, "failed to load strategy state", http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.Error(w, "no strategy state for symbol", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// handleReport serves the performance report for one symbol.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sym := chi.URLParam(r, "symbol")
	summary, err := report.Generate(s.cfg.Trades, s.cfg.Summaries, s.cfg.Funding, s.cfg.Grid, s.cfg.Klines, sym)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", sym).Msg("failed to generate report")
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}
