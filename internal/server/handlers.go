package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/fundwatch/internal/collection"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.cfg.Health.Check()
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

// handleEstimate fetches one fund's intraday estimate through the
// fallback chain.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	est, err := s.cfg.Collector.Collect(r.Context(), code)
	if err != nil {
		if errors.Is(err, collection.ErrAllProvidersFailed) {
			s.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, est)
}

type batchRequest struct {
	FundCodes []string `json:"fund_codes"`
}

// handleEstimateBatch fetches estimates for many funds.
func (s *Server) handleEstimateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.FundCodes) == 0 {
		s.writeError(w, http.StatusBadRequest, "fund_codes is required")
		return
	}

	result, err := s.cfg.Collector.CollectBatch(r.Context(), req.FundCodes)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	failed := make(map[string]string, len(result.Failed))
	for code, ferr := range result.Failed {
		failed[code] = ferr.Error()
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"estimates": result.Estimates,
		"failed":    failed,
	})
}

// handleCollectorStatus reports every provider's circuit state.
func (s *Server) handleCollectorStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.cfg.Collector.Status(),
	})
}

// handleCollectorReset re-enables all providers.
func (s *Server) handleCollectorReset(w http.ResponseWriter, r *http.Request) {
	s.cfg.Collector.ResetAll()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.cfg.Collector.Status(),
	})
}

// handlePipelineRun triggers a validate-and-merge cycle.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.cfg.Pipeline.Run(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleStagingStats reports staging row counts per state.
func (s *Server) handleStagingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.StagingRepo.CountsByStatus()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleFundInfo returns one fund's catalogue entry.
func (s *Server) handleFundInfo(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	info, err := s.cfg.FundRepo.Get(code)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if info == nil {
		s.writeError(w, http.StatusNotFound, "fund not found")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handleFundMetrics returns one fund's latest metric record.
func (s *Server) handleFundMetrics(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	rec, err := s.cfg.MetricsRepo.Latest(code)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "no metrics for fund")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleFundScore returns one fund's latest score.
func (s *Server) handleFundScore(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	score, err := s.cfg.ScoreRepo.Latest(code)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if score == nil {
		s.writeError(w, http.StatusNotFound, "no score for fund")
		return
	}
	s.writeJSON(w, http.StatusOK, score)
}

// handleTopScores returns the highest-rated funds.
func (s *Server) handleTopScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.cfg.ScoreRepo.TopScores(20)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
}

// handleScoreDistribution returns fund counts per score level.
func (s *Server) handleScoreDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.cfg.ScoreRepo.LevelDistribution()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, dist)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
