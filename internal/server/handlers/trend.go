// internal/server/handlers/trend.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"problemhunter/internal/adapter/storage"
	"problemhunter/internal/domain/trend"
)

// TrendAnalyzer answers trend queries for the API
type TrendAnalyzer interface {
	TrendByHash(ctx context.Context, problemHash string) (*trend.ProblemTrend, error)
	EmergingTrends(ctx context.Context, days, minRecent int) ([]trend.Report, error)
	DecliningTrends(ctx context.Context, days int) ([]trend.Report, error)
	FrequencyStats(ctx context.Context, problemHash string, days int) (trend.FrequencyStats, error)
}

// TrendHandler handles trend-related HTTP requests
type TrendHandler struct {
	analyzer TrendAnalyzer
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(analyzer TrendAnalyzer) *TrendHandler {
	return &TrendHandler{
		analyzer: analyzer,
	}
}

// GetEmerging returns problems gaining momentum in the trailing window
func (h *TrendHandler) GetEmerging(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	minRecent := queryInt(r, "min_recent", 2)

	reports, err := h.analyzer.EmergingTrends(r.Context(), days, minRecent)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get emerging trends", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"window_days": days,
		"trends":      reports,
	})
}

// GetDeclining returns problems losing momentum
func (h *TrendHandler) GetDeclining(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)

	reports, err := h.analyzer.DecliningTrends(r.Context(), days)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get declining trends", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"window_days": days,
		"trends":      reports,
	})
}

// GetTrend returns the stored aggregate for a single problem
func (h *TrendHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		respondWithError(w, http.StatusBadRequest, "Missing problem hash", nil)
		return
	}

	t, err := h.analyzer.TrendByHash(r.Context(), hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Trend not found", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get trend", err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

// GetFrequency returns mention histograms for a single problem
func (h *TrendHandler) GetFrequency(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		respondWithError(w, http.StatusBadRequest, "Missing problem hash", nil)
		return
	}
	days := queryInt(r, "days", 30)

	stats, err := h.analyzer.FrequencyStats(r.Context(), hash, days)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get frequency stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"problem_hash": hash,
		"window_days":  days,
		"frequency":    stats,
	})
}

// queryInt parses an integer query parameter with a default
func queryInt(r *http.Request, name string, defaultValue int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["detail"] = err.Error()
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
