// internal/server/handlers/stats.go

package handlers

import (
	"context"
	"net/http"

	"problemhunter/internal/adapter/storage"
	"problemhunter/internal/service/aggregate"
)

// StatsStore exposes database-level counters
type StatsStore interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

// FetchStatsProvider exposes in-process fetch counters
type FetchStatsProvider interface {
	Stats() aggregate.FetchStats
}

// StatsHandler serves operational statistics
type StatsHandler struct {
	store      StatsStore
	aggregator FetchStatsProvider
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store StatsStore, aggregator FetchStatsProvider) *StatsHandler {
	return &StatsHandler{
		store:      store,
		aggregator: aggregator,
	}
}

// GetStats returns storage totals alongside fetch counters for this process
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	dbStats, err := h.store.Stats(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"database": dbStats,
		"fetch":    h.aggregator.Stats(),
	})
}
