// internal/server/handlers/hunt.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"problemhunter/internal/service/hunt"
	"problemhunter/internal/source"
)

// HuntHandler triggers discovery pipeline runs over HTTP
type HuntHandler struct {
	hunter       *hunt.Hunter
	sources      []source.Source
	defaultLimit int
}

// NewHuntHandler creates a new hunt handler
func NewHuntHandler(hunter *hunt.Hunter, sources []source.Source, defaultLimit int) *HuntHandler {
	if defaultLimit <= 0 {
		defaultLimit = 25
	}
	return &HuntHandler{
		hunter:       hunter,
		sources:      sources,
		defaultLimit: defaultLimit,
	}
}

// huntRequest is the POST body for starting a hunt
type huntRequest struct {
	Keywords   []string `json:"keywords"`
	Limit      int      `json:"limit"`
	BrowseMode bool     `json:"browse_mode"`
	Sort       string   `json:"sort"`
	Sources    []string `json:"sources"`
}

// StartHunt runs the pipeline synchronously and returns its summary
func (h *HuntHandler) StartHunt(w http.ResponseWriter, r *http.Request) {
	var req huntRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Keywords) == 0 && !req.BrowseMode {
		respondWithError(w, http.StatusBadRequest, "Either keywords or browse_mode is required", nil)
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}

	selected := h.selectSources(req.Sources)
	if len(selected) == 0 {
		respondWithError(w, http.StatusBadRequest, "No matching sources", nil)
		return
	}

	summary, err := h.hunter.Run(r.Context(), selected, hunt.Options{
		Keywords:       req.Keywords,
		LimitPerSource: req.Limit,
		BrowseMode:     req.BrowseMode,
		Sort:           source.Sort(req.Sort),
	})
	if err != nil {
		if errors.Is(err, hunt.ErrAllSourcesFailed) {
			respondWithJSON(w, http.StatusBadGateway, summary)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Hunt failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// selectSources filters the configured sources by name, or returns all of
// them when no filter is given
func (h *HuntHandler) selectSources(names []string) []source.Source {
	if len(names) == 0 {
		return h.sources
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var selected []source.Source
	for _, s := range h.sources {
		if wanted[s.Name()] {
			selected = append(selected, s)
		}
	}
	return selected
}
