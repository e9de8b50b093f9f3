// internal/server/handlers/post.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"problemhunter/internal/adapter/storage"
	"problemhunter/internal/domain/post"
)

// PostStore exposes the stored-post read queries the API serves
type PostStore interface {
	RecentPosts(ctx context.Context, days int, src string) ([]post.Post, error)
	AnalysisHistory(ctx context.Context, postID string) ([]storage.AnalysisRecord, error)
}

// PostHandler handles stored-post HTTP requests
type PostHandler struct {
	store PostStore
}

// NewPostHandler creates a new post handler
func NewPostHandler(store PostStore) *PostHandler {
	return &PostHandler{
		store: store,
	}
}

// GetRecent returns posts first seen within the trailing window, newest first
func (h *PostHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	src := r.URL.Query().Get("source")

	posts, err := h.store.RecentPosts(r.Context(), days, src)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get recent posts", err)
		return
	}
	if posts == nil {
		posts = []post.Post{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"window_days": days,
		"source":      src,
		"posts":       posts,
	})
}

// GetAnalysisHistory returns every classification event for a post, newest first
func (h *PostHandler) GetAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing post id", nil)
		return
	}

	records, err := h.store.AnalysisHistory(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get analysis history", err)
		return
	}
	if len(records) == 0 {
		respondWithError(w, http.StatusNotFound, "No analyses for post", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"post_id":  id,
		"analyses": records,
	})
}
