// Package cache keeps recent classification results in memory so re-scanned
// posts skip the classifier.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"problemhunter/internal/domain/post"
)

// DefaultSize bounds the analysis cache when no size is configured.
const DefaultSize = 2048

// AnalysisCache is an LRU of classification results keyed by post id.
// Failure sentinels are never cached: a transient classifier error should
// not suppress a later successful classification.
type AnalysisCache struct {
	entries *lru.Cache[string, post.Analysis]
}

// New creates an analysis cache holding up to size entries.
func New(size int) (*AnalysisCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, post.Analysis](size)
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}
	return &AnalysisCache{entries: entries}, nil
}

// Get returns the cached analysis for a post id, if present.
func (c *AnalysisCache) Get(postID string) (post.Analysis, bool) {
	return c.entries.Get(postID)
}

// Put stores an analysis. Sentinels are dropped silently.
func (c *AnalysisCache) Put(postID string, a post.Analysis) {
	if a.Sentinel() {
		return
	}
	c.entries.Add(postID, a)
}

// Len reports the number of cached analyses.
func (c *AnalysisCache) Len() int {
	return c.entries.Len()
}

// Purge empties the cache.
func (c *AnalysisCache) Purge() {
	c.entries.Purge()
}
