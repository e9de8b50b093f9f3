// Package aggregate fans fetch requests out to independently-failing sources
// and fans the results back into one clean, deduplicated post list.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/source"
)

const (
	// DefaultMaxWorkers caps simultaneous in-flight source fetches.
	DefaultMaxWorkers = 5
	// DefaultSourceTimeout bounds a single source fetch so one hung source
	// cannot stall the worker pool indefinitely.
	DefaultSourceTimeout = 30 * time.Second
)

// Config contains tunables for the aggregator.
type Config struct {
	MaxWorkers    int
	SourceTimeout time.Duration
}

// Aggregator runs all configured sources concurrently, collects results and
// errors independently, and validates, merges, and filters the output.
type Aggregator struct {
	maxWorkers    int
	sourceTimeout time.Duration
	metrics       *Metrics
	log           *logrus.Logger

	mu    sync.Mutex
	stats FetchStats
}

// New creates an aggregator. Zero config fields fall back to defaults.
func New(cfg Config, metrics *Metrics, log *logrus.Logger) *Aggregator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultSourceTimeout
	}
	if log == nil {
		log = logrus.New()
	}
	return &Aggregator{
		maxWorkers:    cfg.MaxWorkers,
		sourceTimeout: cfg.SourceTimeout,
		metrics:       metrics,
		log:           log,
		stats:         newFetchStats(),
	}
}

// Result is the merged outcome of one multi-source fetch. Posts are ordered
// by source completion, not submission: sources race by design. Errors maps
// source name to a failure description for sources that failed outright.
// An empty Posts with a fully-populated Errors means every source failed,
// which callers must treat as distinct from "no matches".
type Result struct {
	Posts  []post.Post       `json:"posts"`
	Errors map[string]string `json:"errors"`
	Stats  FetchStats        `json:"stats"`
}

// outcome is what one source worker reports back to the coordinator.
type outcome struct {
	name    string
	posts   []post.Post
	err     string
	elapsed time.Duration
	ok      bool
}

// FetchFromSources fetches from every source in parallel on a bounded worker
// pool. One source's failure, timeout, or panic never delays or cancels the
// others; failures become error-map entries, never call-level errors.
func (a *Aggregator) FetchFromSources(ctx context.Context, sources []source.Source, q source.Query) Result {
	results := make(chan outcome, len(sources))
	sem := make(chan struct{}, a.maxWorkers)

	for _, src := range sources {
		go func(src source.Source) {
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- a.fetchOne(ctx, src, q)
		}(src)
	}

	merged := Result{Errors: make(map[string]string)}

	// Merge in completion order; the coordinator is the only goroutine
	// touching the stats counters.
	outcomes := make([]outcome, 0, len(sources))
	for range sources {
		out := <-results
		outcomes = append(outcomes, out)
		if out.ok {
			merged.Posts = append(merged.Posts, out.posts...)
		} else {
			merged.Errors[out.name] = out.err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, out := range outcomes {
		a.stats.TotalFetches++
		a.stats.FetchTimes[out.name] = out.elapsed.Seconds()
		if out.ok {
			a.stats.SuccessfulFetches++
			a.stats.TotalPosts += len(out.posts)
		} else {
			a.stats.FailedFetches++
		}
	}
	merged.Stats = a.stats.snapshot()

	return merged
}

// fetchOne wraps a single source fetch with timing, a per-source timeout, and
// panic/error capture. Invalid posts are dropped with a warning; they are
// routine noise from heterogeneous sources, not failures.
func (a *Aggregator) fetchOne(ctx context.Context, src source.Source, q source.Query) (out outcome) {
	out.name = src.Name()
	start := time.Now()

	defer func() {
		out.elapsed = time.Since(start)
		if r := recover(); r != nil {
			out.ok = false
			out.posts = nil
			out.err = fmt.Sprintf("source panicked: %v", r)
		}
		a.metrics.observeFetch(out.name, out.ok, out.elapsed)
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
	defer cancel()

	posts, err := src.Fetch(fetchCtx, q)
	if err != nil {
		out.err = err.Error()
		return out
	}
	if posts == nil {
		// The contract requires a slice even when empty; nil is a
		// malformed payload, not a crash.
		out.err = "invalid return: source produced no result set"
		return out
	}

	accepted := posts[:0:0]
	dropped := 0
	for _, p := range posts {
		if p.Valid() {
			accepted = append(accepted, p)
			continue
		}
		dropped++
		a.log.WithFields(logrus.Fields{
			"source": out.name,
			"id":     p.ID,
		}).Warn("dropping post with missing required fields")
	}
	a.metrics.observePosts(len(accepted), out.name, dropped)

	out.ok = true
	out.posts = accepted
	return out
}

// Deduplicate removes duplicate posts by id, keeping the first occurrence in
// order. Posts with an empty id cannot be deduplicated safely and are
// dropped entirely.
func (a *Aggregator) Deduplicate(posts []post.Post) []post.Post {
	seen := make(map[string]struct{}, len(posts))
	unique := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// SortPosts stably sorts by an arbitrary numeric field; posts missing the
// field sort as 0.
func (a *Aggregator) SortPosts(posts []post.Post, field string, descending bool) []post.Post {
	sorted := make([]post.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].NumericField(field) > sorted[j].NumericField(field)
		}
		return sorted[i].NumericField(field) < sorted[j].NumericField(field)
	})
	return sorted
}

// Filter selects posts conjunctively; nil criteria are no-ops.
type Filter struct {
	MinScore       *int
	Sources        []string
	AfterTimestamp *int64
}

// FilterPosts applies the filter. Missing fields default to zero values and
// exclude rather than crash.
func (a *Aggregator) FilterPosts(posts []post.Post, f Filter) []post.Post {
	allowed := make(map[string]struct{}, len(f.Sources))
	for _, s := range f.Sources {
		allowed[s] = struct{}{}
	}

	filtered := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if f.MinScore != nil && p.Score < *f.MinScore {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[p.Source]; !ok {
				continue
			}
		}
		if f.AfterTimestamp != nil && p.CreatedUTC < *f.AfterTimestamp {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// Stats returns a snapshot of the running counters.
func (a *Aggregator) Stats() FetchStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.snapshot()
}

// ResetStats clears all counters.
func (a *Aggregator) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = newFetchStats()
}
