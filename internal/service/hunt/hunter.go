package hunt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"problemhunter/internal/adapter/cache"
	"problemhunter/internal/domain/post"
	"problemhunter/internal/service/aggregate"
	"problemhunter/internal/source"
)

const (
	// DefaultBatchSize is how many posts go to the classifier per request.
	DefaultBatchSize = 5

	// NATS subjects for pipeline events.
	SubjectHuntCompleted  = "hunt.completed"
	SubjectProblemTracked = "hunt.problem.tracked"
)

// ErrNoSources is returned when a hunt is started with nothing to fetch from.
var ErrNoSources = errors.New("hunt: no sources configured")

// ErrAllSourcesFailed is returned when every configured source errored and no
// posts were collected. The caller can inspect Summary.Errors for detail.
var ErrAllSourcesFailed = errors.New("hunt: all sources failed")

// Classifier turns raw posts into pain-point analyses.
type Classifier interface {
	Classify(ctx context.Context, posts []post.Post) ([]post.Analysis, error)
}

// PostStore persists posts and their analyses.
type PostStore interface {
	SavePost(ctx context.Context, p post.Post) error
	SaveAnalysis(ctx context.Context, postID string, a post.Analysis) error
}

// Tracker records recurring problems for trend analysis.
type Tracker interface {
	TrackProblem(ctx context.Context, postID, src string, a post.Analysis) (bool, error)
}

// Config tunes a Hunter.
type Config struct {
	BatchSize int
	Backoff   BackoffConfig
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize: DefaultBatchSize,
		Backoff:   DefaultBackoff(),
	}
}

// Options describe a single hunt run.
type Options struct {
	Keywords       []string
	LimitPerSource int
	BrowseMode     bool
	Sort           source.Sort
}

// Summary is the outcome of a hunt run.
type Summary struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    float64           `json:"duration_seconds"`
	Posts       []post.Post       `json:"posts"`
	Errors      map[string]string `json:"errors,omitempty"`
	PostsFound  int               `json:"posts_found"`
	Classified  int               `json:"classified"`
	FromCache   int               `json:"from_cache"`
	PainPoints  int               `json:"pain_points"`
	NewProblems int               `json:"new_problems"`
}

// Hunter runs the end-to-end discovery pipeline: fetch from all sources in
// parallel, dedupe and rank, classify in batches, persist, and track
// recurring problems.
type Hunter struct {
	aggregator *aggregate.Aggregator
	classifier Classifier
	store      PostStore
	tracker    Tracker
	cache      *cache.AnalysisCache
	eventBus   *nats.Conn
	config     Config
	log        *logrus.Logger
}

// New creates a Hunter. eventBus may be nil to disable event publishing.
func New(
	aggregator *aggregate.Aggregator,
	classifier Classifier,
	store PostStore,
	tracker Tracker,
	analysisCache *cache.AnalysisCache,
	eventBus *nats.Conn,
	config Config,
	log *logrus.Logger,
) *Hunter {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hunter{
		aggregator: aggregator,
		classifier: classifier,
		store:      store,
		tracker:    tracker,
		cache:      analysisCache,
		eventBus:   eventBus,
		config:     config,
		log:        log,
	}
}

// Run executes one hunt across the given sources. Posts in the returned
// Summary carry their analysis. Per-source fetch failures are collected in
// Summary.Errors rather than aborting the run; only storage failures and a
// total source outage are fatal.
func (h *Hunter) Run(ctx context.Context, sources []source.Source, opts Options) (*Summary, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	summary := &Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	runLog := h.log.WithFields(logrus.Fields{
		"run_id":  summary.RunID,
		"sources": len(sources),
	})
	runLog.Info("hunt started")

	result := h.aggregator.FetchFromSources(ctx, sources, source.Query{
		Keywords:   opts.Keywords,
		Limit:      opts.LimitPerSource,
		BrowseMode: opts.BrowseMode,
		Sort:       opts.Sort,
	})
	summary.Errors = result.Errors

	posts := h.aggregator.Deduplicate(result.Posts)
	posts = h.aggregator.SortPosts(posts, "score", true)
	summary.PostsFound = len(posts)

	if len(posts) == 0 {
		summary.Duration = time.Since(summary.StartedAt).Seconds()
		if len(result.Errors) == len(sources) {
			return summary, ErrAllSourcesFailed
		}
		runLog.Info("hunt found no matching posts")
		h.publish(SubjectHuntCompleted, summary)
		return summary, nil
	}

	if err := h.classify(ctx, posts, summary); err != nil {
		return summary, err
	}

	for i := range posts {
		if err := h.persist(ctx, &posts[i], summary); err != nil {
			return summary, err
		}
	}

	summary.Posts = posts
	summary.Duration = time.Since(summary.StartedAt).Seconds()
	runLog.WithFields(logrus.Fields{
		"posts":        summary.PostsFound,
		"pain_points":  summary.PainPoints,
		"new_problems": summary.NewProblems,
		"from_cache":   summary.FromCache,
	}).Info("hunt completed")

	h.publish(SubjectHuntCompleted, summary)
	return summary, nil
}

// classify fills in the Analysis for every post, consulting the cache first
// and sending the rest to the classifier in batches.
func (h *Hunter) classify(ctx context.Context, posts []post.Post, summary *Summary) error {
	pending := make([]*post.Post, 0, len(posts))
	for i := range posts {
		if h.cache != nil {
			if a, ok := h.cache.Get(posts[i].ID); ok {
				posts[i].Analysis = &a
				summary.FromCache++
				continue
			}
		}
		pending = append(pending, &posts[i])
	}
	if len(pending) == 0 {
		return nil
	}

	pause := newBackoff(h.config.Backoff)
	for start := 0; start < len(pending); start += h.config.BatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause.next()):
			}
		}

		end := start + h.config.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := make([]post.Post, 0, end-start)
		for _, p := range pending[start:end] {
			batch = append(batch, *p)
		}

		analyses, err := h.classifier.Classify(ctx, batch)
		if err != nil {
			h.log.WithError(err).WithField("batch_start", start).Warn("classifier batch failed")
			for _, p := range pending[start:end] {
				a := post.ErrorSentinel(err.Error())
				p.Analysis = &a
			}
			continue
		}
		pause.reset()

		// A short response is padded so every post gets a verdict.
		for len(analyses) < len(batch) {
			analyses = append(analyses, post.ErrorSentinel("missing result from classifier"))
		}
		for i, p := range pending[start:end] {
			a := analyses[i]
			p.Analysis = &a
			summary.Classified++
			if h.cache != nil {
				h.cache.Put(p.ID, a)
			}
		}
	}
	return nil
}

// persist saves the post and its analysis, then tracks the problem if the
// classifier found a genuine pain point.
func (h *Hunter) persist(ctx context.Context, p *post.Post, summary *Summary) error {
	if err := h.store.SavePost(ctx, *p); err != nil {
		return fmt.Errorf("save post %s: %w", p.ID, err)
	}
	if p.Analysis == nil {
		return nil
	}
	if err := h.store.SaveAnalysis(ctx, p.ID, *p.Analysis); err != nil {
		return fmt.Errorf("save analysis for %s: %w", p.ID, err)
	}
	if p.Analysis.IsPainPoint && p.Analysis.Err == "" {
		summary.PainPoints++
	}

	tracked, err := h.tracker.TrackProblem(ctx, p.ID, p.Source, *p.Analysis)
	if err != nil {
		return err
	}
	if tracked {
		summary.NewProblems++
		h.publish(SubjectProblemTracked, map[string]any{
			"run_id":  summary.RunID,
			"post_id": p.ID,
			"source":  p.Source,
			"score":   p.Analysis.Score,
		})
	}
	return nil
}

func (h *Hunter) publish(subject string, payload any) {
	if h.eventBus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("failed to encode event payload")
		return
	}
	if err := h.eventBus.Publish(subject, data); err != nil {
		h.log.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}
