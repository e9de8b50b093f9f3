// Package trend clusters analyzed posts into recurring problems using a
// cheap, explainable text fingerprint and classifies clusters by
// recency-weighted activity.
package trend

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/domain/trend"
)

const (
	// summaryLength bounds the representative solution text stored per trend.
	summaryLength = 200
	// maxResults caps trend report queries.
	maxResults = 20
)

// Store is the persistence the analyzer depends on. TrackObservation must be
// an atomic read-modify-write per problem hash: concurrent sightings of the
// same fingerprint may not lose updates.
type Store interface {
	TrackObservation(ctx context.Context, obs trend.Observation) error
	GetTrend(ctx context.Context, problemHash string) (*trend.ProblemTrend, error)
	EmergingTrends(ctx context.Context, days, minRecent, limit int) ([]trend.Report, error)
	DecliningTrends(ctx context.Context, days, limit int) ([]trend.Report, error)
	TrendMentions(ctx context.Context, problemHash string, days int) ([]time.Time, error)
}

// Analyzer consumes analyzed posts one at a time and answers which problems
// are emerging or declining.
type Analyzer struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

// NewAnalyzer creates a trend analyzer on top of a store.
func NewAnalyzer(store Store, log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.New()
	}
	return &Analyzer{store: store, log: log, now: time.Now}
}

// TrackProblem fingerprints an analysis and upserts its trend aggregate.
// Returns false without touching the store for non-pain-points, empty
// solutions, and failure sentinels; a store write failure propagates since
// silent loss would corrupt the aggregate.
func (a *Analyzer) TrackProblem(ctx context.Context, postID, src string, analysis post.Analysis) (bool, error) {
	if analysis.Sentinel() || !analysis.IsPainPoint || analysis.Solution == "" {
		return false, nil
	}

	normalized := Normalize(analysis.Solution, analysis.Reasoning)
	hash := Fingerprint(normalized)

	summary := analysis.Solution
	if len(summary) > summaryLength {
		cut := summaryLength
		// Back off to a rune boundary so the stored summary stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}

	obs := trend.Observation{
		ProblemHash: hash,
		Summary:     summary,
		Score:       analysis.Score,
		Source:      src,
		PostID:      postID,
		SeenAt:      a.now().UTC(),
	}

	if err := a.store.TrackObservation(ctx, obs); err != nil {
		return false, fmt.Errorf("track problem %s: %w", hash, err)
	}

	a.log.WithFields(logrus.Fields{
		"problem_hash": hash,
		"post_id":      postID,
		"source":       src,
	}).Debug("tracked problem observation")

	return true, nil
}

// TrendByHash looks up a single problem aggregate by fingerprint. Store
// errors are wrapped, so not-found remains detectable with errors.Is.
func (a *Analyzer) TrendByHash(ctx context.Context, problemHash string) (*trend.ProblemTrend, error) {
	t, err := a.store.GetTrend(ctx, problemHash)
	if err != nil {
		return nil, fmt.Errorf("trend %s: %w", problemHash, err)
	}
	return t, nil
}

// EmergingTrends returns problems with at least minRecent sampled mentions in
// the trailing window, ranked by recent count then average score. Velocity is
// recent/total clamped to [0,1]; above 0.5 the trend is labeled emerging,
// otherwise steady.
func (a *Analyzer) EmergingTrends(ctx context.Context, days, minRecent int) ([]trend.Report, error) {
	reports, err := a.store.EmergingTrends(ctx, days, minRecent, maxResults)
	if err != nil {
		return nil, fmt.Errorf("emerging trends: %w", err)
	}
	for i := range reports {
		reports[i].Velocity = trend.VelocityOf(reports[i].RecentCount, reports[i].TotalCount)
		reports[i].Status = trend.Classify(reports[i].Velocity)
	}
	return reports, nil
}

// DecliningTrends returns problems whose sampled past activity more than
// doubles their recent activity, ranked by past count.
func (a *Analyzer) DecliningTrends(ctx context.Context, days int) ([]trend.Report, error) {
	reports, err := a.store.DecliningTrends(ctx, days, maxResults)
	if err != nil {
		return nil, fmt.Errorf("declining trends: %w", err)
	}
	for i := range reports {
		reports[i].Status = trend.StatusDeclining
	}
	return reports, nil
}

// FrequencyStats buckets a problem's sampled mentions from the trailing
// window into daily, ISO-week, and monthly histograms.
func (a *Analyzer) FrequencyStats(ctx context.Context, problemHash string, days int) (trend.FrequencyStats, error) {
	stats := trend.FrequencyStats{
		Daily:   make(map[string]int),
		Weekly:  make(map[string]int),
		Monthly: make(map[string]int),
	}

	mentions, err := a.store.TrendMentions(ctx, problemHash, days)
	if err != nil {
		return stats, fmt.Errorf("frequency stats for %s: %w", problemHash, err)
	}

	for _, at := range mentions {
		at = at.UTC()
		stats.Daily[at.Format("2006-01-02")]++
		year, week := at.ISOWeek()
		stats.Weekly[fmt.Sprintf("%d-W%02d", year, week)]++
		stats.Monthly[at.Format("2006-01")]++
	}

	return stats, nil
}
