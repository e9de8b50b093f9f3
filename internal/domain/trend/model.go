package trend

import (
	"time"
)

// Status labels assigned to a problem cluster at read time. Classification is
// a projection over recent-vs-historical activity, never stored.
const (
	StatusEmerging  = "emerging"
	StatusSteady    = "steady"
	StatusDeclining = "declining"
)

// MaxSamplePosts bounds the sample_post_ids list kept per trend. Recency
// statistics for high-volume trends are computed over this sample only;
// OccurrenceCount remains the authoritative total.
const MaxSamplePosts = 10

// ProblemTrend aggregates semantically-similar analyses under one fingerprint.
type ProblemTrend struct {
	ProblemHash     string    `json:"problem_hash"`
	ProblemSummary  string    `json:"problem_summary"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	OccurrenceCount int       `json:"occurrence_count"`
	AvgScore        float64   `json:"avg_score"`
	Sources         []string  `json:"sources"`
	SamplePostIDs   []string  `json:"sample_post_ids"`
}

// Observation is one sighting of a problem: a pain-point analysis mapped to
// its fingerprint, ready to be folded into the aggregate.
type Observation struct {
	ProblemHash string
	Summary     string
	Score       int
	Source      string
	PostID      string
	SeenAt      time.Time
}

// Apply folds an observation into the trend aggregate. The average is the
// exact running mean, the source set add is idempotent, and the sample list
// keeps the most recent MaxSamplePosts ids with oldest-first eviction.
// A zero-valued trend (fresh row) comes out as a first sighting.
func Apply(t ProblemTrend, obs Observation) ProblemTrend {
	n := t.OccurrenceCount
	t.AvgScore = (t.AvgScore*float64(n) + float64(obs.Score)) / float64(n+1)
	t.OccurrenceCount = n + 1

	if t.FirstSeen.IsZero() {
		t.FirstSeen = obs.SeenAt
	}
	t.LastSeen = obs.SeenAt

	if t.ProblemHash == "" {
		t.ProblemHash = obs.ProblemHash
	}
	if t.ProblemSummary == "" {
		t.ProblemSummary = obs.Summary
	}

	if !contains(t.Sources, obs.Source) {
		t.Sources = append(t.Sources, obs.Source)
	}

	if !contains(t.SamplePostIDs, obs.PostID) {
		t.SamplePostIDs = append(t.SamplePostIDs, obs.PostID)
		if len(t.SamplePostIDs) > MaxSamplePosts {
			t.SamplePostIDs = t.SamplePostIDs[len(t.SamplePostIDs)-MaxSamplePosts:]
		}
	}

	return t
}

// Report is a trend enriched with recency counts and the derived
// classification returned by the analyzer's read queries.
type Report struct {
	ProblemTrend
	RecentCount int     `json:"recent_count"`
	TotalCount  int     `json:"total_count"`
	PastCount   int     `json:"past_count,omitempty"`
	Velocity    float64 `json:"trend_velocity"`
	Status      string  `json:"status"`
}

// VelocityOf computes recent/total clamped to [0,1].
func VelocityOf(recent, total int) float64 {
	if total <= 0 {
		return 0
	}
	v := float64(recent) / float64(total)
	if v > 1 {
		return 1
	}
	return v
}

// Classify maps a velocity to its read-time status label.
func Classify(velocity float64) string {
	if velocity > 0.5 {
		return StatusEmerging
	}
	return StatusSteady
}

// FrequencyStats breaks a trend's mentions into daily, ISO-week, and monthly
// buckets ("2026-01-02", "2026-W01", "2026-01").
type FrequencyStats struct {
	Daily   map[string]int `json:"daily"`
	Weekly  map[string]int `json:"weekly"`
	Monthly map[string]int `json:"monthly"`
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
