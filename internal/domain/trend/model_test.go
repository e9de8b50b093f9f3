package trend

import (
	"fmt"
	"testing"
	"time"
)

func obs(score int, postID, src string, at time.Time) Observation {
	return Observation{
		ProblemHash: "hash-1",
		Summary:     "deploy tooling is too complicated",
		Score:       score,
		Source:      src,
		PostID:      postID,
		SeenAt:      at,
	}
}

func TestApplyFirstSighting(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := Apply(ProblemTrend{}, obs(80, "p1", "hackernews", at))

	if got.OccurrenceCount != 1 {
		t.Fatalf("occurrence count = %d, want 1", got.OccurrenceCount)
	}
	if got.AvgScore != 80 {
		t.Fatalf("avg score = %v, want 80", got.AvgScore)
	}
	if !got.FirstSeen.Equal(at) || !got.LastSeen.Equal(at) {
		t.Fatalf("first/last seen = %v/%v, want %v", got.FirstSeen, got.LastSeen, at)
	}
	if got.ProblemHash != "hash-1" || got.ProblemSummary == "" {
		t.Fatalf("hash/summary not filled from observation: %+v", got)
	}
}

func TestApplyRunningMeanIsExact(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var trend ProblemTrend
	for i, score := range []int{9, 7, 8} {
		trend = Apply(trend, obs(score, fmt.Sprintf("p%d", i), "hackernews", at.Add(time.Duration(i)*time.Hour)))
	}

	if trend.OccurrenceCount != 3 {
		t.Fatalf("occurrence count = %d, want 3", trend.OccurrenceCount)
	}
	if trend.AvgScore != 8.0 {
		t.Fatalf("avg score = %v, want exactly 8.0", trend.AvgScore)
	}
	if !trend.FirstSeen.Equal(at) {
		t.Fatalf("first seen moved: %v", trend.FirstSeen)
	}
	if !trend.LastSeen.Equal(at.Add(2 * time.Hour)) {
		t.Fatalf("last seen = %v", trend.LastSeen)
	}
}

func TestApplySourceSetIsIdempotent(t *testing.T) {
	at := time.Now().UTC()

	var trend ProblemTrend
	trend = Apply(trend, obs(5, "p1", "hackernews", at))
	trend = Apply(trend, obs(5, "p2", "hackernews", at))
	trend = Apply(trend, obs(5, "p3", "reddit_rss", at))

	if len(trend.Sources) != 2 {
		t.Fatalf("sources = %v, want exactly [hackernews reddit_rss]", trend.Sources)
	}
}

func TestApplySampleEviction(t *testing.T) {
	at := time.Now().UTC()

	var trend ProblemTrend
	for i := 0; i < MaxSamplePosts+3; i++ {
		trend = Apply(trend, obs(5, fmt.Sprintf("p%d", i), "hackernews", at))
	}

	if len(trend.SamplePostIDs) != MaxSamplePosts {
		t.Fatalf("sample size = %d, want %d", len(trend.SamplePostIDs), MaxSamplePosts)
	}
	// Oldest ids are evicted first.
	if trend.SamplePostIDs[0] != "p3" {
		t.Fatalf("oldest retained sample = %s, want p3", trend.SamplePostIDs[0])
	}
	if trend.SamplePostIDs[MaxSamplePosts-1] != fmt.Sprintf("p%d", MaxSamplePosts+2) {
		t.Fatalf("newest retained sample = %s", trend.SamplePostIDs[MaxSamplePosts-1])
	}
	// The count keeps growing past the sample bound.
	if trend.OccurrenceCount != MaxSamplePosts+3 {
		t.Fatalf("occurrence count = %d", trend.OccurrenceCount)
	}
}

func TestVelocityOf(t *testing.T) {
	cases := []struct {
		recent, total int
		want          float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{3, 10, 0.3},
		{10, 10, 1},
		{15, 10, 1}, // clamped
	}
	for _, c := range cases {
		if got := VelocityOf(c.recent, c.total); got != c.want {
			t.Errorf("VelocityOf(%d, %d) = %v, want %v", c.recent, c.total, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(0.51); got != StatusEmerging {
		t.Fatalf("Classify(0.51) = %s", got)
	}
	if got := Classify(0.5); got != StatusSteady {
		t.Fatalf("Classify(0.5) = %s", got)
	}
	if got := Classify(0); got != StatusSteady {
		t.Fatalf("Classify(0) = %s", got)
	}
}
