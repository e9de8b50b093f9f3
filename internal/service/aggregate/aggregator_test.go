package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/source"
)

// fakeSource is a scriptable source for aggregator tests.
type fakeSource struct {
	name  string
	posts []post.Post
	err   error
	panic bool
	delay time.Duration
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, q source.Query) ([]post.Post, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func validPost(id string) post.Post {
	return post.Post{
		ID:     id,
		Title:  "title " + id,
		URL:    "https://example.com/" + id,
		Source: "fake",
	}
}

func newTestAggregator(cfg Config) *Aggregator {
	return New(cfg, nil, nil)
}

func TestFetchFromSourcesIsolatesFailures(t *testing.T) {
	sources := []source.Source{
		&fakeSource{name: "good", posts: []post.Post{validPost("a"), validPost("b")}},
		&fakeSource{name: "broken", err: errors.New("http 500")},
		&fakeSource{name: "crashy", panic: true},
	}

	agg := newTestAggregator(Config{})
	result := agg.FetchFromSources(context.Background(), sources, source.Query{})

	assert.Len(t, result.Posts, 2)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "http 500", result.Errors["broken"])
	assert.Contains(t, result.Errors["crashy"], "panicked")
}

func TestFetchFromSourcesNilSliceIsAnError(t *testing.T) {
	agg := newTestAggregator(Config{})
	result := agg.FetchFromSources(context.Background(), []source.Source{
		&fakeSource{name: "empty"},
	}, source.Query{})

	assert.Empty(t, result.Posts)
	assert.Contains(t, result.Errors["empty"], "invalid return")
}

func TestFetchFromSourcesDropsInvalidPosts(t *testing.T) {
	noTitle := validPost("x")
	noTitle.Title = ""
	noURL := validPost("y")
	noURL.URL = ""

	agg := newTestAggregator(Config{})
	result := agg.FetchFromSources(context.Background(), []source.Source{
		&fakeSource{name: "mixed", posts: []post.Post{validPost("ok"), noTitle, noURL}},
	}, source.Query{})

	require.Len(t, result.Posts, 1)
	assert.Equal(t, "ok", result.Posts[0].ID)
	assert.Empty(t, result.Errors)
}

func TestFetchFromSourcesTimeout(t *testing.T) {
	agg := newTestAggregator(Config{SourceTimeout: 20 * time.Millisecond})
	result := agg.FetchFromSources(context.Background(), []source.Source{
		&fakeSource{name: "slow", delay: time.Second, posts: []post.Post{validPost("a")}},
	}, source.Query{})

	assert.Empty(t, result.Posts)
	assert.Contains(t, result.Errors["slow"], "context deadline exceeded")
}

func TestFetchStats(t *testing.T) {
	agg := newTestAggregator(Config{})

	stats := agg.Stats()
	assert.Equal(t, 0.0, stats.SuccessRate)

	agg.FetchFromSources(context.Background(), []source.Source{
		&fakeSource{name: "good", posts: []post.Post{validPost("a")}},
		&fakeSource{name: "bad", err: errors.New("nope")},
	}, source.Query{})

	stats = agg.Stats()
	assert.Equal(t, 2, stats.TotalFetches)
	assert.Equal(t, 1, stats.SuccessfulFetches)
	assert.Equal(t, 1, stats.FailedFetches)
	assert.Equal(t, 1, stats.TotalPosts)
	assert.InDelta(t, 0.5, stats.SuccessRate, 0.0001)
	assert.Contains(t, stats.FetchTimes, "good")

	agg.ResetStats()
	assert.Equal(t, 0, agg.Stats().TotalFetches)
}

func TestFetchStatsAllSuccessful(t *testing.T) {
	agg := newTestAggregator(Config{})
	agg.FetchFromSources(context.Background(), []source.Source{
		&fakeSource{name: "one", posts: []post.Post{validPost("a")}},
	}, source.Query{})

	assert.InDelta(t, 1.0, agg.Stats().SuccessRate, 0.0001)
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	agg := newTestAggregator(Config{})

	first := validPost("dup")
	first.Score = 10
	second := validPost("dup")
	second.Score = 99
	anonymous := validPost("")

	unique := agg.Deduplicate([]post.Post{first, second, validPost("other"), anonymous})

	require.Len(t, unique, 2)
	assert.Equal(t, "dup", unique[0].ID)
	assert.Equal(t, 10, unique[0].Score)
	assert.Equal(t, "other", unique[1].ID)

	// Deduplicating an already-unique list changes nothing.
	assert.Equal(t, unique, agg.Deduplicate(unique))
}

func TestSortPosts(t *testing.T) {
	agg := newTestAggregator(Config{})

	a := validPost("a")
	a.Score = 5
	b := validPost("b")
	b.Score = 50
	c := validPost("c") // score 0

	sorted := agg.SortPosts([]post.Post{a, b, c}, "score", true)
	assert.Equal(t, []string{"b", "a", "c"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	sorted = agg.SortPosts([]post.Post{a, b, c}, "score", false)
	assert.Equal(t, "c", sorted[0].ID)

	// Missing metadata fields sort as zero, stably.
	sorted = agg.SortPosts([]post.Post{a, b, c}, "no_such_field", true)
	assert.Equal(t, []string{"a", "b", "c"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestFilterPosts(t *testing.T) {
	agg := newTestAggregator(Config{})

	hn := validPost("hn1")
	hn.Source = "hackernews"
	hn.Score = 80
	hn.CreatedUTC = 2000

	rss := validPost("rss1")
	rss.Source = "reddit_rss"
	rss.Score = 5
	rss.CreatedUTC = 1000

	posts := []post.Post{hn, rss}

	minScore := 50
	after := int64(1500)

	assert.Len(t, agg.FilterPosts(posts, Filter{}), 2)
	assert.Len(t, agg.FilterPosts(posts, Filter{MinScore: &minScore}), 1)
	assert.Len(t, agg.FilterPosts(posts, Filter{Sources: []string{"reddit_rss"}}), 1)
	assert.Len(t, agg.FilterPosts(posts, Filter{AfterTimestamp: &after}), 1)

	// Criteria combine conjunctively.
	filtered := agg.FilterPosts(posts, Filter{MinScore: &minScore, Sources: []string{"reddit_rss"}})
	assert.Empty(t, filtered)
}
