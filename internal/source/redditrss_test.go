package source

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const startupsFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>startups</title>
<item>
<title>Frustrated with manual customer onboarding</title>
<link>https://www.reddit.com/r/startups/comments/xyz789/</link>
<description>We lose hours every week walking new accounts through setup.</description>
</item>
</channel></rss>`

func newTestRedditRSS(subreddits ...string) *RedditRSS {
	r := NewRedditRSS(subreddits)
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	r.parser.Client = &http.Client{}
	return r
}

func TestRedditRSSNormalize(t *testing.T) {
	r := NewRedditRSS(nil)

	published := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	item := &gofeed.Item{
		Title:           "Tired of juggling multiple tools for invoicing",
		Link:            "https://www.reddit.com/r/SaaS/comments/abc123/",
		Description:     "I waste hours every week on this",
		PublishedParsed: &published,
		Author:          &gofeed.Person{Name: "/u/founder42"},
	}

	p := r.normalize(item, "SaaS")

	assert.True(t, p.Valid())
	assert.Equal(t, "reddit_rss", p.Source)
	// Feed items have no native id; one is derived from the link.
	assert.Contains(t, p.ID, "rss_")
	assert.Len(t, p.ID, 4+16)
	assert.Equal(t, published.Unix(), p.CreatedUTC)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, "founder42", p.Metadata["author"])
	assert.Equal(t, "SaaS", p.Metadata["subreddit"])
	assert.Greater(t, p.Metadata["pain_score"].(int), 0)

	// The same link always derives the same id.
	assert.Equal(t, p.ID, r.normalize(item, "SaaS").ID)
}

func TestRedditRSSNormalizeMissingFields(t *testing.T) {
	r := NewRedditRSS(nil)

	p := r.normalize(&gofeed.Item{
		Title: "plain item",
		Link:  "https://example.com/x",
	}, "startups")

	assert.Equal(t, "unknown", p.Metadata["author"])
	assert.NotZero(t, p.CreatedUTC)
}

func TestRedditRSSNormalizeTruncatesDescription(t *testing.T) {
	r := NewRedditRSS(nil)

	long := make([]byte, 800)
	for i := range long {
		long[i] = 'a'
	}

	p := r.normalize(&gofeed.Item{
		Title:       "long post",
		Link:        "https://example.com/long",
		Description: string(long),
	}, "SaaS")

	assert.Len(t, p.Text, 500)
}

func TestTitleMatches(t *testing.T) {
	assert.True(t, titleMatches("Struggling with Invoice automation", []string{"invoice"}))
	assert.True(t, titleMatches("billing is broken", []string{"payments", "BILLING"}))
	assert.False(t, titleMatches("weekend project showcase", []string{"invoice"}))
	assert.False(t, titleMatches("anything", nil))
}

func TestRedditRSSFetchAllFeedsFailing(t *testing.T) {
	r := newTestRedditRSS("SaaS", "startups")

	httpmock.ActivateNonDefault(r.parser.Client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", `=~^https://www\.reddit\.com/r/`,
		httpmock.NewStringResponder(503, "upstream down"))

	posts, err := r.Fetch(context.Background(), Query{BrowseMode: true, Limit: 10})
	require.Error(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestRedditRSSFetchSurvivesPartialFeedFailure(t *testing.T) {
	r := newTestRedditRSS("SaaS", "startups")

	httpmock.ActivateNonDefault(r.parser.Client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://www.reddit.com/r/SaaS.rss",
		httpmock.NewStringResponder(404, "banned"))
	httpmock.RegisterResponder("GET", "https://www.reddit.com/r/startups.rss",
		httpmock.NewStringResponder(200, startupsFeedXML))

	posts, err := r.Fetch(context.Background(), Query{BrowseMode: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Frustrated with manual customer onboarding", posts[0].Title)
}

func TestNewRedditRSSDefaultSubreddits(t *testing.T) {
	r := NewRedditRSS(nil)
	assert.Equal(t, defaultSubreddits, r.subreddits)

	custom := NewRedditRSS([]string{"golang"})
	assert.Equal(t, []string{"golang"}, custom.subreddits)
}
