package source

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/painscore"
)

// Default subreddits with a high density of SaaS/business pain points.
var defaultSubreddits = []string{
	"SaaS",
	"Entrepreneur",
	"smallbusiness",
	"marketing",
	"productivity",
	"startups",
	"business",
	"freelance",
	"solopreneur",
}

// RedditRSS reads public subreddit feeds. Works without API credentials;
// feeds carry roughly 25 posts each and no score or comment counts.
type RedditRSS struct {
	parser     *gofeed.Parser
	limiter    *rate.Limiter
	baseURL    string
	subreddits []string
}

// NewRedditRSS creates the Reddit RSS adapter. An empty subreddit list falls
// back to the defaults.
func NewRedditRSS(subreddits []string) *RedditRSS {
	if len(subreddits) == 0 {
		subreddits = defaultSubreddits
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "problemhunter/1.0"
	return &RedditRSS{
		parser:     parser,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		baseURL:    "https://www.reddit.com",
		subreddits: subreddits,
	}
}

// Name returns the source name.
func (r *RedditRSS) Name() string {
	return "reddit_rss"
}

// Fetch pulls each configured subreddit feed in turn, filtering titles by
// keyword unless browsing.
func (r *RedditRSS) Fetch(ctx context.Context, q Query) ([]post.Post, error) {
	sortPath := ""
	switch q.Sort {
	case SortNew:
		sortPath = "/new"
	case SortTop:
		sortPath = "/top"
	}

	perSub := q.Limit / len(r.subreddits)
	if perSub < 1 {
		perSub = 1
	}

	posts := []post.Post{}
	parsed := 0
	var lastErr error
	for _, sub := range r.subreddits {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		feed, err := r.parser.ParseURLWithContext(r.baseURL+"/r/"+sub+sortPath+".rss", ctx)
		if err != nil {
			// One unreachable subreddit should not sink the rest.
			lastErr = err
			continue
		}
		parsed++

		items := feed.Items
		if len(items) > perSub {
			items = items[:perSub]
		}
		for _, item := range items {
			p := r.normalize(item, sub)
			if !q.BrowseMode && len(q.Keywords) > 0 && !titleMatches(p.Title, q.Keywords) {
				continue
			}
			posts = append(posts, p)
		}

		if len(posts) >= q.Limit {
			break
		}
	}

	if parsed == 0 && lastErr != nil {
		return nil, fmt.Errorf("reddit rss: all feeds failed: %w", lastErr)
	}

	return capPosts(posts, q.Limit), nil
}

func (r *RedditRSS) normalize(item *gofeed.Item, subreddit string) post.Post {
	text := item.Description
	if len(text) > 500 {
		text = text[:500]
	}

	created := time.Now().Unix()
	if item.PublishedParsed != nil {
		created = item.PublishedParsed.Unix()
	}

	author := "unknown"
	if item.Author != nil && item.Author.Name != "" {
		author = strings.TrimPrefix(item.Author.Name, "/u/")
	}

	sum := md5.Sum([]byte(item.Link))
	id := hex.EncodeToString(sum[:])[:16]

	return post.Post{
		ID:         "rss_" + id,
		Title:      item.Title,
		Text:       text,
		URL:        item.Link,
		Source:     r.Name(),
		CreatedUTC: created,
		// Feeds expose neither score nor comment counts.
		Score:       0,
		NumComments: 0,
		Metadata: map[string]any{
			"subreddit":  subreddit,
			"author":     author,
			"pain_score": painscore.Score(item.Title + " " + text),
		},
	}
}

func titleMatches(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
