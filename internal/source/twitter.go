package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"golang.org/x/time/rate"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/painscore"
)

// Twitter searches recent tweets for pain-point phrasing. Requires a bearer
// token; constructing the adapter without one fails hard before any fetch.
type Twitter struct {
	client  *twitter.Client
	limiter *rate.Limiter
}

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

// NewTwitter creates the Twitter adapter.
func NewTwitter(bearerToken string) (*Twitter, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("twitter: %w", ErrMissingCredentials)
	}
	return &Twitter{
		client: &twitter.Client{
			Authorizer: bearerAuthorizer{token: bearerToken},
			Client: &http.Client{
				Timeout: time.Second * 10,
			},
			Host: "https://api.twitter.com",
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}, nil
}

// Name returns the source name.
func (t *Twitter) Name() string {
	return "twitter"
}

// Fetch searches recent tweets. Browse mode falls back to generic pain
// phrasing since the recent-search endpoint requires a query.
func (t *Twitter) Fetch(ctx context.Context, q Query) ([]post.Post, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	terms := q.Keywords
	if q.BrowseMode || len(terms) == 0 {
		terms = []string{"wish there was", "so tedious", "waste of time"}
	}
	if len(terms) > 3 {
		terms = terms[:3]
	}
	query := "(\"" + strings.Join(terms, "\" OR \"") + "\") -is:retweet lang:en"

	limit := q.Limit
	if limit < 10 {
		limit = 10 // API minimum
	}
	if limit > 100 {
		limit = 100
	}

	opts := twitter.TweetRecentSearchOpts{
		MaxResults: limit,
		TweetFields: []twitter.TweetField{
			twitter.TweetFieldCreatedAt,
			twitter.TweetFieldPublicMetrics,
			twitter.TweetFieldAuthorID,
		},
	}
	if q.Sort == SortNew {
		opts.SortOrder = twitter.TweetSearchSortOrderRecency
	} else {
		opts.SortOrder = twitter.TweetSearchSortOrderRelevancy
	}

	res, err := t.client.TweetRecentSearch(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("twitter: recent search: %w", err)
	}
	if res == nil || res.Raw == nil {
		return []post.Post{}, nil
	}

	posts := []post.Post{}
	for _, tweet := range res.Raw.Tweets {
		if tweet == nil {
			continue
		}
		posts = append(posts, t.normalize(tweet))
	}

	return capPosts(posts, q.Limit), nil
}

func (t *Twitter) normalize(tweet *twitter.TweetObj) post.Post {
	created := int64(0)
	if at, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
		created = at.Unix()
	}

	title := tweet.Text
	if len(title) > 120 {
		title = title[:120]
	}

	likes, replies := 0, 0
	if tweet.PublicMetrics != nil {
		likes = tweet.PublicMetrics.Likes
		replies = tweet.PublicMetrics.Replies
	}

	return post.Post{
		ID:          "tw_" + tweet.ID,
		Title:       title,
		Text:        tweet.Text,
		URL:         "https://twitter.com/i/web/status/" + tweet.ID,
		Source:      t.Name(),
		CreatedUTC:  created,
		Score:       likes,
		NumComments: replies,
		Metadata: map[string]any{
			"author_id":  tweet.AuthorID,
			"pain_score": painscore.Score(tweet.Text),
		},
	}
}
