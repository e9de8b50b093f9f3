package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/painscore"
)

const hackerNewsAPIBase = "https://hn.algolia.com/api/v1"

// HackerNews fetches stories through the Algolia search API. No auth needed.
type HackerNews struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHackerNews creates the Hacker News adapter.
func NewHackerNews() *HackerNews {
	return &HackerNews{
		baseURL: hackerNewsAPIBase,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		// Algolia is generous but unauthenticated; keep a polite pace.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// Name returns the source name.
func (h *HackerNews) Name() string {
	return "hackernews"
}

// Fetch searches Ask HN / Show HN stories for the query keywords, or browses
// front-page stories in browse mode.
func (h *HackerNews) Fetch(ctx context.Context, q Query) ([]post.Post, error) {
	posts := []post.Post{}

	if q.BrowseMode {
		hits, err := h.search(ctx, "", q.Sort, q.Limit)
		if err != nil {
			return nil, err
		}
		return capPosts(append(posts, hits...), q.Limit), nil
	}

	terms := q.Keywords
	if len(terms) == 0 {
		terms = painscore.Keywords()
	}
	if len(terms) > 3 {
		// Each term is one API round trip; keep the fan-out in check.
		terms = terms[:3]
	}

	perQuery := q.Limit / len(terms)
	if perQuery < 1 {
		perQuery = 1
	}

	for _, term := range terms {
		hits, err := h.search(ctx, "Ask HN "+term, q.Sort, perQuery)
		if err != nil {
			return nil, err
		}
		posts = append(posts, hits...)
		if len(posts) >= q.Limit {
			break
		}
	}

	return capPosts(posts, q.Limit), nil
}

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
}

func (h *HackerNews) search(ctx context.Context, query string, sortOrder Sort, limit int) ([]post.Post, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := h.baseURL + "/search"
	if sortOrder == SortNew {
		endpoint = h.baseURL + "/search_by_date"
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	if limit > 50 {
		limit = 50
	}
	params.Set("hitsPerPage", fmt.Sprintf("%d", limit))
	// Filter out low-quality posts up front.
	params.Set("numericFilters", "points>5,num_comments>2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("hackernews: new request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hackernews: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackernews: API returned status code %d", resp.StatusCode)
	}

	var payload struct {
		Hits []algoliaHit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("hackernews: decode response: %w", err)
	}

	posts := []post.Post{}
	for _, hit := range payload.Hits {
		if p, ok := h.normalize(hit); ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// normalize converts an Algolia hit into the standard post shape. Job
// postings and titleless hits are skipped.
func (h *HackerNews) normalize(hit algoliaHit) (post.Post, bool) {
	title := hit.Title
	lower := strings.ToLower(title)
	if title == "" || strings.Contains(lower, "hiring") {
		return post.Post{}, false
	}

	link := hit.URL
	if link == "" {
		link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
	}

	text := hit.StoryText
	if text == "" {
		text = hit.CommentText
	}

	return post.Post{
		ID:          "hn_" + hit.ObjectID,
		Title:       title,
		Text:        text,
		URL:         link,
		Source:      h.Name(),
		CreatedUTC:  hit.CreatedAtI,
		Score:       hit.Points,
		NumComments: hit.NumComments,
		Metadata: map[string]any{
			"author":     hit.Author,
			"pain_score": painscore.Score(title + " " + text),
		},
	}, true
}

func capPosts(posts []post.Post, limit int) []post.Post {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
