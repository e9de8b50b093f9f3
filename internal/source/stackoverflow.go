package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"problemhunter/internal/domain/post"
	"problemhunter/internal/painscore"
)

const stackExchangeAPIBase = "https://api.stackexchange.com/2.3"

// StackOverflow searches questions through the StackExchange API. Works
// without a key at a reduced quota.
type StackOverflow struct {
	baseURL    string
	site       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewStackOverflow creates the Stack Overflow adapter.
func NewStackOverflow() *StackOverflow {
	return &StackOverflow{
		baseURL: stackExchangeAPIBase,
		site:    "stackoverflow",
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Name returns the source name.
func (s *StackOverflow) Name() string {
	return "stackoverflow"
}

// Fetch searches questions matching the keywords; browse mode pulls recent
// activity instead.
func (s *StackOverflow) Fetch(ctx context.Context, q Query) ([]post.Post, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("site", s.site)
	params.Set("order", "desc")
	switch q.Sort {
	case SortNew:
		params.Set("sort", "creation")
	case SortTop:
		params.Set("sort", "votes")
	default:
		params.Set("sort", "activity")
	}
	if !q.BrowseMode && len(q.Keywords) > 0 {
		params.Set("q", strings.Join(q.Keywords, " "))
	}
	limit := q.Limit
	if limit > 100 {
		limit = 100
	}
	params.Set("pagesize", strconv.Itoa(limit))
	params.Set("filter", "withbody")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search/advanced?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("stackoverflow: new request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stackoverflow: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stackoverflow: API returned status code %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			QuestionID   int64    `json:"question_id"`
			Title        string   `json:"title"`
			Body         string   `json:"body"`
			Link         string   `json:"link"`
			Score        int      `json:"score"`
			AnswerCount  int      `json:"answer_count"`
			CreationDate int64    `json:"creation_date"`
			Tags         []string `json:"tags"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("stackoverflow: decode response: %w", err)
	}

	posts := []post.Post{}
	for _, item := range payload.Items {
		body := item.Body
		if len(body) > 1000 {
			body = body[:1000]
		}
		posts = append(posts, post.Post{
			ID:          "so_" + strconv.FormatInt(item.QuestionID, 10),
			Title:       item.Title,
			Text:        body,
			URL:         item.Link,
			Source:      s.Name(),
			CreatedUTC:  item.CreationDate,
			Score:       item.Score,
			NumComments: item.AnswerCount,
			Metadata: map[string]any{
				"tags":       item.Tags,
				"pain_score": painscore.Score(item.Title + " " + body),
			},
		})
	}

	return capPosts(posts, q.Limit), nil
}
