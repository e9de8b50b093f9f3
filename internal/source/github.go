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

const gitHubAPIBase = "https://api.github.com"

// GitHub searches public issues for feature requests and workflow
// complaints. A token raises the search rate limit but is optional.
type GitHub struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGitHub creates the GitHub issues adapter.
func NewGitHub(token string) *GitHub {
	return &GitHub{
		baseURL: gitHubAPIBase,
		token:   token,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		// Unauthenticated search allows 10 requests per minute.
		limiter: rate.NewLimiter(rate.Every(6*time.Second), 1),
	}
}

// Name returns the source name.
func (g *GitHub) Name() string {
	return "github"
}

// Fetch searches open issues matching the keywords.
func (g *GitHub) Fetch(ctx context.Context, q Query) ([]post.Post, error) {
	terms := q.Keywords
	if q.BrowseMode || len(terms) == 0 {
		terms = []string{"automation", "workflow", "manual process"}
	}
	if len(terms) > 3 {
		terms = terms[:3]
	}

	perQuery := q.Limit / len(terms)
	if perQuery < 1 {
		perQuery = 1
	}

	posts := []post.Post{}
	for _, term := range terms {
		issues, err := g.searchIssues(ctx, term, q.Sort, perQuery)
		if err != nil {
			return nil, err
		}
		posts = append(posts, issues...)
		if len(posts) >= q.Limit {
			break
		}
	}

	return capPosts(posts, q.Limit), nil
}

type githubIssue struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	HTMLURL       string `json:"html_url"`
	Comments      int    `json:"comments"`
	CreatedAt     string `json:"created_at"`
	RepositoryURL string `json:"repository_url"`
	Reactions     struct {
		TotalCount int `json:"total_count"`
	} `json:"reactions"`
}

func (g *GitHub) searchIssues(ctx context.Context, term string, sortOrder Sort, limit int) ([]post.Post, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", term+" is:issue is:open")
	switch sortOrder {
	case SortNew:
		params.Set("sort", "created")
	case SortTop:
		params.Set("sort", "reactions")
	default:
		params.Set("sort", "comments")
	}
	params.Set("order", "desc")
	if limit > 100 {
		limit = 100
	}
	params.Set("per_page", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search/issues?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("github: new request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: search issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github: API returned status code %d", resp.StatusCode)
	}

	var payload struct {
		Items []githubIssue `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("github: decode response: %w", err)
	}

	posts := []post.Post{}
	for _, issue := range payload.Items {
		posts = append(posts, g.normalize(issue))
	}
	return posts, nil
}

func (g *GitHub) normalize(issue githubIssue) post.Post {
	created := int64(0)
	if at, err := time.Parse(time.RFC3339, issue.CreatedAt); err == nil {
		created = at.Unix()
	}

	body := issue.Body
	if len(body) > 1000 {
		body = body[:1000]
	}

	repo := strings.TrimPrefix(issue.RepositoryURL, gitHubAPIBase+"/repos/")

	return post.Post{
		ID:          "gh_" + strconv.FormatInt(issue.ID, 10),
		Title:       issue.Title,
		Text:        body,
		URL:         issue.HTMLURL,
		Source:      g.Name(),
		CreatedUTC:  created,
		Score:       issue.Reactions.TotalCount,
		NumComments: issue.Comments,
		Metadata: map[string]any{
			"repository": repo,
			"pain_score": painscore.Score(issue.Title + " " + body),
		},
	}
}
