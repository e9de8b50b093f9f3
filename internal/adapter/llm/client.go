// Package llm adapts an OpenAI-compatible chat-completions API into the
// batch classifier the hunt pipeline consumes.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"problemhunter/internal/domain/post"
)

// Config holds the connection settings for the classifier backend.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Client classifies batches of posts with a chat-completions model. The
// response must be a JSON array with one verdict per input post, in input
// order.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a classifier client from configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.Endpoint == "" || cfg.Model == "" {
		return nil, fmt.Errorf("llm client misconfigured: endpoint, model, and api key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

const systemPrompt = `You are a SaaS product researcher analyzing posts from forums, Q&A sites, and issue trackers for software business opportunities.

CRITICAL RULES:
- Only mark as pain point if it's a REPEATABLE WORKFLOW problem (not one-off complaints)
- Must be solvable by software (not human service/physical work)
- Must indicate willingness to pay (time-consuming, business context, frequency mentioned)

SCORING GUIDE (1-10):
- 9-10: Repeated frequently ("every week"), clear workflow, B2B context, high frustration
- 7-8: Clear automation opportunity, some frequency indicators, measurable pain
- 4-6: Valid problem but niche/unclear market size
- 1-3: Vague complaint, one-off issue, or already solved by existing tools

Respond with ONLY a JSON array of objects, one per input post, in the same order.
Format: [{"is_pain_point": bool, "score": int, "solution": str, "reasoning": str}, ...]`

const maxPostContent = 1000

// Classify sends one batch to the model and parses the verdicts. The output
// matches the input 1:1 in order; a shorter response is padded with failure
// sentinels rather than failing the batch.
func (c *Client) Classify(ctx context.Context, posts []post.Post) ([]post.Analysis, error) {
	if len(posts) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Analyze these posts:\n\n")
	for i, p := range posts {
		content := p.Title + "\n" + p.Text
		if len(content) > maxPostContent {
			content = content[:maxPostContent]
		}
		fmt.Fprintf(&sb, "POST_%d:\n%s\n---\n", i, content)
	}

	// No response_format constraint: the prompt asks for a bare JSON array,
	// and json_object mode would force an object wrapper on some backends.
	// parseVerdicts extracts the array from whatever envelope comes back.
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": sb.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classify payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	verdicts, err := parseVerdicts(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	// Mismatched counts degrade the batch, they do not fail it.
	for len(verdicts) < len(posts) {
		verdicts = append(verdicts, post.ErrorSentinel("missing result from classifier"))
	}
	return verdicts[:len(posts)], nil
}

// parseVerdicts extracts the JSON array from the model output, tolerating
// surrounding prose and code fences.
func parseVerdicts(content string) ([]post.Analysis, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("classifier response contains no JSON array")
	}

	var verdicts []post.Analysis
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdicts); err != nil {
		return nil, fmt.Errorf("decode verdicts: %w", err)
	}
	return verdicts, nil
}
