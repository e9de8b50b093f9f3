package post

// Post is a normalized unit of scraped content. Every source adapter maps its
// platform-specific payload into this shape before anything downstream sees it.
type Post struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Text        string         `json:"text,omitempty"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	CreatedUTC  int64          `json:"created_utc"`
	Score       int            `json:"score"`
	NumComments int            `json:"num_comments"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// Analysis is attached by the classifier; nil until a post has been
	// classified.
	Analysis *Analysis `json:"analysis,omitempty"`
}

// Valid reports whether the post carries all required fields. Posts failing
// this check are dropped before entering the pipeline.
func (p Post) Valid() bool {
	return p.ID != "" && p.Title != "" && p.URL != "" && p.Source != ""
}

// NumericField returns the named numeric field for sorting and filtering.
// Unknown or missing fields resolve to 0 rather than failing; numeric
// metadata entries (e.g. pain_score) participate as well.
func (p Post) NumericField(name string) float64 {
	switch name {
	case "score":
		return float64(p.Score)
	case "created_utc":
		return float64(p.CreatedUTC)
	case "num_comments":
		return float64(p.NumComments)
	}
	if v, ok := p.Metadata[name]; ok {
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case float64:
			return n
		}
	}
	return 0
}

// MarketSize buckets for an analyzed opportunity.
const (
	MarketLarge   = "large"
	MarketMedium  = "medium"
	MarketSmall   = "small"
	MarketUnknown = "unknown"
)

// Analysis is the classifier's verdict on a single post. Immutable once
// attached; the store keeps every classification event, never overwriting.
type Analysis struct {
	IsPainPoint bool   `json:"is_pain_point"`
	Score       int    `json:"score"`
	Solution    string `json:"solution"`
	Reasoning   string `json:"reasoning"`
	TrendScore  int    `json:"trend_score,omitempty"`
	MarketSize  string `json:"market_size,omitempty"`
	Competitors string `json:"competitors,omitempty"`
	Difficulty  int    `json:"difficulty,omitempty"`
	TimeToBuild string `json:"time_to_build,omitempty"`

	// Err marks a failure sentinel produced when classification did not
	// complete. Sentinels are persisted for audit but never feed trend data.
	Err string `json:"error,omitempty"`
}

// Sentinel reports whether the analysis is a failure placeholder.
func (a Analysis) Sentinel() bool {
	return a.Err != ""
}

// ErrorSentinel builds the placeholder analysis recorded when a post could
// not be classified.
func ErrorSentinel(msg string) Analysis {
	return Analysis{IsPainPoint: false, Score: 0, Err: msg}
}
