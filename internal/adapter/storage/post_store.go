package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"problemhunter/internal/domain/post"
)

// PostStore persists posts and their classification history.
type PostStore struct {
	db *pgxpool.Pool
}

// NewPostStore creates a new post store.
func NewPostStore(db *pgxpool.Pool) *PostStore {
	return &PostStore{db: db}
}

// SavePost upserts a post by id. The first-seen timestamp is preserved;
// last-seen and the mutable engagement fields are refreshed.
func (s *PostStore) SavePost(ctx context.Context, p post.Post) error {
	query := `
		INSERT INTO posts (
			id, source, title, text, url, created_utc, score, num_comments, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (id) DO UPDATE
		SET
			last_seen_at = now(),
			score = EXCLUDED.score,
			num_comments = EXCLUDED.num_comments
	`

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("error marshaling metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, query,
		p.ID,
		p.Source,
		p.Title,
		p.Text,
		p.URL,
		p.CreatedUTC,
		p.Score,
		p.NumComments,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("error saving post %s: %w", p.ID, err)
	}

	return nil
}

// SaveAnalysis appends one classification event for a post. History is never
// overwritten: multiple rows per post id are expected and required for the
// trend recency queries.
func (s *PostStore) SaveAnalysis(ctx context.Context, postID string, a post.Analysis) error {
	query := `
		INSERT INTO analysis_results (
			post_id, is_pain_point, score, solution, reasoning,
			trend_score, market_size, competitors, difficulty, time_to_build, error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	marketSize := a.MarketSize
	if marketSize == "" {
		marketSize = post.MarketUnknown
	}

	_, err := s.db.Exec(ctx, query,
		postID,
		a.IsPainPoint,
		a.Score,
		a.Solution,
		a.Reasoning,
		a.TrendScore,
		marketSize,
		a.Competitors,
		a.Difficulty,
		a.TimeToBuild,
		a.Err,
	)
	if err != nil {
		return fmt.Errorf("error saving analysis for %s: %w", postID, err)
	}

	return nil
}

// RecentPosts returns posts first seen within the trailing window, newest
// first, optionally restricted to one source.
func (s *PostStore) RecentPosts(ctx context.Context, days int, src string) ([]post.Post, error) {
	query := `
		SELECT id, source, title, text, url, created_utc, score, num_comments, metadata
		FROM posts
		WHERE first_seen_at >= now() - make_interval(days => $1)
	`
	args := []interface{}{days}
	if src != "" {
		query += " AND source = $2"
		args = append(args, src)
	}
	query += " ORDER BY first_seen_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying recent posts: %w", err)
	}
	defer rows.Close()

	var posts []post.Post
	for rows.Next() {
		var p post.Post
		var metadataJSON []byte

		err := rows.Scan(
			&p.ID,
			&p.Source,
			&p.Title,
			&p.Text,
			&p.URL,
			&p.CreatedUTC,
			&p.Score,
			&p.NumComments,
			&metadataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}

		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return nil, fmt.Errorf("error unmarshaling metadata: %w", err)
		}

		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

// AnalysisRecord is one historized classification event.
type AnalysisRecord struct {
	AnalyzedAt time.Time     `json:"analyzed_at"`
	Analysis   post.Analysis `json:"analysis"`
}

// AnalysisHistory returns every classification event for a post, newest
// first. Useful for tracking how scores move over time.
func (s *PostStore) AnalysisHistory(ctx context.Context, postID string) ([]AnalysisRecord, error) {
	query := `
		SELECT analyzed_at, is_pain_point, score, solution, reasoning,
		       trend_score, market_size, competitors, difficulty, time_to_build, error
		FROM analysis_results
		WHERE post_id = $1
		ORDER BY analyzed_at DESC
	`

	rows, err := s.db.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("error querying analysis history: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		err := rows.Scan(
			&rec.AnalyzedAt,
			&rec.Analysis.IsPainPoint,
			&rec.Analysis.Score,
			&rec.Analysis.Solution,
			&rec.Analysis.Reasoning,
			&rec.Analysis.TrendScore,
			&rec.Analysis.MarketSize,
			&rec.Analysis.Competitors,
			&rec.Analysis.Difficulty,
			&rec.Analysis.TimeToBuild,
			&rec.Analysis.Err,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning analysis: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return records, nil
}

// Stats aggregates store-wide counts.
type Stats struct {
	TotalPosts      int            `json:"total_posts"`
	PostsBySource   map[string]int `json:"posts_by_source"`
	TotalAnalyses   int            `json:"total_analyses"`
	PainPointsFound int            `json:"pain_points_found"`
	AvgPainScore    float64        `json:"avg_pain_score"`
}

// Stats computes aggregate counts over posts and analyses.
func (s *PostStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{PostsBySource: make(map[string]int)}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&stats.TotalPosts); err != nil {
		return stats, fmt.Errorf("error counting posts: %w", err)
	}

	rows, err := s.db.Query(ctx, `SELECT source, COUNT(*) FROM posts GROUP BY source`)
	if err != nil {
		return stats, fmt.Errorf("error counting posts by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var count int
		if err := rows.Scan(&src, &count); err != nil {
			return stats, fmt.Errorf("error scanning source count: %w", err)
		}
		stats.PostsBySource[src] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("error iterating source counts: %w", err)
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM analysis_results`).Scan(&stats.TotalAnalyses); err != nil {
		return stats, fmt.Errorf("error counting analyses: %w", err)
	}

	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_results WHERE is_pain_point`,
	).Scan(&stats.PainPointsFound); err != nil {
		return stats, fmt.Errorf("error counting pain points: %w", err)
	}

	if err := s.db.QueryRow(ctx,
		`SELECT COALESCE(ROUND(AVG(score)::numeric, 2), 0) FROM analysis_results WHERE is_pain_point`,
	).Scan(&stats.AvgPainScore); err != nil {
		return stats, fmt.Errorf("error averaging pain score: %w", err)
	}

	return stats, nil
}
