package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"problemhunter/internal/domain/trend"
)

// TrendStore implements storage for problem trend aggregates.
//
// The recency queries join analysis events through the capped
// sample_post_ids list, so recent/past counts for trends with more than
// trend.MaxSamplePosts contributors reflect only the sampled history;
// occurrence_count is the authoritative total.
type TrendStore struct {
	db *pgxpool.Pool
}

// NewTrendStore creates a new trend store.
func NewTrendStore(db *pgxpool.Pool) *TrendStore {
	return &TrendStore{db: db}
}

// TrackObservation folds one problem sighting into its aggregate row. The
// read-modify-write runs in a transaction with the row locked, so racing
// writers on the same hash serialize instead of losing updates.
func (s *TrendStore) TrackObservation(ctx context.Context, obs trend.Observation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Make sure the row exists, then lock it. Two writers racing on a new
	// hash both arrive here; the second blocks on the unique index until
	// the first commits.
	_, err = tx.Exec(ctx, `
		INSERT INTO problem_trends (problem_hash)
		VALUES ($1)
		ON CONFLICT (problem_hash) DO NOTHING
	`, obs.ProblemHash)
	if err != nil {
		return fmt.Errorf("error inserting trend row: %w", err)
	}

	var current trend.ProblemTrend
	var sourcesJSON, samplesJSON []byte
	err = tx.QueryRow(ctx, `
		SELECT problem_hash, problem_summary, first_seen, last_seen,
		       occurrence_count, avg_score, sources, sample_post_ids
		FROM problem_trends
		WHERE problem_hash = $1
		FOR UPDATE
	`, obs.ProblemHash).Scan(
		&current.ProblemHash,
		&current.ProblemSummary,
		&current.FirstSeen,
		&current.LastSeen,
		&current.OccurrenceCount,
		&current.AvgScore,
		&sourcesJSON,
		&samplesJSON,
	)
	if err != nil {
		return fmt.Errorf("error locking trend row: %w", err)
	}

	if current.OccurrenceCount == 0 {
		// Fresh row: the column defaults are placeholders, not sightings.
		current = trend.ProblemTrend{}
	} else {
		if err := json.Unmarshal(sourcesJSON, &current.Sources); err != nil {
			return fmt.Errorf("error unmarshaling sources: %w", err)
		}
		if err := json.Unmarshal(samplesJSON, &current.SamplePostIDs); err != nil {
			return fmt.Errorf("error unmarshaling sample post ids: %w", err)
		}
	}

	updated := trend.Apply(current, obs)

	updatedSources, err := json.Marshal(updated.Sources)
	if err != nil {
		return fmt.Errorf("error marshaling sources: %w", err)
	}
	updatedSamples, err := json.Marshal(updated.SamplePostIDs)
	if err != nil {
		return fmt.Errorf("error marshaling sample post ids: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE problem_trends
		SET problem_summary = $2,
		    first_seen = $3,
		    last_seen = $4,
		    occurrence_count = $5,
		    avg_score = $6,
		    sources = $7,
		    sample_post_ids = $8
		WHERE problem_hash = $1
	`,
		obs.ProblemHash,
		updated.ProblemSummary,
		updated.FirstSeen,
		updated.LastSeen,
		updated.OccurrenceCount,
		updated.AvgScore,
		updatedSources,
		updatedSamples,
	)
	if err != nil {
		return fmt.Errorf("error updating trend row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing trend update: %w", err)
	}

	return nil
}

// GetTrend retrieves one aggregate by its problem hash.
func (s *TrendStore) GetTrend(ctx context.Context, problemHash string) (*trend.ProblemTrend, error) {
	var t trend.ProblemTrend
	var sourcesJSON, samplesJSON []byte

	err := s.db.QueryRow(ctx, `
		SELECT problem_hash, problem_summary, first_seen, last_seen,
		       occurrence_count, avg_score, sources, sample_post_ids
		FROM problem_trends
		WHERE problem_hash = $1
	`, problemHash).Scan(
		&t.ProblemHash,
		&t.ProblemSummary,
		&t.FirstSeen,
		&t.LastSeen,
		&t.OccurrenceCount,
		&t.AvgScore,
		&sourcesJSON,
		&samplesJSON,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying trend: %w", err)
	}

	if err := json.Unmarshal(sourcesJSON, &t.Sources); err != nil {
		return nil, fmt.Errorf("error unmarshaling sources: %w", err)
	}
	if err := json.Unmarshal(samplesJSON, &t.SamplePostIDs); err != nil {
		return nil, fmt.Errorf("error unmarshaling sample post ids: %w", err)
	}

	return &t, nil
}

// EmergingTrends returns trends with sampled recent activity, ranked by
// recent mention count then average score.
func (s *TrendStore) EmergingTrends(ctx context.Context, days, minRecent, limit int) ([]trend.Report, error) {
	query := `
		SELECT pt.problem_hash, pt.problem_summary, pt.first_seen, pt.last_seen,
		       pt.occurrence_count, pt.avg_score, pt.sources, pt.sample_post_ids,
		       COUNT(*) FILTER (WHERE ar.analyzed_at >= now() - make_interval(days => $1)) AS recent_count,
		       COUNT(ar.id) AS total_count
		FROM problem_trends pt
		JOIN analysis_results ar
		  ON ar.post_id = ANY (SELECT jsonb_array_elements_text(pt.sample_post_ids))
		GROUP BY pt.id
		HAVING COUNT(*) FILTER (WHERE ar.analyzed_at >= now() - make_interval(days => $1)) >= $2
		ORDER BY recent_count DESC, pt.avg_score DESC
		LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, days, minRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying emerging trends: %w", err)
	}
	defer rows.Close()

	return scanReports(rows, false)
}

// DecliningTrends returns trends with at least three total occurrences whose
// sampled past activity more than doubles their recent activity.
func (s *TrendStore) DecliningTrends(ctx context.Context, days, limit int) ([]trend.Report, error) {
	query := `
		SELECT pt.problem_hash, pt.problem_summary, pt.first_seen, pt.last_seen,
		       pt.occurrence_count, pt.avg_score, pt.sources, pt.sample_post_ids,
		       COUNT(*) FILTER (WHERE ar.analyzed_at >= now() - make_interval(days => $1)) AS recent_count,
		       COUNT(ar.id) AS total_count,
		       COUNT(*) FILTER (WHERE ar.analyzed_at < now() - make_interval(days => $1)) AS past_count
		FROM problem_trends pt
		JOIN analysis_results ar
		  ON ar.post_id = ANY (SELECT jsonb_array_elements_text(pt.sample_post_ids))
		WHERE pt.occurrence_count >= 3
		GROUP BY pt.id
		HAVING COUNT(*) FILTER (WHERE ar.analyzed_at < now() - make_interval(days => $1)) >
		       COUNT(*) FILTER (WHERE ar.analyzed_at >= now() - make_interval(days => $1)) * 2
		ORDER BY past_count DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying declining trends: %w", err)
	}
	defer rows.Close()

	return scanReports(rows, true)
}

// TrendMentions returns the analysis timestamps of a trend's sampled posts
// within the trailing window, oldest first.
func (s *TrendStore) TrendMentions(ctx context.Context, problemHash string, days int) ([]time.Time, error) {
	query := `
		SELECT ar.analyzed_at
		FROM problem_trends pt
		JOIN analysis_results ar
		  ON ar.post_id = ANY (SELECT jsonb_array_elements_text(pt.sample_post_ids))
		WHERE pt.problem_hash = $1
		  AND ar.analyzed_at >= now() - make_interval(days => $2)
		ORDER BY ar.analyzed_at
	`

	rows, err := s.db.Query(ctx, query, problemHash, days)
	if err != nil {
		return nil, fmt.Errorf("error querying trend mentions: %w", err)
	}
	defer rows.Close()

	var mentions []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("error scanning mention: %w", err)
		}
		mentions = append(mentions, at)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentions: %w", err)
	}

	return mentions, nil
}

func scanReports(rows pgx.Rows, withPast bool) ([]trend.Report, error) {
	var reports []trend.Report
	for rows.Next() {
		var r trend.Report
		var sourcesJSON, samplesJSON []byte

		dest := []interface{}{
			&r.ProblemHash,
			&r.ProblemSummary,
			&r.FirstSeen,
			&r.LastSeen,
			&r.OccurrenceCount,
			&r.AvgScore,
			&sourcesJSON,
			&samplesJSON,
			&r.RecentCount,
			&r.TotalCount,
		}
		if withPast {
			dest = append(dest, &r.PastCount)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning trend report: %w", err)
		}

		if err := json.Unmarshal(sourcesJSON, &r.Sources); err != nil {
			return nil, fmt.Errorf("error unmarshaling sources: %w", err)
		}
		if err := json.Unmarshal(samplesJSON, &r.SamplePostIDs); err != nil {
			return nil, fmt.Errorf("error unmarshaling sample post ids: %w", err)
		}

		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend reports: %w", err)
	}

	return reports, nil
}
