package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		created_utc BIGINT NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		num_comments INTEGER NOT NULL DEFAULT 0,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS analysis_results (
		id BIGSERIAL PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(id),
		analyzed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_pain_point BOOLEAN NOT NULL DEFAULT false,
		score INTEGER NOT NULL DEFAULT 0,
		solution TEXT NOT NULL DEFAULT '',
		reasoning TEXT NOT NULL DEFAULT '',
		trend_score INTEGER NOT NULL DEFAULT 0,
		market_size TEXT NOT NULL DEFAULT 'unknown',
		competitors TEXT NOT NULL DEFAULT '',
		difficulty INTEGER NOT NULL DEFAULT 0,
		time_to_build TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS problem_trends (
		id BIGSERIAL PRIMARY KEY,
		problem_hash TEXT NOT NULL UNIQUE,
		problem_summary TEXT NOT NULL DEFAULT '',
		first_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
		occurrence_count INTEGER NOT NULL DEFAULT 0,
		avg_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		sources JSONB NOT NULL DEFAULT '[]'::jsonb,
		sample_post_ids JSONB NOT NULL DEFAULT '[]'::jsonb
	)`,

	`CREATE INDEX IF NOT EXISTS idx_posts_source ON posts (source)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_post ON analysis_results (post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_date ON analysis_results (analyzed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_trends_hash ON problem_trends (problem_hash)`,
}

// EnsureSchema creates the tables and indexes the stores depend on.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
