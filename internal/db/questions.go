package db

import (
	"context"
	"fmt"

	"github.com/jonathan/interview-engine/internal/types"
)

// -----------------------------------------------------------------------------
// Question Bank Methods
// -----------------------------------------------------------------------------

// FetchPool retrieves the active questions eligible for a session, ordered by ID.
// The difficulty band is applied in SQL; role and technology tags are matched
// with types.PoolQuery so every bank filters the same way.
func (db *DB) FetchPool(ctx context.Context, q types.PoolQuery) ([]types.QuestionItem, error) {
	query := `SELECT id, category, difficulty, discrimination, guessing, upper_asymptote,
	                 expected_duration_seconds, job_roles, technologies
	          FROM questions
	          WHERE active`
	args := []any{}
	if !q.Band.IsZero() {
		query += ` AND difficulty BETWEEN $1 AND $2`
		args = append(args, q.Band.Min, q.Band.Max)
	}
	query += ` ORDER BY id`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch question pool: %w", err)
	}
	defer rows.Close()

	var pool []types.QuestionItem
	for rows.Next() {
		var item types.QuestionItem
		if err := rows.Scan(&item.ID, &item.Category, &item.Difficulty, &item.Discrimination,
			&item.Guessing, &item.UpperAsymptote, &item.ExpectedDurationSeconds,
			&item.JobRoles, &item.Technologies); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if q.Matches(item) {
			pool = append(pool, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question pool: %w", err)
	}
	return pool, nil
}

// UpsertQuestions validates and stores calibrated items, replacing existing
// rows with the same ID. It returns the number of items written.
func (db *DB) UpsertQuestions(ctx context.Context, items []types.QuestionItem) (int, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO questions (id, category, difficulty, discrimination, guessing, upper_asymptote,
			                        expected_duration_seconds, job_roles, technologies, active, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			   category = EXCLUDED.category,
			   difficulty = EXCLUDED.difficulty,
			   discrimination = EXCLUDED.discrimination,
			   guessing = EXCLUDED.guessing,
			   upper_asymptote = EXCLUDED.upper_asymptote,
			   expected_duration_seconds = EXCLUDED.expected_duration_seconds,
			   job_roles = EXCLUDED.job_roles,
			   technologies = EXCLUDED.technologies,
			   active = TRUE,
			   updated_at = NOW()`,
			item.ID, item.Category, item.Difficulty, item.Discrimination, item.Guessing, item.Ceiling(),
			item.ExpectedDurationSeconds, nonNil(item.JobRoles), nonNil(item.Technologies),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert question %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit questions: %w", err)
	}
	return len(items), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
