package pricing

import (
	"context"
	"database/sql"
	"errors"

	"mentorship-platform/internal/calls"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) FindRate(ctx context.Context, mentorID string, callType calls.Type) (Rate, bool, error) {
	const q = `
SELECT id, mentor_id, call_type, rate_per_minute_minor, created_at, updated_at
FROM mentor_rates
WHERE mentor_id = $1 AND call_type = $2
`
	var rate Rate
	err := r.db.QueryRowContext(ctx, q, mentorID, callType).Scan(
		&rate.ID, &rate.MentorID, &rate.CallType, &rate.RatePerMinuteMinor, &rate.CreatedAt, &rate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Rate{}, false, nil
		}
		return Rate{}, false, err
	}
	return rate, true, nil
}

func (r *PostgresRepo) UpsertRate(ctx context.Context, rate Rate) (Rate, error) {
	const q = `
INSERT INTO mentor_rates (id, mentor_id, call_type, rate_per_minute_minor, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (mentor_id, call_type)
DO UPDATE SET rate_per_minute_minor = EXCLUDED.rate_per_minute_minor, updated_at = EXCLUDED.updated_at
RETURNING id, created_at
`
	err := r.db.QueryRowContext(ctx, q,
		rate.ID, rate.MentorID, rate.CallType, rate.RatePerMinuteMinor, rate.CreatedAt, rate.UpdatedAt,
	).Scan(&rate.ID, &rate.CreatedAt)
	return rate, err
}

func (r *PostgresRepo) ListRates(ctx context.Context, mentorID string) ([]Rate, error) {
	const q = `
SELECT id, mentor_id, call_type, rate_per_minute_minor, created_at, updated_at
FROM mentor_rates
WHERE mentor_id = $1
ORDER BY call_type
`
	rows, err := r.db.QueryContext(ctx, q, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.MentorID, &rate.CallType, &rate.RatePerMinuteMinor, &rate.CreatedAt, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}
