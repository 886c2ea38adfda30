package mentorwallet

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const entryColumns = `id, user_id, mentor_id, slot_id, amount_minor, mentor_share, admin_share,
type, status, description, duration_minutes, call_type, session_date, session_time, booking_type, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.MentorID,
		&e.SlotID,
		&e.AmountMinor,
		&e.MentorShare,
		&e.AdminShare,
		&e.Type,
		&e.Status,
		&e.Description,
		&e.Session.DurationMinutes,
		&e.Session.CallType,
		&e.Session.SessionDate,
		&e.Session.SessionTime,
		&e.Session.BookingType,
		&e.CreatedAt,
	)
	return e, err
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO mentor_wallet_entries (`+entryColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		e.ID, e.UserID, e.MentorID, e.SlotID, e.AmountMinor, e.MentorShare, e.AdminShare,
		e.Type, e.Status, e.Description,
		e.Session.DurationMinutes, e.Session.CallType, e.Session.SessionDate, e.Session.SessionTime, e.Session.BookingType,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListByMentor(ctx context.Context, mentorID string) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM mentor_wallet_entries WHERE mentor_id = $1 ORDER BY created_at DESC, id DESC`, mentorID)
}

func (r *PostgresRepo) ListAll(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return r.list(ctx, `SELECT `+entryColumns+` FROM mentor_wallet_entries ORDER BY created_at DESC, id DESC`)
	}
	return r.list(ctx, `SELECT `+entryColumns+` FROM mentor_wallet_entries ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

func (r *PostgresRepo) MarkRefunded(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE mentor_wallet_entries SET status = 'refunded'
WHERE id = $1 AND type = 'credit' AND status = 'confirmed'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Totals sums confirmed shares in SQL; used by the earnings endpoint when the feed is long.
func (r *PostgresRepo) Totals(ctx context.Context, mentorID string) (credited, debited decimal.Decimal, err error) {
	err = r.db.QueryRowContext(ctx, `
SELECT
  COALESCE(SUM(mentor_share) FILTER (WHERE type = 'credit'), 0),
  COALESCE(SUM(mentor_share) FILTER (WHERE type IN ('debit', 'refund')), 0)
FROM mentor_wallet_entries
WHERE mentor_id = $1 AND status = 'confirmed'`, mentorID).Scan(&credited, &debited)
	return credited, debited, err
}
