package packages

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mentorship-platform/internal/calls"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const packageColumns = `id, user_id, mentor_id, category_id, type, total_sessions, remaining_sessions,
price_minor, duration_minutes, status, expiry_date, chat_support_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (Package, error) {
	var (
		p        Package
		userID   sql.NullString
		duration sql.NullInt32
		expiry   sql.NullTime
		support  sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&userID,
		&p.MentorID,
		&p.CategoryID,
		&p.Type,
		&p.TotalSessions,
		&p.RemainingSessions,
		&p.PriceMinor,
		&duration,
		&p.Status,
		&expiry,
		&support,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Package{}, err
	}
	p.UserID = userID.String
	if duration.Valid {
		d := int(duration.Int32)
		p.DurationMinutes = &d
	}
	if expiry.Valid {
		t := expiry.Time
		p.ExpiryDate = &t
	}
	if support.Valid {
		t := support.Time
		p.ChatSupportExpiresAt = &t
	}
	return p, nil
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullInt(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepo) Create(ctx context.Context, p Package) error {
	q := `INSERT INTO session_packages (` + packageColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.db.ExecContext(ctx, q,
		p.ID,
		nullString(p.UserID),
		p.MentorID,
		p.CategoryID,
		p.Type,
		p.TotalSessions,
		p.RemainingSessions,
		p.PriceMinor,
		nullInt(p.DurationMinutes),
		p.Status,
		nullTime(p.ExpiryDate),
		nullTime(p.ChatSupportExpiresAt),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) one(ctx context.Context, q string, args ...any) (Package, bool, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Package{}, false, nil
		}
		return Package{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Package, bool, error) {
	return r.one(ctx, `SELECT `+packageColumns+` FROM session_packages WHERE id = $1`, id)
}

func (r *PostgresRepo) Consume(ctx context.Context, id string, now time.Time) (Package, bool, error) {
	q := `
UPDATE session_packages
SET remaining_sessions = remaining_sessions - 1,
    status = CASE WHEN remaining_sessions - 1 = 0 THEN 'expired' ELSE status END,
    updated_at = $2
WHERE id = $1 AND status = 'active' AND remaining_sessions > 0
RETURNING ` + packageColumns
	return r.one(ctx, q, id, now)
}

func (r *PostgresRepo) Restore(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `
UPDATE session_packages
SET remaining_sessions = remaining_sessions + 1, status = 'active', updated_at = $2
WHERE id = $1 AND user_id IS NOT NULL AND status IN ('active', 'expired')
  AND remaining_sessions < total_sessions
`
	return r.affected(ctx, q, id, now)
}

func (r *PostgresRepo) affected(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) OpenChatSupport(ctx context.Context, id string, expiresAt, now time.Time) (Package, bool, error) {
	q := `
UPDATE session_packages
SET status = 'chat_support_active', chat_support_expires_at = $2, updated_at = $3
WHERE id = $1 AND remaining_sessions = 0 AND status IN ('active', 'expired')
RETURNING ` + packageColumns
	return r.one(ctx, q, id, expiresAt, now)
}

func (r *PostgresRepo) ExtendChatSupport(ctx context.Context, id string, expiresAt, now time.Time) (Package, bool, error) {
	q := `
UPDATE session_packages
SET chat_support_expires_at = $2, updated_at = $3
WHERE id = $1 AND status = 'chat_support_active'
RETURNING ` + packageColumns
	return r.one(ctx, q, id, expiresAt, now)
}

func (r *PostgresRepo) ExpireChatSupport(ctx context.Context, now time.Time) (int, error) {
	const q = `
UPDATE session_packages SET status = 'expired', updated_at = $1
WHERE status = 'chat_support_active' AND chat_support_expires_at <= $1
`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepo) UpdateTemplate(ctx context.Context, p Package) (bool, error) {
	const q = `
UPDATE session_packages
SET type = $2, total_sessions = $3, remaining_sessions = $3, price_minor = $4,
    duration_minutes = $5, category_id = $6, updated_at = $7
WHERE id = $1 AND status = 'template'
`
	return r.affected(ctx, q, p.ID, p.Type, p.TotalSessions, p.PriceMinor, nullInt(p.DurationMinutes), p.CategoryID, p.UpdatedAt)
}

func (r *PostgresRepo) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	return r.affected(ctx, `DELETE FROM session_packages WHERE id = $1 AND status = 'template'`, id)
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]Package, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, status Status, callType calls.Type) ([]Package, error) {
	q := `SELECT ` + packageColumns + ` FROM session_packages
WHERE user_id = $1 AND status = $2 AND ($3 = '' OR type = $3)
ORDER BY created_at DESC`
	return r.list(ctx, q, userID, status, string(callType))
}

func (r *PostgresRepo) ListTemplates(ctx context.Context, mentorID string) ([]Package, error) {
	q := `SELECT ` + packageColumns + ` FROM session_packages
WHERE mentor_id = $1 AND status = 'template'
ORDER BY created_at DESC`
	return r.list(ctx, q, mentorID)
}

func (r *PostgresRepo) ListChatSupport(ctx context.Context, userID, mentorID string, now time.Time) ([]Package, error) {
	q := `SELECT ` + packageColumns + ` FROM session_packages
WHERE status = 'chat_support_active' AND chat_support_expires_at > $1
  AND ($2 = '' OR user_id = $2) AND ($3 = '' OR mentor_id = $3)
ORDER BY chat_support_expires_at ASC`
	return r.list(ctx, q, now, userID, mentorID)
}

func (r *PostgresRepo) ListCompletedWithoutSupport(ctx context.Context) ([]Package, error) {
	q := `SELECT ` + packageColumns + ` FROM session_packages
WHERE status = 'expired' AND user_id IS NOT NULL AND remaining_sessions = 0
  AND chat_support_expires_at IS NULL`
	return r.list(ctx, q)
}
