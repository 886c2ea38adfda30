package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mentorship-platform/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const accountColumns = `
id, kind, email, name, password_hash, blocked, online, last_seen_at,
in_call, is_unavailable, verified, active,
is_deactivated, deactivation_type, deactivated_at, reactivation_date, deactivation_reason,
marked_for_deletion, deletion_scheduled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var dtype sql.NullString
	err := row.Scan(
		&a.ID,
		&a.Kind,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.Blocked,
		&a.Online,
		&a.LastSeenAt,
		&a.InCall,
		&a.IsUnavailable,
		&a.Verified,
		&a.Active,
		&a.Deactivation.IsDeactivated,
		&dtype,
		&a.Deactivation.DeactivatedAt,
		&a.Deactivation.ReactivationDate,
		&a.Deactivation.Reason,
		&a.Deactivation.MarkedForDeletion,
		&a.Deactivation.DeletionScheduledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	a.Deactivation.Type = DeactivationType(dtype.String)
	return a, err
}

func (r *PostgresRepo) Create(ctx context.Context, a Account) error {
	const q = `
INSERT INTO accounts (id, kind, email, name, password_hash, verified, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.Kind, a.Email, a.Name, a.PasswordHash, a.Verified, a.Active, a.CreatedAt, a.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepo) getBy(ctx context.Context, where string, arg any) (Account, bool, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	a, err := scanAccount(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Account, bool, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (Account, bool, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *PostgresRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET blocked = $2, updated_at = $3 WHERE id = $1`, id, blocked, at)
}

func (r *PostgresRepo) SetDeactivation(ctx context.Context, id string, d Deactivation, at time.Time) error {
	const q = `
UPDATE accounts SET
  is_deactivated = $2,
  deactivation_type = NULLIF($3, ''),
  deactivated_at = $4,
  reactivation_date = $5,
  deactivation_reason = $6,
  marked_for_deletion = $7,
  deletion_scheduled_at = $8,
  online = CASE WHEN $2 THEN FALSE ELSE online END,
  updated_at = $9
WHERE id = $1
`
	return r.exec(ctx, q, id, d.IsDeactivated, string(d.Type), d.DeactivatedAt, d.ReactivationDate,
		d.Reason, d.MarkedForDeletion, d.DeletionScheduledAt, at)
}

func (r *PostgresRepo) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET online = $2, last_seen_at = $3, updated_at = $3 WHERE id = $1`, id, online, at)
}

func (r *PostgresRepo) SetInCall(ctx context.Context, id string, inCall bool, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET in_call = $2, updated_at = $3 WHERE id = $1`, id, inCall, at)
}

func (r *PostgresRepo) SetUnavailable(ctx context.Context, id string, unavailable bool, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET is_unavailable = $2, updated_at = $3 WHERE id = $1`, id, unavailable, at)
}

func (r *PostgresRepo) list(ctx context.Context, where string, args ...any) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListMatchableMentors(ctx context.Context) ([]Account, error) {
	return r.list(ctx, `kind = 'mentor' AND verified AND NOT blocked AND online AND NOT in_call AND NOT is_unavailable AND active`)
}

func (r *PostgresRepo) CountOnlineMentors(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM accounts WHERE kind = 'mentor' AND online AND NOT blocked AND verified`,
	).Scan(&n)
	return n, err
}

func (r *PostgresRepo) ListDueReactivations(ctx context.Context, now time.Time) ([]Account, error) {
	return r.list(ctx, `is_deactivated AND deactivation_type = 'temporary' AND reactivation_date <= $1`, now)
}

func (r *PostgresRepo) ListDueDeletions(ctx context.Context, cutoff time.Time) ([]Account, error) {
	return r.list(ctx, `is_deactivated AND deactivation_type = 'permanent' AND NOT marked_for_deletion AND deactivated_at <= $1`, cutoff)
}
