package groupsessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const groupColumns = `id, mentor_id, category_id, title, description, session_type, price_minor,
capacity, booked_users, scheduled_at, status, room_id, join_link, shareable_link, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (GroupSession, error) {
	var g GroupSession
	var booked pq.StringArray
	err := row.Scan(
		&g.ID,
		&g.MentorID,
		&g.CategoryID,
		&g.Title,
		&g.Description,
		&g.SessionType,
		&g.PriceMinor,
		&g.Capacity,
		&booked,
		&g.ScheduledAt,
		&g.Status,
		&g.RoomID,
		&g.JoinLink,
		&g.ShareableLink,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return GroupSession{}, err
	}
	g.BookedUsers = []string(booked)
	if g.BookedUsers == nil {
		g.BookedUsers = []string{}
	}
	return g, nil
}

func (r *PostgresRepo) Create(ctx context.Context, g GroupSession) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO group_sessions (`+groupColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		g.ID, g.MentorID, g.CategoryID, g.Title, g.Description, g.SessionType, g.PriceMinor,
		g.Capacity, pq.Array(g.BookedUsers), g.ScheduledAt, g.Status, g.RoomID, g.JoinLink, g.ShareableLink,
		g.CreatedAt, g.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) one(ctx context.Context, query string, args ...any) (GroupSession, bool, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return GroupSession{}, false, nil
	}
	if err != nil {
		return GroupSession{}, false, err
	}
	return g, true, nil
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]GroupSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GroupSession
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (GroupSession, bool, error) {
	return r.one(ctx, `SELECT `+groupColumns+` FROM group_sessions WHERE id = $1`, id)
}

func (r *PostgresRepo) GetByRoom(ctx context.Context, roomID string) (GroupSession, bool, error) {
	return r.one(ctx, `SELECT `+groupColumns+` FROM group_sessions WHERE room_id = $1`, roomID)
}

func (r *PostgresRepo) ListByMentor(ctx context.Context, mentorID string) ([]GroupSession, error) {
	return r.list(ctx, `SELECT `+groupColumns+` FROM group_sessions WHERE mentor_id = $1 ORDER BY scheduled_at ASC, id ASC`, mentorID)
}

func (r *PostgresRepo) ListScheduled(ctx context.Context) ([]GroupSession, error) {
	return r.list(ctx, `
SELECT `+groupColumns+` FROM group_sessions
WHERE status = 'scheduled' AND mentor_id <> '' AND category_id <> ''
ORDER BY scheduled_at ASC, id ASC`)
}

func (r *PostgresRepo) Book(ctx context.Context, id, userID string, now time.Time) (GroupSession, bool, error) {
	return r.one(ctx, `
UPDATE group_sessions
SET booked_users = array_append(booked_users, $2::text), updated_at = $3
WHERE id = $1
  AND status = 'scheduled'
  AND NOT ($2::text = ANY(booked_users))
  AND cardinality(booked_users) < capacity
RETURNING `+groupColumns, id, userID, now)
}

func (r *PostgresRepo) Update(ctx context.Context, g GroupSession) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE group_sessions
SET title = $2, description = $3, price_minor = $4, capacity = $5,
    scheduled_at = $6, status = $7, join_link = $8, updated_at = $9
WHERE id = $1 AND cardinality(booked_users) <= $5`,
		g.ID, g.Title, g.Description, g.PriceMinor, g.Capacity, g.ScheduledAt, g.Status, g.JoinLink, g.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM group_sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
