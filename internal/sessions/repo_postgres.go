package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mentorship-platform/pkg/utils"

	"github.com/lib/pq"
)

// openAnonymousKey allows one PENDING or ACCEPTED anonymous session per user.
const openAnonymousKey = "sessions_open_anonymous_key"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const sessionColumns = `id, user_id, mentor_id, call_type, status,
room_id, room_name, host_code, guest_code, host_join_url, guest_join_url,
duration_minutes, start_time, end_time,
user_joined, user_joined_at, mentor_joined, mentor_joined_at, timer_started, actual_start_time,
recording_id, recording_status, recording_url,
is_anonymous, anonymous_session_id, accept_expires_at,
package_id, slot_id, is_support_session, support_expires_at,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s                                         Session
		userJoinedAt, mentorJoinedAt, actualStart sql.NullTime
		acceptExpiresAt, supportExpiresAt         sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.MentorID, &s.CallType, &s.Status,
		&s.RoomID, &s.RoomName, &s.HostCode, &s.GuestCode, &s.HostJoinURL, &s.GuestJoinURL,
		&s.DurationMinutes, &s.StartTime, &s.EndTime,
		&s.UserJoined, &userJoinedAt, &s.MentorJoined, &mentorJoinedAt, &s.TimerStarted, &actualStart,
		&s.RecordingID, &s.RecordingStatus, &s.RecordingURL,
		&s.IsAnonymous, &s.AnonymousSessionID, &acceptExpiresAt,
		&s.PackageID, &s.SlotID, &s.IsSupportSession, &supportExpiresAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return Session{}, err
	}
	s.UserJoinedAt = timePtr(userJoinedAt)
	s.MentorJoinedAt = timePtr(mentorJoinedAt)
	s.ActualStartTime = timePtr(actualStart)
	s.AcceptExpiresAt = timePtr(acceptExpiresAt)
	s.SupportExpiresAt = timePtr(supportExpiresAt)
	return s, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func statusArray(set []Status) any {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return pq.Array(out)
}

func (r *PostgresRepo) Create(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (`+sessionColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32)`,
		s.ID, s.UserID, s.MentorID, s.CallType, s.Status,
		s.RoomID, s.RoomName, s.HostCode, s.GuestCode, s.HostJoinURL, s.GuestJoinURL,
		s.DurationMinutes, s.StartTime, s.EndTime,
		s.UserJoined, nullTime(s.UserJoinedAt), s.MentorJoined, nullTime(s.MentorJoinedAt), s.TimerStarted, nullTime(s.ActualStartTime),
		s.RecordingID, s.RecordingStatus, s.RecordingURL,
		s.IsAnonymous, s.AnonymousSessionID, nullTime(s.AcceptExpiresAt),
		s.PackageID, s.SlotID, s.IsSupportSession, nullTime(s.SupportExpiresAt),
		s.CreatedAt, s.UpdatedAt,
	)
	if name, ok := utils.ViolatedConstraint(err); ok && name == openAnonymousKey {
		return ErrOpenAnonymousExists
	}
	return err
}

func (r *PostgresRepo) getBy(ctx context.Context, where string, arg any) (Session, bool, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Session, bool, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *PostgresRepo) GetByAnonymousID(ctx context.Context, anonID string) (Session, bool, error) {
	return r.getBy(ctx, `is_anonymous AND anonymous_session_id = $1`, anonID)
}

// updateOne runs an UPDATE ... RETURNING and reports whether a row matched.
func (r *PostgresRepo) updateOne(ctx context.Context, query string, args ...any) (Session, bool, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (r *PostgresRepo) Transition(ctx context.Context, id string, from []Status, to Status, now time.Time) (Session, bool, error) {
	return r.updateOne(ctx, `
UPDATE sessions
SET status = $3,
    end_time = CASE WHEN $3 = 'COMPLETED' THEN $4 ELSE end_time END,
    updated_at = $4
WHERE id = $1 AND status = ANY($2)
RETURNING `+sessionColumns, id, statusArray(from), to, now)
}

func (r *PostgresRepo) RecordJoin(ctx context.Context, id string, role Role, startNow bool, now time.Time) (Session, bool, error) {
	var query string
	switch role {
	case RoleUser:
		query = `
UPDATE sessions
SET user_joined = true,
    user_joined_at = $3,
    status = 'ACTIVE',
    actual_start_time = CASE WHEN NOT timer_started AND ($4 OR mentor_joined) THEN $3 ELSE actual_start_time END,
    timer_started = timer_started OR $4 OR mentor_joined,
    updated_at = $3
WHERE id = $1 AND status = ANY($2)
RETURNING ` + sessionColumns
	case RoleMentor:
		query = `
UPDATE sessions
SET mentor_joined = true,
    mentor_joined_at = $3,
    status = 'ACTIVE',
    actual_start_time = CASE WHEN NOT timer_started AND ($4 OR user_joined) THEN $3 ELSE actual_start_time END,
    timer_started = timer_started OR $4 OR user_joined,
    updated_at = $3
WHERE id = $1 AND status = ANY($2)
RETURNING ` + sessionColumns
	default:
		return Session{}, false, nil
	}
	return r.updateOne(ctx, query, id, statusArray(sourcesOf(StatusActive)), now, startNow)
}

func (r *PostgresRepo) ClaimRecording(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE sessions SET recording_status = 'processing', updated_at = $2
WHERE id = $1 AND recording_id = '' AND recording_status = ''`, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *PostgresRepo) SetRecording(ctx context.Context, id, recordingID string, status RecordingStatus, url string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sessions SET recording_id = $2, recording_status = $3, recording_url = $4, updated_at = $5
WHERE id = $1`, id, recordingID, status, url, now)
	return err
}

func (r *PostgresRepo) AppendMessage(ctx context.Context, m Message, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO session_messages (id, session_id, sender_id, sender_name, body, topic, sent_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.SessionID, m.SenderID, m.SenderName, m.Body, m.Topic, m.SentAt,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE sessions
SET status = CASE WHEN status IN ('PENDING', 'ACCEPTED') THEN 'ACTIVE' ELSE status END,
    updated_at = $2
WHERE id = $1`, m.SessionID, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, sender_id, sender_name, body, topic, sent_at
FROM session_messages WHERE session_id = $1 ORDER BY sent_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SenderID, &m.SenderName, &m.Body, &m.Topic, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) FindOpenSupport(ctx context.Context, userID, mentorID string) (Session, bool, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE is_support_session AND user_id = $1 AND mentor_id = $2
  AND status IN ('PENDING', 'ACCEPTED', 'ACTIVE')
ORDER BY created_at DESC LIMIT 1`, userID, mentorID))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (r *PostgresRepo) FindOpenAnonymous(ctx context.Context, userID string) (Session, bool, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE is_anonymous AND user_id = $1 AND status IN ('PENDING', 'ACCEPTED')
ORDER BY created_at DESC LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (r *PostgresRepo) ListActiveAnonymous(ctx context.Context, userID string) ([]Session, error) {
	return r.list(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE is_anonymous AND user_id = $1 AND status IN ('PENDING', 'ACCEPTED', 'ACTIVE')
ORDER BY created_at DESC`, userID)
}

func (r *PostgresRepo) ExpirePendingAnonymous(ctx context.Context, now time.Time) ([]Session, error) {
	return r.list(ctx, `
UPDATE sessions SET status = 'EXPIRED', updated_at = $1
WHERE is_anonymous AND status = 'PENDING' AND accept_expires_at <= $1
RETURNING `+sessionColumns, now)
}

func (r *PostgresRepo) ListByParticipant(ctx context.Context, principalID string, role Role) ([]Session, error) {
	col := "user_id"
	if role == RoleMentor {
		col = "mentor_id"
	}
	return r.list(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE `+col+` = $1
ORDER BY created_at DESC`, principalID)
}
