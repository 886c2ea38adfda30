package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mentorship-platform/internal/calls"
	"mentorship-platform/pkg/utils"

	"github.com/lib/pq"
)

// PostgresRepo stores schedules in call_schedules and their slots in
// schedule_slots. schedule_slots is UNIQUE on (schedule_id, time, call_type,
// duration_minutes), which is what makes AddSlots a set-union.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const slotRefColumns = `s.id, s.schedule_id, s.time, s.call_type, s.duration_minutes, s.booked, s.status,
COALESCE(s.user_id, ''), s.updated_at, c.mentor_id, c.slots_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlotRef(row rowScanner) (SlotRef, error) {
	var r SlotRef
	err := row.Scan(
		&r.ID,
		&r.ScheduleID,
		&r.Time,
		&r.CallType,
		&r.DurationMinutes,
		&r.Booked,
		&r.Status,
		&r.UserID,
		&r.UpdatedAt,
		&r.MentorID,
		&r.SlotsDate,
	)
	return r, err
}

func (r *PostgresRepo) EnsureSchedule(ctx context.Context, s Schedule) (Schedule, error) {
	const q = `
INSERT INTO call_schedules (id, mentor_id, slots_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (mentor_id, slots_date) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING id, mentor_id, slots_date, created_at, updated_at
`
	var out Schedule
	err := r.db.QueryRowContext(ctx, q, s.ID, s.MentorID, s.SlotsDate, s.CreatedAt).
		Scan(&out.ID, &out.MentorID, &out.SlotsDate, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func (r *PostgresRepo) AddSlots(ctx context.Context, scheduleID string, slots []Slot) (int, error) {
	const q = `
INSERT INTO schedule_slots (id, schedule_id, time, call_type, duration_minutes, booked, status, updated_at)
VALUES ($1, $2, $3, $4, $5, false, 'available', $6)
ON CONFLICT (schedule_id, time, call_type, duration_minutes) DO NOTHING
`
	added := 0
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		for _, s := range slots {
			res, err := tx.ExecContext(ctx, q, s.ID, scheduleID, s.Time, s.CallType, s.DurationMinutes, s.UpdatedAt)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	return added, err
}

func (r *PostgresRepo) loadSlots(ctx context.Context, scheduleIDs []string, into map[string]*Schedule) error {
	if len(scheduleIDs) == 0 {
		return nil
	}
	q := `SELECT ` + slotRefColumns + `
FROM schedule_slots s JOIN call_schedules c ON c.id = s.schedule_id
WHERE s.schedule_id = ANY($1)
ORDER BY s.time`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(scheduleIDs))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		ref, err := scanSlotRef(rows)
		if err != nil {
			return err
		}
		if sch, ok := into[ref.ScheduleID]; ok {
			sch.Slots = append(sch.Slots, ref.Slot)
		}
	}
	return rows.Err()
}

func (r *PostgresRepo) schedules(ctx context.Context, q string, args ...any) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var (
		list []*Schedule
		ids  []string
		byID = make(map[string]*Schedule)
	)
	for rows.Next() {
		var s Schedule
		if err := rows.Scan(&s.ID, &s.MentorID, &s.SlotsDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, &s)
		ids = append(ids, s.ID)
		byID[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.loadSlots(ctx, ids, byID); err != nil {
		return nil, err
	}
	out := make([]Schedule, 0, len(list))
	for _, s := range list {
		out = append(out, *s)
	}
	return out, nil
}

func (r *PostgresRepo) GetSchedule(ctx context.Context, id string) (Schedule, bool, error) {
	list, err := r.schedules(ctx, `SELECT id, mentor_id, slots_date, created_at, updated_at FROM call_schedules WHERE id = $1`, id)
	if err != nil || len(list) == 0 {
		return Schedule{}, false, err
	}
	return list[0], true, nil
}

func (r *PostgresRepo) ListByMentor(ctx context.Context, mentorID, fromDate string) ([]Schedule, error) {
	const q = `
SELECT id, mentor_id, slots_date, created_at, updated_at FROM call_schedules
WHERE mentor_id = $1 AND slots_date >= $2
ORDER BY slots_date
`
	return r.schedules(ctx, q, mentorID, fromDate)
}

func (r *PostgresRepo) DeleteSchedule(ctx context.Context, mentorID, scheduleID string) (bool, error) {
	const q = `
DELETE FROM call_schedules c
WHERE c.id = $1 AND c.mentor_id = $2
  AND NOT EXISTS (SELECT 1 FROM schedule_slots s WHERE s.schedule_id = c.id AND s.booked)
`
	return r.affected(ctx, q, scheduleID, mentorID)
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

func (r *PostgresRepo) oneRef(ctx context.Context, q string, args ...any) (SlotRef, bool, error) {
	ref, err := scanSlotRef(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SlotRef{}, false, nil
		}
		return SlotRef{}, false, err
	}
	return ref, true, nil
}

func (r *PostgresRepo) FindSlot(ctx context.Context, slotID string) (SlotRef, bool, error) {
	q := `SELECT ` + slotRefColumns + `
FROM schedule_slots s JOIN call_schedules c ON c.id = s.schedule_id
WHERE s.id = $1`
	return r.oneRef(ctx, q, slotID)
}

func (r *PostgresRepo) Hold(ctx context.Context, mentorID, slotID, userID string, callType calls.Type, durationMinutes int, now time.Time) (SlotRef, bool, error) {
	q := `
UPDATE schedule_slots s
SET booked = true, status = 'pending', user_id = $3,
    call_type = COALESCE(NULLIF($4, ''), s.call_type),
    duration_minutes = CASE WHEN $5 > 0 THEN $5 ELSE s.duration_minutes END,
    updated_at = $6
FROM call_schedules c
WHERE s.id = $1 AND c.id = s.schedule_id AND c.mentor_id = $2 AND s.booked = false
RETURNING ` + slotRefColumns
	return r.oneRef(ctx, q, slotID, mentorID, userID, string(callType), durationMinutes, now)
}

func (r *PostgresRepo) Release(ctx context.Context, slotID, userID string, now time.Time) (bool, error) {
	const q = `
UPDATE schedule_slots
SET booked = false, status = 'available', user_id = NULL, updated_at = $3
WHERE id = $1 AND user_id = $2 AND booked = true AND status = 'pending'
`
	return r.affected(ctx, q, slotID, userID, now)
}

func (r *PostgresRepo) Accept(ctx context.Context, mentorID, slotID string, now time.Time) (SlotRef, bool, error) {
	q := `
UPDATE schedule_slots s
SET status = 'accepted', updated_at = $3
FROM call_schedules c
WHERE s.id = $1 AND c.id = s.schedule_id AND c.mentor_id = $2 AND s.booked = true AND s.status = 'pending'
RETURNING ` + slotRefColumns
	return r.oneRef(ctx, q, slotID, mentorID, now)
}

func (r *PostgresRepo) Unaccept(ctx context.Context, mentorID, slotID, userID string, now time.Time) (bool, error) {
	const q = `
UPDATE schedule_slots s
SET status = 'pending', updated_at = $4
FROM call_schedules c
WHERE s.id = $1 AND c.id = s.schedule_id AND c.mentor_id = $2
  AND s.user_id = $3 AND s.booked = true AND s.status = 'accepted'
`
	return r.affected(ctx, q, slotID, mentorID, userID, now)
}

func (r *PostgresRepo) Reject(ctx context.Context, mentorID, slotID string, now time.Time) (SlotRef, bool, error) {
	// prev is read under FOR UPDATE so the returned holder is the one replaced.
	const q = `
WITH prev AS (
  SELECT s.id, s.user_id
  FROM schedule_slots s JOIN call_schedules c ON c.id = s.schedule_id
  WHERE s.id = $1 AND c.mentor_id = $2 AND (s.booked OR s.status <> 'rejected')
  FOR UPDATE OF s
)
UPDATE schedule_slots s
SET status = 'rejected', booked = false, user_id = NULL, updated_at = $3
FROM prev, call_schedules c
WHERE s.id = prev.id AND c.id = s.schedule_id
RETURNING s.id, s.schedule_id, s.time, s.call_type, s.duration_minutes, s.booked, s.status,
  COALESCE(prev.user_id, ''), s.updated_at, c.mentor_id, c.slots_date
`
	return r.oneRef(ctx, q, slotID, mentorID, now)
}

func (r *PostgresRepo) UpdateSlot(ctx context.Context, mentorID string, slot Slot) (bool, error) {
	const q = `
UPDATE schedule_slots s
SET time = $3, call_type = $4, duration_minutes = $5, status = $6, updated_at = $7
FROM call_schedules c
WHERE s.id = $1 AND c.id = s.schedule_id AND c.mentor_id = $2 AND s.booked = false
`
	return r.affected(ctx, q, slot.ID, mentorID, slot.Time, slot.CallType, slot.DurationMinutes, slot.Status, slot.UpdatedAt)
}

func (r *PostgresRepo) DeleteSlot(ctx context.Context, mentorID, slotID string) (bool, error) {
	const q = `
DELETE FROM schedule_slots s
USING call_schedules c
WHERE s.id = $1 AND c.id = s.schedule_id AND c.mentor_id = $2 AND s.booked = false
`
	return r.affected(ctx, q, slotID, mentorID)
}

func (r *PostgresRepo) ListAccepted(ctx context.Context, date string) ([]SlotRef, error) {
	q := `SELECT ` + slotRefColumns + `
FROM schedule_slots s JOIN call_schedules c ON c.id = s.schedule_id
WHERE c.slots_date = $1 AND s.booked AND s.status = 'accepted' AND s.user_id IS NOT NULL`
	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SlotRef
	for rows.Next() {
		ref, err := scanSlotRef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
