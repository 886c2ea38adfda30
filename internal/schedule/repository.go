package schedule

import (
	"context"
	"time"

	"mentorship-platform/internal/calls"
)

// Repository persists schedules. Slot state changes are single conditional
// writes; a false result means the slot was not in a state allowing it.
type Repository interface {
	// EnsureSchedule returns the mentor's schedule for date, creating it if needed.
	EnsureSchedule(ctx context.Context, s Schedule) (Schedule, error)
	// AddSlots inserts slots not already offered on the schedule and returns
	// how many were new.
	AddSlots(ctx context.Context, scheduleID string, slots []Slot) (int, error)
	GetSchedule(ctx context.Context, id string) (Schedule, bool, error)
	ListByMentor(ctx context.Context, mentorID, fromDate string) ([]Schedule, error)
	DeleteSchedule(ctx context.Context, mentorID, scheduleID string) (bool, error)

	FindSlot(ctx context.Context, slotID string) (SlotRef, bool, error)
	Hold(ctx context.Context, mentorID, slotID, userID string, callType calls.Type, durationMinutes int, now time.Time) (SlotRef, bool, error)
	Release(ctx context.Context, slotID, userID string, now time.Time) (bool, error)
	Accept(ctx context.Context, mentorID, slotID string, now time.Time) (SlotRef, bool, error)
	// Unaccept returns an accepted slot still held by userID to pending.
	Unaccept(ctx context.Context, mentorID, slotID, userID string, now time.Time) (bool, error)
	// Reject unbooks the slot and returns it with the previous holder in UserID.
	Reject(ctx context.Context, mentorID, slotID string, now time.Time) (SlotRef, bool, error)
	UpdateSlot(ctx context.Context, mentorID string, s Slot) (bool, error)
	DeleteSlot(ctx context.Context, mentorID, slotID string) (bool, error)

	ListAccepted(ctx context.Context, date string) ([]SlotRef, error)
}
