package schedule

import (
	"time"

	"mentorship-platform/internal/calls"
)

// Schedule is one mentor's offered slots for one calendar date.
type Schedule struct {
	ID        string    `json:"id" db:"id"`
	MentorID  string    `json:"mentor_id" db:"mentor_id"`
	SlotsDate string    `json:"slots_date" db:"slots_date"`
	Slots     []Slot    `json:"slots"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Slot moves available -> pending (booked) -> accepted | rejected.
// A rejected slot is unbooked and may be held again.
type Slot struct {
	ID              string     `json:"id" db:"id"`
	ScheduleID      string     `json:"schedule_id" db:"schedule_id"`
	Time            string     `json:"time" db:"time"`
	CallType        calls.Type `json:"call_type" db:"call_type"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	Booked          bool       `json:"booked" db:"booked"`
	Status          SlotStatus `json:"status" db:"status"`
	UserID          string     `json:"user_id,omitempty" db:"user_id"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// SlotRef is a slot together with the schedule it belongs to.
type SlotRef struct {
	Slot
	MentorID  string `json:"mentor_id"`
	SlotsDate string `json:"slots_date"`
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotAccepted  SlotStatus = "accepted"
	SlotRejected  SlotStatus = "rejected"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotAvailable, SlotPending, SlotAccepted, SlotRejected:
		return true
	default:
		return false
	}
}

// NewSlot is a slot offered by a mentor. Two slots are the same offer when all
// three fields match.
type NewSlot struct {
	Time            string
	CallType        calls.Type
	DurationMinutes int
}

// DateLayout is the calendar date format used for SlotsDate.
const DateLayout = "2006-01-02"
