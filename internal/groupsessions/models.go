package groupsessions

import (
	"time"

	"mentorship-platform/internal/calls"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// GroupSession is a capacity-bounded session a mentor schedules for many users.
//
// Invariant: len(BookedUsers) <= Capacity and BookedUsers has no duplicates.
type GroupSession struct {
	ID          string     `json:"id"`
	MentorID    string     `json:"mentor_id"`
	CategoryID  string     `json:"category_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	SessionType calls.Type `json:"session_type"`
	PriceMinor  int64      `json:"price_minor"`

	Capacity    int      `json:"capacity"`
	BookedUsers []string `json:"booked_users"`

	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`

	RoomID        string `json:"room_id"`
	JoinLink      string `json:"join_link,omitempty"`
	ShareableLink string `json:"shareable_link"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g GroupSession) HasBooked(userID string) bool {
	for _, u := range g.BookedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

func (g GroupSession) SeatsLeft() int {
	n := g.Capacity - len(g.BookedUsers)
	if n < 0 {
		return 0
	}
	return n
}

// parseSessionType accepts the one-to-one media types a group session can use.
func parseSessionType(v string) (calls.Type, error) {
	t, err := calls.ParseType(v)
	if err != nil || !t.OneToOne() {
		return "", ErrInvalidArgument
	}
	return t, nil
}
