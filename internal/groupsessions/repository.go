package groupsessions

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, g GroupSession) error
	Get(ctx context.Context, id string) (GroupSession, bool, error)
	GetByRoom(ctx context.Context, roomID string) (GroupSession, bool, error)
	ListByMentor(ctx context.Context, mentorID string) ([]GroupSession, error)
	// ListScheduled returns scheduled sessions, soonest first.
	ListScheduled(ctx context.Context) ([]GroupSession, error)

	// Book adds userID when the session is scheduled, has a free seat and
	// does not already hold userID. ok is false when any condition fails.
	Book(ctx context.Context, id, userID string, now time.Time) (GroupSession, bool, error)

	// Update writes the mutable fields; it refuses a capacity below the booked count.
	Update(ctx context.Context, g GroupSession) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
