package sessions

import (
	"context"
	"time"
)

// Repository persists sessions. Every status change is a conditional update
// on the current status; a false ok means the session moved first.
type Repository interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, bool, error)
	GetByAnonymousID(ctx context.Context, anonID string) (Session, bool, error)

	// Transition moves the session to to if its status is one of from.
	// Moving to COMPLETED also stamps EndTime with now.
	Transition(ctx context.Context, id string, from []Status, to Status, now time.Time) (Session, bool, error)

	// RecordJoin marks role as joined, sets ACTIVE, and starts the timer once
	// both sides are in (or immediately when startNow is set).
	RecordJoin(ctx context.Context, id string, role Role, startNow bool, now time.Time) (Session, bool, error)

	// ClaimRecording flips an unrecorded session to processing so only one
	// joiner starts the vendor recording.
	ClaimRecording(ctx context.Context, id string, now time.Time) (bool, error)
	SetRecording(ctx context.Context, id string, recordingID string, status RecordingStatus, url string, now time.Time) error

	// AppendMessage stores m and moves a PENDING or ACCEPTED session to ACTIVE.
	AppendMessage(ctx context.Context, m Message, now time.Time) error
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	// FindOpenSupport returns a non-terminal support session between the pair.
	FindOpenSupport(ctx context.Context, userID, mentorID string) (Session, bool, error)
	// FindOpenAnonymous returns the caller's PENDING or ACCEPTED anonymous session.
	FindOpenAnonymous(ctx context.Context, userID string) (Session, bool, error)
	// ListActiveAnonymous returns the caller's non-terminal anonymous sessions, newest first.
	ListActiveAnonymous(ctx context.Context, userID string) ([]Session, error)
	// ExpirePendingAnonymous flips PENDING anonymous sessions whose acceptance
	// window closed before now to EXPIRED and returns them.
	ExpirePendingAnonymous(ctx context.Context, now time.Time) ([]Session, error)

	ListByParticipant(ctx context.Context, principalID string, role Role) ([]Session, error)
}
