package mentorwallet

import (
	"context"
	"time"
)

type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListByMentor(ctx context.Context, mentorID string) ([]Entry, error)
	// ListAll returns every entry, newest first. limit <= 0 means no limit.
	ListAll(ctx context.Context, limit int) ([]Entry, error)
	// MarkRefunded flips a confirmed credit to refunded.
	MarkRefunded(ctx context.Context, id string, now time.Time) (bool, error)
}
