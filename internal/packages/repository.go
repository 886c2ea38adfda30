package packages

import (
	"context"
	"time"

	"mentorship-platform/internal/calls"
)

// Repository persists packages. Methods that change state are conditional and
// report false when the package was not in a state that allows the change.
type Repository interface {
	Create(ctx context.Context, p Package) error
	Get(ctx context.Context, id string) (Package, bool, error)

	// Consume decrements RemainingSessions when the package is active with
	// sessions left, expiring it when the result is zero.
	Consume(ctx context.Context, id string, now time.Time) (Package, bool, error)
	// Restore gives back one consumed session and reactivates the package.
	Restore(ctx context.Context, id string, now time.Time) (bool, error)

	// OpenChatSupport requires zero remaining sessions and an active or expired package.
	OpenChatSupport(ctx context.Context, id string, expiresAt, now time.Time) (Package, bool, error)
	ExtendChatSupport(ctx context.Context, id string, expiresAt, now time.Time) (Package, bool, error)
	ExpireChatSupport(ctx context.Context, now time.Time) (int, error)

	UpdateTemplate(ctx context.Context, p Package) (bool, error)
	DeleteTemplate(ctx context.Context, id string) (bool, error)

	// ListByUser returns packages newest first; an empty callType matches all types.
	ListByUser(ctx context.Context, userID string, status Status, callType calls.Type) ([]Package, error)
	ListTemplates(ctx context.Context, mentorID string) ([]Package, error)
	// ListChatSupport matches on userID, mentorID or both when non-empty,
	// soonest expiry first.
	ListChatSupport(ctx context.Context, userID, mentorID string, now time.Time) ([]Package, error)
	// ListCompletedWithoutSupport finds owned packages that ran out of
	// sessions and never had a chat-support window.
	ListCompletedWithoutSupport(ctx context.Context) ([]Package, error)
}
