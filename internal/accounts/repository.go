package accounts

import (
	"context"
	"time"
)

// Repository is the persistence contract for accounts.
type Repository interface {
	Create(ctx context.Context, a Account) error
	Get(ctx context.Context, id string) (Account, bool, error)
	GetByEmail(ctx context.Context, email string) (Account, bool, error)

	SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error
	// SetDeactivation replaces the deactivation sub-record. Deactivating also clears Online.
	SetDeactivation(ctx context.Context, id string, d Deactivation, at time.Time) error
	SetOnline(ctx context.Context, id string, online bool, at time.Time) error
	SetInCall(ctx context.Context, id string, inCall bool, at time.Time) error
	SetUnavailable(ctx context.Context, id string, unavailable bool, at time.Time) error

	ListMatchableMentors(ctx context.Context) ([]Account, error)
	CountOnlineMentors(ctx context.Context) (int, error)
	ListDueReactivations(ctx context.Context, now time.Time) ([]Account, error)
	ListDueDeletions(ctx context.Context, cutoff time.Time) ([]Account, error)
}
