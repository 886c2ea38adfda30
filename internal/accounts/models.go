package accounts

import "time"

type Kind string

const (
	KindUser   Kind = "user"
	KindMentor Kind = "mentor"
	KindAdmin  Kind = "admin"
)

// Account is the identity record the booking engine needs: who the principal
// is and whether they may transact. Mentor-only flags are zero for users.
type Account struct {
	ID           string `json:"id" db:"id"`
	Kind         Kind   `json:"kind" db:"kind"`
	Email        string `json:"email" db:"email"`
	Name         string `json:"name" db:"name"`
	PasswordHash string `json:"-" db:"password_hash"`

	Blocked    bool       `json:"blocked" db:"blocked"`
	Online     bool       `json:"online" db:"online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`

	// Mentor presence hints. Races on these are tolerated.
	InCall        bool `json:"in_call" db:"in_call"`
	IsUnavailable bool `json:"is_unavailable" db:"is_unavailable"`
	Verified      bool `json:"verified" db:"verified"`
	Active        bool `json:"active" db:"active"`

	Deactivation Deactivation `json:"deactivation"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type DeactivationType string

const (
	DeactivationTemporary DeactivationType = "temporary"
	DeactivationPermanent DeactivationType = "permanent"
)

type Deactivation struct {
	IsDeactivated       bool             `json:"is_deactivated" db:"is_deactivated"`
	Type                DeactivationType `json:"type,omitempty" db:"deactivation_type"`
	DeactivatedAt       *time.Time       `json:"deactivated_at,omitempty" db:"deactivated_at"`
	ReactivationDate    *time.Time       `json:"reactivation_date,omitempty" db:"reactivation_date"`
	Reason              string           `json:"reason,omitempty" db:"deactivation_reason"`
	MarkedForDeletion   bool             `json:"marked_for_deletion" db:"marked_for_deletion"`
	DeletionScheduledAt *time.Time       `json:"deletion_scheduled_at,omitempty" db:"deletion_scheduled_at"`
}

// CanTransact reports whether the account may book or be booked.
func (a Account) CanTransact() bool {
	return !a.Blocked && !a.Deactivation.IsDeactivated
}

// EligibleForMatch is the anonymous matchmaking pool filter.
func (a Account) EligibleForMatch() bool {
	return a.Kind == KindMentor &&
		a.Verified &&
		!a.Blocked &&
		a.Online &&
		!a.InCall &&
		!a.IsUnavailable &&
		a.Active
}
