package pricing

import (
	"time"

	"mentorship-platform/internal/calls"
)

// Rate is a mentor's per-minute price for one call type. Amounts are in
// wallet minor units (1 coin = 100).
type Rate struct {
	ID       string     `json:"id" db:"id"`
	MentorID string     `json:"mentor_id" db:"mentor_id"`
	CallType calls.Type `json:"call_type" db:"call_type"`

	RatePerMinuteMinor int64 `json:"rate_per_minute_minor" db:"rate_per_minute_minor"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Policy is the closed set of ways a booking can be priced. Callers outside
// this package only ever see the resulting amount.
type Policy int

const (
	PolicyRegular Policy = iota
	PolicyPackageFree
	PolicyPackageLast
	PolicyFirstTimeChat
)

func (p Policy) String() string {
	switch p {
	case PolicyRegular:
		return "regular"
	case PolicyPackageFree:
		return "package-free"
	case PolicyPackageLast:
		return "package-last"
	case PolicyFirstTimeChat:
		return "first-time"
	default:
		return "unknown"
	}
}

// UsesRate reports whether the amount is derived from the mentor's rate card.
func (p Policy) UsesRate() bool {
	switch p {
	case PolicyRegular, PolicyPackageLast:
		return true
	case PolicyPackageFree, PolicyFirstTimeChat:
		return false
	default:
		return false
	}
}

// PackageMutation is what the booking must do to the package it draws from.
type PackageMutation int

const (
	MutationNone PackageMutation = iota
	// MutationDecrement consumes one session and leaves the package active.
	MutationDecrement
	// MutationDecrementAndExpire consumes the last session; the package expires
	// and its chat-support window opens.
	MutationDecrementAndExpire
)

// FirstChatPriceMinor is the flat price of a caller's first paid chat: one coin.
const FirstChatPriceMinor int64 = 100
