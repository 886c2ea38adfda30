package mentorwallet

import (
	"time"

	"mentorship-platform/internal/calls"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
	EntryRefund EntryType = "refund"
)

type EntryStatus string

const (
	StatusConfirmed EntryStatus = "confirmed"
	StatusRefunded  EntryStatus = "refunded"
)

type BookingType string

const (
	BookingSlot    BookingType = "slot"
	BookingInstant BookingType = "instant"
)

// Entry is one line of a mentor's revenue feed. Amounts are in minor units;
// the shares are decimals because a 70/30 split of an odd amount is fractional.
type Entry struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	MentorID    string          `json:"mentor_id"`
	SlotID      string          `json:"slot_id,omitempty"`
	AmountMinor int64           `json:"amount_minor"`
	MentorShare decimal.Decimal `json:"mentor_share"`
	AdminShare  decimal.Decimal `json:"admin_share"`
	Type        EntryType       `json:"type"`
	Status      EntryStatus     `json:"status"`
	Description string          `json:"description"`

	Session SessionDetails `json:"session_details"`

	CreatedAt time.Time `json:"created_at"`
}

type SessionDetails struct {
	DurationMinutes int         `json:"duration"`
	CallType        calls.Type  `json:"call_type"`
	SessionDate     time.Time   `json:"session_date"`
	SessionTime     string      `json:"session_time"`
	BookingType     BookingType `json:"booking_type"`
}

// AdminEntry is an Entry decorated for the admin revenue view.
type AdminEntry struct {
	Entry
	MentorName          string `json:"mentor_name"`
	UserName            string `json:"user_name"`
	EnhancedDescription string `json:"enhanced_description"`
}

type Earnings struct {
	MentorID      string          `json:"mentor_id"`
	Credited      decimal.Decimal `json:"credited"`
	Debited       decimal.Decimal `json:"debited"`
	Balance       decimal.Decimal `json:"balance"`
	PaidSessions  int             `json:"paid_sessions"`
	RefundedCount int             `json:"refunded_count"`
}

var (
	mentorRate = decimal.NewFromFloat(0.7)
)

// Split divides amountMinor 70/30. The admin share is the remainder so the
// two always sum to the amount exactly.
func Split(amountMinor int64) (mentor, admin decimal.Decimal) {
	total := decimal.NewFromInt(amountMinor)
	mentor = total.Mul(mentorRate)
	admin = total.Sub(mentor)
	return mentor, admin
}
