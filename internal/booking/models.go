package booking

import (
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/rooms"
	"mentorship-platform/internal/schedule"
)

// Kind is how the caller wants the session scheduled.
type Kind string

const (
	KindInstant Kind = "instant"
	KindSlot    Kind = "slot"
)

func (k Kind) Valid() bool {
	switch k {
	case KindInstant, KindSlot:
		return true
	default:
		return false
	}
}

type Request struct {
	CallerID        string
	MentorID        string
	CallType        calls.Type
	DurationMinutes int
	Kind            Kind
	SlotID          string
	PackageID       string
}

// PaymentMethod tells the caller how the booking was paid for.
type PaymentMethod string

const (
	MethodWallet    PaymentMethod = "wallet"
	MethodPackage   PaymentMethod = "package"
	MethodFirstTime PaymentMethod = "first_time"
)

func methodFor(p pricing.Policy) PaymentMethod {
	switch p {
	case pricing.PolicyPackageFree:
		return MethodPackage
	case pricing.PolicyFirstTimeChat:
		return MethodFirstTime
	case pricing.PolicyRegular, pricing.PolicyPackageLast:
		return MethodWallet
	default:
		return MethodWallet
	}
}

type Payment struct {
	Method        PaymentMethod `json:"method"`
	AmountMinor   int64         `json:"amount_minor"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

type Result struct {
	SessionID  string              `json:"session_id,omitempty"`
	Room       *rooms.Room         `json:"room,omitempty"`
	Payment    Payment             `json:"payment"`
	SlotID     string              `json:"slot_id,omitempty"`
	SlotStatus schedule.SlotStatus `json:"slot_status,omitempty"`

	// Set when the booking used a package.
	PackageID         string `json:"package_id,omitempty"`
	RemainingSessions *int   `json:"remaining_sessions,omitempty"`
	// SupportSessionID is the chat-support conversation opened by a package's final session.
	SupportSessionID string `json:"support_session_id,omitempty"`
}

// Confirmation is the outcome of a mentor accepting a held slot.
type Confirmation struct {
	Slot      schedule.SlotRef `json:"slot"`
	SessionID string           `json:"session_id"`
	Room      rooms.Room       `json:"room"`
}
