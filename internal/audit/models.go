package audit

import "time"

// Event is an immutable, append-only audit record for money movement and
// account-state changes. Events are never updated or deleted.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorID is the authenticated principal causing the event, or "system" for sweeps.
	ActorID   string `json:"actor_id" db:"actor_id"`
	ActorKind string `json:"actor_kind,omitempty" db:"actor_kind"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// SubjectID is the account whose money or state changed.
	SubjectID     string `json:"subject_id,omitempty" db:"subject_id"`
	SessionID     string `json:"session_id,omitempty" db:"session_id"`
	TransactionID string `json:"transaction_id,omitempty" db:"transaction_id"`
	AmountMinor   int64  `json:"amount_minor,omitempty" db:"amount_minor"`

	Message  string `json:"message,omitempty" db:"message"`
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeRecharge     EventType = "wallet_recharge"
	EventTypeCharge       EventType = "session_charge"
	EventTypeRefund       EventType = "session_refund"
	EventTypeAccountState EventType = "account_state"
)

// SystemActor marks events emitted by background sweeps.
const SystemActor = "system"
