package notify

import "time"

// Routing keys on the notifications exchange.
const (
	RoutingPayment     = "payment.notification"
	RoutingMail        = "mail.send"
	RoutingMentorAlert = "mentor.alert"
)

// Payment is emitted for every wallet movement the user should hear about.
type Payment struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"transaction_type"`
	Status        string    `json:"status"`
	AmountMinor   int64     `json:"amount_minor"`
	BalanceMinor  int64     `json:"balance_minor"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Mail asks the mail worker to deliver one message.
type Mail struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// MentorAlert is the push fallback when a mentor has no live socket.
type MentorAlert struct {
	MentorID   string         `json:"mentor_id"`
	Kind       string         `json:"kind"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Mail templates understood by the mail worker.
const (
	TemplateSessionBooked     = "session_booked"
	TemplateSlotPending       = "slot_pending"
	TemplateSlotConfirmed     = "slot_confirmed"
	TemplateChatSupportOpened = "chat_support_opened"
	TemplateSessionReminder   = "session_reminder"
	TemplatePackageCompleted  = "package_completed"
)
