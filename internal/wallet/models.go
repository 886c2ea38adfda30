package wallet

import "time"

// Wallet is the per-user BuddyCoin balance. BalanceMinor is a materialized
// running total; it only changes together with an appended Transaction.
type Wallet struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	BalanceMinor int64     `json:"balance_minor" db:"balance_minor"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is an immutable ledger entry.
//
// Invariant: ClosingBalanceMinor equals the wallet balance right after this
// entry was applied. Exactly one of CreditMinor/DebitMinor is non-zero for
// successful entries; failed entries carry the attempted amount and leave the
// balance untouched.
type Transaction struct {
	ID            string          `json:"id" db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	Type          TransactionType `json:"transaction_type" db:"transaction_type"`

	CreditMinor         int64 `json:"credit_minor" db:"credit_minor"`
	DebitMinor          int64 `json:"debit_minor" db:"debit_minor"`
	ClosingBalanceMinor int64 `json:"closing_balance_minor" db:"closing_balance_minor"`

	WalletID string   `json:"wallet_id" db:"wallet_id"`
	UserID   string   `json:"user_id" db:"user_id"`
	Status   TxStatus `json:"status" db:"status"`

	// ExternalRef is the gateway payment id for recharges, or the booking reference for charges.
	ExternalRef string `json:"external_ref,omitempty" db:"external_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionType string

const (
	TypeRechargeSuccess TransactionType = "recharge successful"
	TypeRechargeFailed  TransactionType = "recharge failed"
	TypeSessionBooking  TransactionType = "session_booking"
	TypeRefund          TransactionType = "refund"
)

// IsRecharge reports whether entries of this type record a gateway payment.
// At most one such entry exists per user, payment and type.
func (t TransactionType) IsRecharge() bool {
	return t == TypeRechargeSuccess || t == TypeRechargeFailed
}

type TxStatus string

const (
	StatusSuccess TxStatus = "success"
	StatusFailed  TxStatus = "failed"
)

// Transaction id prefixes. Ids are PrefixX + "-" + random, TransactionIDLength chars total.
const (
	PrefixRecharge      = "BDDY"
	PrefixDebit         = "BUDDY"
	PrefixRefund        = "RFND"
	TransactionIDLength = 10
)
