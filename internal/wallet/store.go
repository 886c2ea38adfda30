package wallet

import (
	"context"
	"time"
)

// Store is the Ledger Store + Wallet Accessor contract.
//
// Debit and Credit must apply the balance change and append the Transaction
// atomically; Debit must refuse to take the balance below zero in the same
// step that checks it.
type Store interface {
	GetWallet(ctx context.Context, userID string) (Wallet, bool, error)
	EnsureWallet(ctx context.Context, userID string, now time.Time) (Wallet, error)

	// Debit fills in WalletID and ClosingBalanceMinor on tx and returns it.
	Debit(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error)
	// DebitFirst is Debit for a caller with no successful debit yet. The
	// history check and the debit are one step; ErrNotFirstDebit otherwise.
	DebitFirst(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error)
	// Credit refuses a second recharge entry for the same payment and type
	// with ErrDuplicateExternalRef.
	Credit(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error)
	// AppendFailed records an entry that did not move money.
	AppendFailed(ctx context.Context, userID string, tx Transaction) (Transaction, error)

	FindByExternalRef(ctx context.Context, userID, ref string, typ TransactionType) (Transaction, bool, error)
	CountSuccessfulDebits(ctx context.Context, userID string) (int, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
