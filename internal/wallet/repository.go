package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mentorship-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore implements Store over the user_wallets and wallet_transactions tables.
//
// wallet_transactions.transaction_id is UNIQUE; collisions surface as ErrDuplicateTxID
// so the service can retry with a fresh id. A second recharge entry for one
// payment trips wallet_transactions_recharge_ref_key and surfaces as
// ErrDuplicateExternalRef.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const txColumns = `id, transaction_id, transaction_type, credit_minor, debit_minor,
closing_balance_minor, wallet_id, user_id, status, external_ref, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTx(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID,
		&t.TransactionID,
		&t.Type,
		&t.CreditMinor,
		&t.DebitMinor,
		&t.ClosingBalanceMinor,
		&t.WalletID,
		&t.UserID,
		&t.Status,
		&t.ExternalRef,
		&t.CreatedAt,
	)
	return t, err
}

func (s *PostgresStore) GetWallet(ctx context.Context, userID string) (Wallet, bool, error) {
	const q = `SELECT id, user_id, balance_minor, created_at, updated_at FROM user_wallets WHERE user_id = $1`
	var w Wallet
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&w.ID, &w.UserID, &w.BalanceMinor, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, false, nil
		}
		return Wallet{}, false, err
	}
	return w, true, nil
}

func (s *PostgresStore) EnsureWallet(ctx context.Context, userID string, now time.Time) (Wallet, error) {
	const q = `
INSERT INTO user_wallets (id, user_id, balance_minor, created_at, updated_at)
VALUES ($1, $2, 0, $3, $3)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, balance_minor, created_at, updated_at
`
	var w Wallet
	err := s.db.QueryRowContext(ctx, q, uuid.NewString(), userID, now).
		Scan(&w.ID, &w.UserID, &w.BalanceMinor, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// applyDelta changes the balance with a single conditional UPDATE so the check
// and the write cannot interleave with another request on the same wallet.
func applyDelta(ctx context.Context, tx *sql.Tx, userID string, delta int64, now time.Time) (string, int64, error) {
	const q = `
UPDATE user_wallets
SET balance_minor = balance_minor + $2, updated_at = $3
WHERE user_id = $1 AND balance_minor + $2 >= 0
RETURNING id, balance_minor
`
	var walletID string
	var bal int64
	err := tx.QueryRowContext(ctx, q, userID, delta, now).Scan(&walletID, &bal)
	if err == nil {
		return walletID, bal, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", 0, err
	}
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM user_wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return "", 0, err
	}
	if !exists {
		return "", 0, ErrNotFound
	}
	return "", 0, ErrInsufficientBalance
}

func insertTx(ctx context.Context, tx *sql.Tx, t Transaction) error {
	const q = `
INSERT INTO wallet_transactions (` + txColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := tx.ExecContext(ctx, q,
		t.ID,
		t.TransactionID,
		t.Type,
		t.CreditMinor,
		t.DebitMinor,
		t.ClosingBalanceMinor,
		t.WalletID,
		t.UserID,
		t.Status,
		t.ExternalRef,
		t.CreatedAt,
	)
	if name, ok := utils.ViolatedConstraint(err); ok {
		if name == rechargeRefKey {
			return ErrDuplicateExternalRef
		}
		return ErrDuplicateTxID
	}
	return err
}

const rechargeRefKey = "wallet_transactions_recharge_ref_key"

// txGuard runs inside the posting transaction before the balance moves.
type txGuard func(ctx context.Context, tx *sql.Tx) error

func (s *PostgresStore) post(ctx context.Context, userID string, delta int64, t Transaction, guard txGuard) (Transaction, error) {
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if guard != nil {
			if err := guard(ctx, tx); err != nil {
				return err
			}
		}
		walletID, bal, err := applyDelta(ctx, tx, userID, delta, t.CreatedAt)
		if err != nil {
			return err
		}
		t.WalletID = walletID
		t.ClosingBalanceMinor = bal
		return insertTx(ctx, tx, t)
	})
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (s *PostgresStore) Debit(ctx context.Context, userID string, amountMinor int64, t Transaction) (Transaction, error) {
	return s.post(ctx, userID, -amountMinor, t, nil)
}

// DebitFirst locks the wallet row before reading the debit history. Every
// debit updates that row, so no other debit can commit between the check and
// this one.
func (s *PostgresStore) DebitFirst(ctx context.Context, userID string, amountMinor int64, t Transaction) (Transaction, error) {
	return s.post(ctx, userID, -amountMinor, t, func(ctx context.Context, tx *sql.Tx) error {
		var walletID string
		if err := tx.QueryRowContext(ctx, `SELECT id FROM user_wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&walletID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		const q = `SELECT EXISTS (
  SELECT 1 FROM wallet_transactions WHERE user_id = $1 AND debit_minor > 0 AND status = 'success'
)`
		var debited bool
		if err := tx.QueryRowContext(ctx, q, userID).Scan(&debited); err != nil {
			return err
		}
		if debited {
			return ErrNotFirstDebit
		}
		return nil
	})
}

func (s *PostgresStore) Credit(ctx context.Context, userID string, amountMinor int64, t Transaction) (Transaction, error) {
	return s.post(ctx, userID, amountMinor, t, nil)
}

func (s *PostgresStore) AppendFailed(ctx context.Context, userID string, t Transaction) (Transaction, error) {
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row so the closing balance reflects the state at append time.
		const q = `SELECT id, balance_minor FROM user_wallets WHERE user_id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, q, userID).Scan(&t.WalletID, &t.ClosingBalanceMinor); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return insertTx(ctx, tx, t)
	})
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (s *PostgresStore) FindByExternalRef(ctx context.Context, userID, ref string, typ TransactionType) (Transaction, bool, error) {
	q := `SELECT ` + txColumns + ` FROM wallet_transactions
WHERE user_id = $1 AND external_ref = $2 AND transaction_type = $3 LIMIT 1`
	t, err := scanTx(s.db.QueryRowContext(ctx, q, userID, ref, typ))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return t, true, nil
}

func (s *PostgresStore) CountSuccessfulDebits(ctx context.Context, userID string) (int, error) {
	const q = `SELECT count(*) FROM wallet_transactions WHERE user_id = $1 AND debit_minor > 0 AND status = 'success'`
	var n int
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&n)
	return n, err
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	q := `SELECT ` + txColumns + ` FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
