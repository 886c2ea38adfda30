package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. A single mutex makes every balance check
// and update one atomic step, matching the conditional UPDATE in Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	wallets map[string]Wallet
	txs     []Transaction
	txIDs   map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]Wallet), txIDs: make(map[string]struct{})}
}

// Seed sets a wallet balance directly. Test helper only; it writes no Transaction.
func (m *MemoryStore) Seed(userID string, balanceMinor int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	m.wallets[userID] = Wallet{ID: uuid.NewString(), UserID: userID, BalanceMinor: balanceMinor, CreatedAt: now, UpdatedAt: now}
}

func (m *MemoryStore) GetWallet(ctx context.Context, userID string) (Wallet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	return w, ok, nil
}

func (m *MemoryStore) EnsureWallet(ctx context.Context, userID string, now time.Time) (Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[userID]; ok {
		return w, nil
	}
	w := Wallet{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	m.wallets[userID] = w
	return w, nil
}

func (m *MemoryStore) apply(userID string, delta int64, tx Transaction, firstDebit bool) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[userID]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if _, dup := m.txIDs[tx.TransactionID]; dup {
		return Transaction{}, ErrDuplicateTxID
	}
	if tx.Type.IsRecharge() {
		if _, dup := m.findRef(userID, tx.ExternalRef, tx.Type); dup {
			return Transaction{}, ErrDuplicateExternalRef
		}
	}
	if firstDebit && m.successfulDebits(userID) > 0 {
		return Transaction{}, ErrNotFirstDebit
	}
	if w.BalanceMinor+delta < 0 {
		return Transaction{}, ErrInsufficientBalance
	}
	w.BalanceMinor += delta
	w.UpdatedAt = tx.CreatedAt
	m.wallets[userID] = w

	tx.WalletID = w.ID
	tx.ClosingBalanceMinor = w.BalanceMinor
	m.txs = append(m.txs, tx)
	m.txIDs[tx.TransactionID] = struct{}{}
	return tx, nil
}

func (m *MemoryStore) Debit(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error) {
	return m.apply(userID, -amountMinor, tx, false)
}

func (m *MemoryStore) DebitFirst(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error) {
	return m.apply(userID, -amountMinor, tx, true)
}

func (m *MemoryStore) Credit(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error) {
	return m.apply(userID, amountMinor, tx, false)
}

func (m *MemoryStore) AppendFailed(ctx context.Context, userID string, tx Transaction) (Transaction, error) {
	return m.apply(userID, 0, tx, false)
}

func (m *MemoryStore) FindByExternalRef(ctx context.Context, userID, ref string, typ TransactionType) (Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.findRef(userID, ref, typ)
	return tx, ok, nil
}

func (m *MemoryStore) findRef(userID, ref string, typ TransactionType) (Transaction, bool) {
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.ExternalRef == ref && tx.Type == typ {
			return tx, true
		}
	}
	return Transaction{}, false
}

func (m *MemoryStore) CountSuccessfulDebits(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successfulDebits(userID), nil
}

func (m *MemoryStore) successfulDebits(userID string) int {
	n := 0
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.DebitMinor > 0 && tx.Status == StatusSuccess {
			n++
		}
	}
	return n
}

// ListTransactions returns newest first.
func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
