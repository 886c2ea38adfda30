package wallet

import (
	"context"
	"errors"
	"time"

	"mentorship-platform/internal/audit"
	"mentorship-platform/internal/notify"
	"mentorship-platform/pkg/logger"
	"mentorship-platform/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrDuplicateTxID       = errors.New("duplicate transaction id")
	// ErrDuplicateExternalRef means the payment already has a recharge entry.
	ErrDuplicateExternalRef = errors.New("payment already recorded")
	// ErrNotFirstDebit means the caller already has a successful debit.
	ErrNotFirstDebit = errors.New("caller already has a successful debit")
)

// Notifier receives payment notifications. Delivery is best-effort.
type Notifier interface {
	PaymentNotification(ctx context.Context, p notify.Payment)
}

// Service provides wallet operations.
//
// Money invariants:
//   - No balance change without an appended Transaction.
//   - Debits never take the balance below zero.
//   - Transactions are never mutated after creation.
type Service struct {
	store    Store
	notifier Notifier
	audit    *audit.Service

	clock func() time.Time
	newID func(prefix string) (string, error)
}

func NewService(store Store, notifier Notifier, auditSvc *audit.Service) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		audit:    auditSvc,
		clock:    time.Now,
		newID: func(prefix string) (string, error) {
			return utils.PrefixedID(prefix, TransactionIDLength)
		},
	}
}

// idAttempts bounds retries on transaction id collisions.
const idAttempts = 3

func (s *Service) Balance(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrInvalidArgument
	}
	w, ok, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return Wallet{}, err
	}
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

// Open creates the user's wallet if it does not exist yet.
func (s *Service) Open(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrInvalidArgument
	}
	return s.store.EnsureWallet(ctx, userID, s.clock().UTC())
}

func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListTransactions(ctx, userID, limit)
}

// CountSuccessfulDebits counts prior successful debits of any call type.
func (s *Service) CountSuccessfulDebits(ctx context.Context, userID string) (int, error) {
	return s.store.CountSuccessfulDebits(ctx, userID)
}

// Charge debits a booking amount atomically and appends a session_booking entry.
func (s *Service) Charge(ctx context.Context, userID string, amountMinor int64, reference string) (Transaction, error) {
	return s.charge(ctx, userID, amountMinor, reference, s.store.Debit)
}

// ChargeFirst is Charge for a price that only applies to a caller's first
// debit. It fails with ErrNotFirstDebit, moving nothing, when another debit
// already succeeded.
func (s *Service) ChargeFirst(ctx context.Context, userID string, amountMinor int64, reference string) (Transaction, error) {
	return s.charge(ctx, userID, amountMinor, reference, s.store.DebitFirst)
}

type debitFunc func(ctx context.Context, userID string, amountMinor int64, tx Transaction) (Transaction, error)

func (s *Service) charge(ctx context.Context, userID string, amountMinor int64, reference string, debit debitFunc) (Transaction, error) {
	if userID == "" || amountMinor <= 0 {
		return Transaction{}, ErrInvalidArgument
	}
	tx, err := s.withFreshID(PrefixDebit, func(id string) (Transaction, error) {
		return debit(ctx, userID, amountMinor, Transaction{
			ID:            uuid.NewString(),
			TransactionID: id,
			Type:          TypeSessionBooking,
			DebitMinor:    amountMinor,
			UserID:        userID,
			Status:        StatusSuccess,
			ExternalRef:   reference,
			CreatedAt:     s.clock().UTC(),
		})
	})
	if err != nil {
		return Transaction{}, err
	}

	s.notify(ctx, tx, amountMinor)
	if s.audit != nil {
		if err := s.audit.LogCharge(ctx, userID, reference, tx.TransactionID, amountMinor); err != nil {
			logger.From(ctx).Warn("audit append failed", "transaction_id", tx.TransactionID, "err", err)
		}
	}
	return tx, nil
}

// Refund credits back a charge whose booking could not be completed.
func (s *Service) Refund(ctx context.Context, userID string, amountMinor int64, reference, reason string) (Transaction, error) {
	if userID == "" || amountMinor <= 0 {
		return Transaction{}, ErrInvalidArgument
	}
	tx, err := s.withFreshID(PrefixRefund, func(id string) (Transaction, error) {
		return s.store.Credit(ctx, userID, amountMinor, Transaction{
			ID:            uuid.NewString(),
			TransactionID: id,
			Type:          TypeRefund,
			CreditMinor:   amountMinor,
			UserID:        userID,
			Status:        StatusSuccess,
			ExternalRef:   reference,
			CreatedAt:     s.clock().UTC(),
		})
	})
	if err != nil {
		return Transaction{}, err
	}
	s.notify(ctx, tx, amountMinor)
	if s.audit != nil {
		if err := s.audit.LogRefund(ctx, userID, tx.TransactionID, amountMinor, reason); err != nil {
			logger.From(ctx).Warn("audit append failed", "transaction_id", tx.TransactionID, "err", err)
		}
	}
	return tx, nil
}

// VerifiedPayment is a gateway result the wallet trusts as-is.
// AmountMinor is in paise, which map 1:1 onto wallet minor units.
type VerifiedPayment struct {
	PaymentID   string
	AmountMinor int64
	Success     bool
}

// Recharge applies a verified gateway payment. A replayed PaymentID returns
// the original entry without moving money again, including when the webhook
// and the redirect deliver the same payment at once.
func (s *Service) Recharge(ctx context.Context, userID string, p VerifiedPayment) (Transaction, error) {
	if userID == "" || p.PaymentID == "" || p.AmountMinor <= 0 {
		return Transaction{}, ErrInvalidArgument
	}
	typ := TypeRechargeFailed
	if p.Success {
		typ = TypeRechargeSuccess
	}
	if existing, ok, err := s.store.FindByExternalRef(ctx, userID, p.PaymentID, typ); err != nil {
		return Transaction{}, err
	} else if ok {
		return existing, nil
	}
	if _, err := s.store.EnsureWallet(ctx, userID, s.clock().UTC()); err != nil {
		return Transaction{}, err
	}

	tx, err := s.withFreshID(PrefixRecharge, func(id string) (Transaction, error) {
		entry := Transaction{
			ID:            uuid.NewString(),
			TransactionID: id,
			Type:          typ,
			UserID:        userID,
			ExternalRef:   p.PaymentID,
			CreatedAt:     s.clock().UTC(),
		}
		if !p.Success {
			entry.Status = StatusFailed
			entry.CreditMinor = p.AmountMinor
			return s.store.AppendFailed(ctx, userID, entry)
		}
		entry.Status = StatusSuccess
		entry.CreditMinor = p.AmountMinor
		return s.store.Credit(ctx, userID, p.AmountMinor, entry)
	})
	if errors.Is(err, ErrDuplicateExternalRef) {
		existing, ok, ferr := s.store.FindByExternalRef(ctx, userID, p.PaymentID, typ)
		if ferr != nil {
			return Transaction{}, ferr
		}
		if ok {
			return existing, nil
		}
	}
	if err != nil {
		return Transaction{}, err
	}

	s.notify(ctx, tx, p.AmountMinor)
	if s.audit != nil {
		if err := s.audit.LogRecharge(ctx, userID, tx.TransactionID, p.AmountMinor, string(tx.Status)); err != nil {
			logger.From(ctx).Warn("audit append failed", "transaction_id", tx.TransactionID, "err", err)
		}
	}
	return tx, nil
}

func (s *Service) withFreshID(prefix string, fn func(id string) (Transaction, error)) (Transaction, error) {
	var lastErr error
	for i := 0; i < idAttempts; i++ {
		id, err := s.newID(prefix)
		if err != nil {
			return Transaction{}, err
		}
		tx, err := fn(id)
		if errors.Is(err, ErrDuplicateTxID) {
			lastErr = err
			continue
		}
		return tx, err
	}
	return Transaction{}, lastErr
}

func (s *Service) notify(ctx context.Context, tx Transaction, amountMinor int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.PaymentNotification(ctx, notify.Payment{
		UserID:        tx.UserID,
		TransactionID: tx.TransactionID,
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		AmountMinor:   amountMinor,
		BalanceMinor:  tx.ClosingBalanceMinor,
		OccurredAt:    tx.CreatedAt,
	})
}
