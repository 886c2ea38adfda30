package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. Append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
// Callers treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.ActorID == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// LogRecharge records a gateway-verified wallet recharge, successful or not.
func (s *Service) LogRecharge(ctx context.Context, userID, transactionID string, amountMinor int64, status string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeRecharge,
		ActorID:       userID,
		SubjectID:     userID,
		TransactionID: transactionID,
		AmountMinor:   amountMinor,
		Message:       "recharge " + status,
	})
}

// LogCharge records a booking debit.
func (s *Service) LogCharge(ctx context.Context, userID, sessionRef, transactionID string, amountMinor int64) error {
	return s.Append(ctx, Event{
		Type:          EventTypeCharge,
		ActorID:       userID,
		SubjectID:     userID,
		SessionID:     sessionRef,
		TransactionID: transactionID,
		AmountMinor:   amountMinor,
		Message:       "session charged",
	})
}

// LogRefund records a compensating credit.
func (s *Service) LogRefund(ctx context.Context, userID, transactionID string, amountMinor int64, reason string) error {
	return s.Append(ctx, Event{
		Type:          EventTypeRefund,
		ActorID:       SystemActor,
		SubjectID:     userID,
		TransactionID: transactionID,
		AmountMinor:   amountMinor,
		Message:       reason,
	})
}

// LogAccountState records deactivation, reactivation and deletion marking.
func (s *Service) LogAccountState(ctx context.Context, actorID, actorKind, subjectID, message string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeAccountState,
		ActorID:   actorID,
		ActorKind: actorKind,
		SubjectID: subjectID,
		Message:   message,
	})
}
