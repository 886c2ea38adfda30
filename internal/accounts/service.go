package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"mentorship-platform/internal/audit"
	"mentorship-platform/internal/auth"
	"mentorship-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrBlocked         = errors.New("account is blocked")
	ErrDeactivated     = errors.New("account is deactivated")
	ErrNotDeactivated  = errors.New("account is not deactivated")
	ErrEmailTaken      = errors.New("email already registered")
)

// DeletionGrace is how long a permanent deactivation waits before the account
// is marked for deletion.
const DeletionGrace = 90 * 24 * time.Hour

type Service struct {
	repo  Repository
	audit *audit.Service
	clock func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, audit: auditSvc, clock: time.Now}
}

type NewAccount struct {
	Kind     Kind
	Email    string
	Name     string
	Password string
	Verified bool
}

// Create provisions an account with a bcrypt credential hash.
func (s *Service) Create(ctx context.Context, in NewAccount) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return Account{}, ErrInvalidArgument
	}
	switch in.Kind {
	case KindUser, KindMentor, KindAdmin:
	default:
		return Account{}, ErrInvalidArgument
	}
	if _, ok, err := s.repo.GetByEmail(ctx, email); err != nil {
		return Account{}, err
	} else if ok {
		return Account{}, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}
	now := s.clock().UTC()
	a := Account{
		ID:           uuid.NewString(),
		Kind:         in.Kind,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Verified:     in.Verified,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Authenticate verifies a credential and returns the principal.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	a, ok, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(a.PasswordHash, password); err != nil {
		return Account{}, err
	}
	if a.Blocked {
		return Account{}, ErrBlocked
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	if id == "" {
		return Account{}, ErrInvalidArgument
	}
	a, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

// Require loads an account of the given kind that is allowed to transact.
func (s *Service) Require(ctx context.Context, id string, kind Kind) (Account, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if a.Kind != kind {
		return Account{}, ErrNotFound
	}
	if a.Blocked {
		return Account{}, ErrBlocked
	}
	if a.Deactivation.IsDeactivated {
		return Account{}, ErrDeactivated
	}
	return a, nil
}

func (s *Service) SetBlocked(ctx context.Context, actorID, id string, blocked bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetBlocked(ctx, id, blocked, s.clock().UTC()); err != nil {
		return err
	}
	msg := "unblocked"
	if blocked {
		msg = "blocked"
	}
	s.logState(ctx, actorID, id, msg)
	return nil
}

// DeactivateTemporarily hides the account until reactivateAt (or until manual
// reactivation when nil) and takes it offline.
func (s *Service) DeactivateTemporarily(ctx context.Context, actorID, id, reason string, reactivateAt *time.Time) error {
	now := s.clock().UTC()
	if reactivateAt != nil && !reactivateAt.After(now) {
		return ErrInvalidArgument
	}
	return s.deactivate(ctx, actorID, id, Deactivation{
		IsDeactivated:    true,
		Type:             DeactivationTemporary,
		DeactivatedAt:    &now,
		ReactivationDate: reactivateAt,
		Reason:           reason,
	})
}

// DeactivatePermanently starts the deletion grace period.
func (s *Service) DeactivatePermanently(ctx context.Context, actorID, id, reason string) error {
	now := s.clock().UTC()
	return s.deactivate(ctx, actorID, id, Deactivation{
		IsDeactivated: true,
		Type:          DeactivationPermanent,
		DeactivatedAt: &now,
		Reason:        reason,
	})
}

func (s *Service) deactivate(ctx context.Context, actorID, id string, d Deactivation) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetDeactivation(ctx, id, d, s.clock().UTC()); err != nil {
		return err
	}
	s.logState(ctx, actorID, id, "deactivated "+string(d.Type))
	return nil
}

func (s *Service) Reactivate(ctx context.Context, actorID, id string) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !a.Deactivation.IsDeactivated {
		return ErrNotDeactivated
	}
	if err := s.repo.SetDeactivation(ctx, id, Deactivation{}, s.clock().UTC()); err != nil {
		return err
	}
	s.logState(ctx, actorID, id, "reactivated")
	return nil
}

func (s *Service) IsDeactivated(ctx context.Context, id string) (bool, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return a.Deactivation.IsDeactivated, nil
}

// ProcessAutoReactivations reactivates temporary deactivations whose date has passed.
func (s *Service) ProcessAutoReactivations(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	due, err := s.repo.ListDueReactivations(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range due {
		if err := s.repo.SetDeactivation(ctx, a.ID, Deactivation{}, now); err != nil {
			logger.From(ctx).Error("auto reactivation failed", "account_id", a.ID, "err", err)
			continue
		}
		s.logState(ctx, audit.SystemActor, a.ID, "auto reactivated")
		n++
	}
	return n, nil
}

// ProcessAutoDeletions marks permanent deactivations older than DeletionGrace.
// Rows are never hard-deleted here.
func (s *Service) ProcessAutoDeletions(ctx context.Context) (int, error) {
	now := s.clock().UTC()
	due, err := s.repo.ListDueDeletions(ctx, now.Add(-DeletionGrace))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range due {
		d := a.Deactivation
		d.MarkedForDeletion = true
		d.DeletionScheduledAt = &now
		if err := s.repo.SetDeactivation(ctx, a.ID, d, now); err != nil {
			logger.From(ctx).Error("deletion marking failed", "account_id", a.ID, "err", err)
			continue
		}
		s.logState(ctx, audit.SystemActor, a.ID, "marked for deletion")
		n++
	}
	return n, nil
}

func (s *Service) SetOnline(ctx context.Context, id string, online bool) error {
	return s.repo.SetOnline(ctx, id, online, s.clock().UTC())
}

func (s *Service) SetInCall(ctx context.Context, id string, inCall bool) error {
	return s.repo.SetInCall(ctx, id, inCall, s.clock().UTC())
}

func (s *Service) SetUnavailable(ctx context.Context, id string, unavailable bool) error {
	return s.repo.SetUnavailable(ctx, id, unavailable, s.clock().UTC())
}

func (s *Service) MatchableMentors(ctx context.Context) ([]Account, error) {
	return s.repo.ListMatchableMentors(ctx)
}

func (s *Service) OnlineMentorCount(ctx context.Context) (int, error) {
	return s.repo.CountOnlineMentors(ctx)
}

func (s *Service) logState(ctx context.Context, actorID, subjectID, msg string) {
	if s.audit == nil {
		return
	}
	if actorID == "" {
		actorID = audit.SystemActor
	}
	if err := s.audit.LogAccountState(ctx, actorID, "", subjectID, msg); err != nil {
		logger.From(ctx).Warn("audit append failed", "account_id", subjectID, "err", err)
	}
}
