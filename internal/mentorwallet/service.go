package mentorwallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("mentor wallet entry not found")
)

const (
	DescriptionSession      = "User booked a mentor session"
	DescriptionPackageFinal = "User booked final package session"
)

// Directory resolves participant names for the admin view.
type Directory interface {
	Get(ctx context.Context, id string) (accounts.Account, error)
}

type Service struct {
	repo      Repository
	directory Directory
	loc       *time.Location
	clock     func() time.Time
}

// NewService builds the feed; loc is the zone session times are shown in.
func NewService(repo Repository, directory Directory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, directory: directory, loc: loc, clock: time.Now}
}

type Credit struct {
	UserID          string
	MentorID        string
	SlotID          string
	AmountMinor     int64
	Description     string
	DurationMinutes int
	CallType        calls.Type
	BookingType     BookingType
	SessionStart    time.Time
}

// CreditSession appends the mentor's share of a paid booking.
func (s *Service) CreditSession(ctx context.Context, c Credit) (Entry, error) {
	if c.UserID == "" || c.MentorID == "" || c.AmountMinor <= 0 || !c.CallType.Valid() {
		return Entry{}, ErrInvalidArgument
	}
	if c.BookingType != BookingSlot && c.BookingType != BookingInstant {
		return Entry{}, ErrInvalidArgument
	}
	desc := c.Description
	if desc == "" {
		desc = DescriptionSession
	}
	now := s.clock().UTC()
	start := c.SessionStart
	if start.IsZero() {
		start = now
	}

	mentor, admin := Split(c.AmountMinor)
	e := Entry{
		ID:          uuid.NewString(),
		UserID:      c.UserID,
		MentorID:    c.MentorID,
		SlotID:      c.SlotID,
		AmountMinor: c.AmountMinor,
		MentorShare: mentor,
		AdminShare:  admin,
		Type:        EntryCredit,
		Status:      StatusConfirmed,
		Description: desc,
		Session: SessionDetails{
			DurationMinutes: c.DurationMinutes,
			CallType:        c.CallType,
			SessionDate:     start.UTC(),
			SessionTime:     start.In(s.loc).Format("03:04 PM"),
			BookingType:     c.BookingType,
		},
		CreatedAt: now,
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Reverse marks a credit refunded after the booking behind it was unwound.
func (s *Service) Reverse(ctx context.Context, entryID string) error {
	if entryID == "" {
		return ErrInvalidArgument
	}
	ok, err := s.repo.MarkRefunded(ctx, entryID, s.clock().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) History(ctx context.Context, mentorID string) ([]Entry, error) {
	if mentorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByMentor(ctx, mentorID)
}

func (s *Service) AdminHistory(ctx context.Context, limit int) ([]AdminEntry, error) {
	list, err := s.repo.ListAll(ctx, limit)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	out := make([]AdminEntry, 0, len(list))
	for _, e := range list {
		out = append(out, AdminEntry{
			Entry:               e,
			MentorName:          s.name(ctx, names, e.MentorID, "Unknown Mentor"),
			UserName:            s.name(ctx, names, e.UserID, "Unknown User"),
			EnhancedDescription: enhance(e),
		})
	}
	return out, nil
}

func enhance(e Entry) string {
	desc := e.Description
	if desc == "" {
		desc = "Session booking"
	}
	if e.Session.CallType == "" {
		return desc
	}
	desc += fmt.Sprintf(" - %d min %s session", e.Session.DurationMinutes, e.Session.CallType)
	if e.Session.SessionTime != "" {
		desc += " at " + e.Session.SessionTime
	}
	return desc
}

func (s *Service) name(ctx context.Context, cache map[string]string, id, fallback string) string {
	if n, ok := cache[id]; ok {
		return n
	}
	n := fallback
	if s.directory != nil && id != "" {
		a, err := s.directory.Get(ctx, id)
		switch {
		case err == nil && a.Name != "":
			n = a.Name
		case err != nil && !errors.Is(err, accounts.ErrNotFound):
			logger.From(ctx).Warn("name lookup failed", "account_id", id, "err", err)
		}
	}
	cache[id] = n
	return n
}

// Earnings aggregates confirmed credits minus debits for a mentor.
func (s *Service) Earnings(ctx context.Context, mentorID string) (Earnings, error) {
	list, err := s.History(ctx, mentorID)
	if err != nil {
		return Earnings{}, err
	}
	out := Earnings{MentorID: mentorID, Credited: decimal.Zero, Debited: decimal.Zero}
	for _, e := range list {
		if e.Status == StatusRefunded {
			out.RefundedCount++
			continue
		}
		switch e.Type {
		case EntryCredit:
			out.Credited = out.Credited.Add(e.MentorShare)
			out.PaidSessions++
		case EntryDebit, EntryRefund:
			out.Debited = out.Debited.Add(e.MentorShare)
		}
	}
	out.Balance = out.Credited.Sub(out.Debited)
	return out, nil
}
