package pricing

import (
	"context"
	"time"

	"mentorship-platform/internal/calls"

	"github.com/google/uuid"
)

// RateRepository abstracts rate card persistence.
type RateRepository interface {
	FindRate(ctx context.Context, mentorID string, callType calls.Type) (Rate, bool, error)
	UpsertRate(ctx context.Context, r Rate) (Rate, error)
	ListRates(ctx context.Context, mentorID string) ([]Rate, error)
}

// DebitCounter reports how many successful debits a caller already has.
type DebitCounter interface {
	CountSuccessfulDebits(ctx context.Context, userID string) (int, error)
}

// Service gathers the selector's inputs from storage.
// It performs lookups only; it never moves money.
type Service struct {
	rates  RateRepository
	debits DebitCounter
	clock  func() time.Time
}

func NewService(rates RateRepository, debits DebitCounter) *Service {
	return &Service{rates: rates, debits: debits, clock: time.Now}
}

type QuoteRequest struct {
	UserID          string
	MentorID        string
	CallType        calls.Type
	DurationMinutes int
	Package         *PackageState
}

// Quote resolves the amount due for a booking.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if req.UserID == "" || req.MentorID == "" || !req.CallType.OneToOne() {
		return Quote{}, ErrInvalidQuoteReq
	}

	in := Input{
		CallType:        req.CallType,
		DurationMinutes: req.DurationMinutes,
		Package:         req.Package,
	}

	// The debit history only matters for a chat booked outside a package.
	if req.Package == nil && req.CallType == calls.TypeChat {
		n, err := s.debits.CountSuccessfulDebits(ctx, req.UserID)
		if err != nil {
			return Quote{}, err
		}
		in.PriorDebits = n
	}

	policy, err := Classify(in.CallType, in.Package, in.PriorDebits)
	if err != nil {
		return Quote{}, err
	}
	if policy.UsesRate() {
		r, ok, err := s.rates.FindRate(ctx, req.MentorID, req.CallType)
		if err != nil {
			return Quote{}, err
		}
		if ok {
			in.HasRate = true
			in.RatePerMinuteMinor = r.RatePerMinuteMinor
		}
	}
	return Select(in)
}

// SetRate creates or replaces a mentor's price for one call type.
func (s *Service) SetRate(ctx context.Context, mentorID string, callType calls.Type, perMinuteMinor int64) (Rate, error) {
	if mentorID == "" || !callType.Valid() || perMinuteMinor <= 0 {
		return Rate{}, ErrInvalidQuoteReq
	}
	now := s.clock().UTC()
	return s.rates.UpsertRate(ctx, Rate{
		ID:                 uuid.NewString(),
		MentorID:           mentorID,
		CallType:           callType,
		RatePerMinuteMinor: perMinuteMinor,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

func (s *Service) Rates(ctx context.Context, mentorID string) ([]Rate, error) {
	if mentorID == "" {
		return nil, ErrInvalidQuoteReq
	}
	return s.rates.ListRates(ctx, mentorID)
}
