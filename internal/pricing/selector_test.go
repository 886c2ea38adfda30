package pricing

import (
	"context"
	"errors"
	"testing"

	"mentorship-platform/internal/calls"
)

func TestSelect_DecisionOrder(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		policy   Policy
		amount   int64
		mutation PackageMutation
	}{
		{
			name:     "package with sessions left is free",
			in:       Input{CallType: calls.TypeVideo, DurationMinutes: 30, Package: &PackageState{ID: "p", RemainingSessions: 3}},
			policy:   PolicyPackageFree,
			mutation: MutationDecrement,
		},
		{
			name:     "last package session charges the rate",
			in:       Input{CallType: calls.TypeVideo, DurationMinutes: 20, Package: &PackageState{ID: "p", RemainingSessions: 1}, HasRate: true, RatePerMinuteMinor: 5000},
			policy:   PolicyPackageLast,
			amount:   100000,
			mutation: MutationDecrementAndExpire,
		},
		{
			name:   "package wins over first-time chat",
			in:     Input{CallType: calls.TypeChat, DurationMinutes: 10, Package: &PackageState{ID: "p", RemainingSessions: 2}},
			policy: PolicyPackageFree,
			mutation: MutationDecrement,
		},
		{
			name:   "first chat is flat",
			in:     Input{CallType: calls.TypeChat, DurationMinutes: 45, HasRate: true, RatePerMinuteMinor: 1000},
			policy: PolicyFirstTimeChat,
			amount: FirstChatPriceMinor,
		},
		{
			name:   "second chat pays the rate",
			in:     Input{CallType: calls.TypeChat, DurationMinutes: 10, PriorDebits: 1, HasRate: true, RatePerMinuteMinor: 1000},
			policy: PolicyRegular,
			amount: 10000,
		},
		{
			name:   "first audio is not discounted",
			in:     Input{CallType: calls.TypeAudio, DurationMinutes: 10, HasRate: true, RatePerMinuteMinor: 1000},
			policy: PolicyRegular,
			amount: 10000,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Select(tc.in)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if q.Policy != tc.policy || q.AmountMinor != tc.amount || q.Mutation != tc.mutation {
				t.Fatalf("got %s/%d/%d, want %s/%d/%d", q.Policy, q.AmountMinor, q.Mutation, tc.policy, tc.amount, tc.mutation)
			}
		})
	}
}

func TestSelect_MissingRateIsHardFailure(t *testing.T) {
	if _, err := Select(Input{CallType: calls.TypeAudio, DurationMinutes: 10}); !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
	_, err := Select(Input{CallType: calls.TypeVideo, DurationMinutes: 10, Package: &PackageState{RemainingSessions: 1}})
	if !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound for last package session, got %v", err)
	}
}

func TestSelect_RejectsBadInput(t *testing.T) {
	bad := []Input{
		{CallType: calls.TypeChat, DurationMinutes: 0},
		{CallType: calls.TypeGroup, DurationMinutes: 10},
		{CallType: calls.TypeChat, DurationMinutes: 10, Package: &PackageState{RemainingSessions: 0}},
	}
	for i, in := range bad {
		if _, err := Select(in); !errors.Is(err, ErrInvalidQuoteReq) {
			t.Fatalf("case %d: expected ErrInvalidQuoteReq, got %v", i, err)
		}
	}
}

type stubDebits struct {
	n     int
	calls int
}

func (s *stubDebits) CountSuccessfulDebits(ctx context.Context, userID string) (int, error) {
	s.calls++
	return s.n, nil
}

func TestService_QuoteLoadsOnlyWhatItNeeds(t *testing.T) {
	rates := NewMemoryRepo(Rate{MentorID: "m1", CallType: calls.TypeChat, RatePerMinuteMinor: 1000})
	debits := &stubDebits{}
	svc := NewService(rates, debits)
	ctx := context.Background()

	q, err := svc.Quote(ctx, QuoteRequest{UserID: "u1", MentorID: "m1", CallType: calls.TypeChat, DurationMinutes: 10})
	if err != nil || q.AmountMinor != FirstChatPriceMinor {
		t.Fatalf("expected first-time price, got %+v %v", q, err)
	}

	debits.n = 1
	q, err = svc.Quote(ctx, QuoteRequest{UserID: "u1", MentorID: "m1", CallType: calls.TypeChat, DurationMinutes: 10})
	if err != nil || q.AmountMinor != 10000 {
		t.Fatalf("expected regular price, got %+v %v", q, err)
	}

	before := debits.calls
	if _, err := svc.Quote(ctx, QuoteRequest{UserID: "u1", MentorID: "m1", CallType: calls.TypeChat, DurationMinutes: 10, Package: &PackageState{RemainingSessions: 4}}); err != nil {
		t.Fatalf("package quote: %v", err)
	}
	if debits.calls != before {
		t.Fatalf("package quote should not consult debit history")
	}

	if _, err := svc.Quote(ctx, QuoteRequest{UserID: "u1", MentorID: "m1", CallType: calls.TypeAudio, DurationMinutes: 10}); !errors.Is(err, ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound for unpriced call type, got %v", err)
	}
}

func TestService_SetRateReplacesExisting(t *testing.T) {
	rates := NewMemoryRepo()
	svc := NewService(rates, &stubDebits{})
	ctx := context.Background()

	first, err := svc.SetRate(ctx, "m1", calls.TypeVideo, 5000)
	if err != nil {
		t.Fatalf("set rate: %v", err)
	}
	second, err := svc.SetRate(ctx, "m1", calls.TypeVideo, 6000)
	if err != nil {
		t.Fatalf("update rate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected upsert to keep id")
	}
	list, _ := svc.Rates(ctx, "m1")
	if len(list) != 1 || list[0].RatePerMinuteMinor != 6000 {
		t.Fatalf("unexpected rates %+v", list)
	}
}
