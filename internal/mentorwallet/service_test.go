package mentorwallet

import (
	"context"
	"strings"
	"testing"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	dir := accounts.NewService(accounts.NewMemoryRepo(
		accounts.Account{ID: "u1", Kind: accounts.KindUser, Name: "Asha"},
		accounts.Account{ID: "m1", Kind: accounts.KindMentor, Name: "Ravi"},
	), nil)
	repo := NewMemoryRepo()
	svc := NewService(repo, dir, ist)
	svc.clock = func() time.Time { return testNow }
	return svc, repo
}

func TestSplit_SumsExactly(t *testing.T) {
	for _, amount := range []int64{1, 3, 100, 999, 45000, 123457} {
		m, a := Split(amount)
		if !m.Add(a).Equal(decimal.NewFromInt(amount)) {
			t.Fatalf("split of %d does not sum: %s + %s", amount, m, a)
		}
	}
	m, a := Split(1000)
	if !m.Equal(decimal.NewFromInt(700)) || !a.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected 700/300, got %s/%s", m, a)
	}
}

func TestCreditSession_RecordsSplitAndDetails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e, err := svc.CreditSession(ctx, Credit{
		UserID:          "u1",
		MentorID:        "m1",
		AmountMinor:     4500,
		DurationMinutes: 30,
		CallType:        calls.TypeVideo,
		BookingType:     BookingInstant,
		SessionStart:    testNow,
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if e.Type != EntryCredit || e.Status != StatusConfirmed {
		t.Fatalf("unexpected entry state: %+v", e)
	}
	if e.Description != DescriptionSession {
		t.Fatalf("unexpected description %q", e.Description)
	}
	if !e.MentorShare.Equal(decimal.NewFromInt(3150)) || !e.AdminShare.Equal(decimal.NewFromInt(1350)) {
		t.Fatalf("unexpected shares %s/%s", e.MentorShare, e.AdminShare)
	}
	// 10:00 UTC is 15:30 in Kolkata.
	if e.Session.SessionTime != "03:30 PM" {
		t.Fatalf("unexpected session time %q", e.Session.SessionTime)
	}
}

func TestCreditSession_RejectsZeroAmount(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreditSession(context.Background(), Credit{
		UserID: "u1", MentorID: "m1", CallType: calls.TypeChat, BookingType: BookingInstant,
	})
	if err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		svc.clock = func() time.Time { return testNow.Add(time.Duration(i) * time.Minute) }
		if _, err := svc.CreditSession(ctx, Credit{
			UserID: "u1", MentorID: "m1", AmountMinor: int64(100 * (i + 1)),
			DurationMinutes: 10, CallType: calls.TypeAudio, BookingType: BookingSlot, SlotID: "s1",
		}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	list, err := svc.History(ctx, "m1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(list) != 3 || list[0].AmountMinor != 300 || list[2].AmountMinor != 100 {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestAdminHistory_EnhancesDescription(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreditSession(ctx, Credit{
		UserID: "u1", MentorID: "m1", AmountMinor: 2000, Description: DescriptionPackageFinal,
		DurationMinutes: 45, CallType: calls.TypeVideo, BookingType: BookingInstant, SessionStart: testNow,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.CreditSession(ctx, Credit{
		UserID: "ghost", MentorID: "m1", AmountMinor: 100,
		DurationMinutes: 15, CallType: calls.TypeChat, BookingType: BookingInstant, SessionStart: testNow,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	list, err := svc.AdminHistory(ctx, 0)
	if err != nil {
		t.Fatalf("admin history: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	var final AdminEntry
	for _, e := range list {
		if e.Description == DescriptionPackageFinal {
			final = e
		} else if e.UserName != "Unknown User" {
			t.Fatalf("expected fallback user name, got %q", e.UserName)
		}
	}
	want := "User booked final package session - 45 min video session at 03:30 PM"
	if final.EnhancedDescription != want {
		t.Fatalf("got %q, want %q", final.EnhancedDescription, want)
	}
	if final.MentorName != "Ravi" || final.UserName != "Asha" {
		t.Fatalf("unexpected names %q %q", final.MentorName, final.UserName)
	}
}

func TestEarnings_ExcludesRefundedCredits(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	a, err := svc.CreditSession(ctx, Credit{
		UserID: "u1", MentorID: "m1", AmountMinor: 1000,
		DurationMinutes: 10, CallType: calls.TypeAudio, BookingType: BookingInstant,
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.CreditSession(ctx, Credit{
		UserID: "u1", MentorID: "m1", AmountMinor: 3,
		DurationMinutes: 1, CallType: calls.TypeChat, BookingType: BookingInstant,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := svc.Reverse(ctx, a.ID); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if err := svc.Reverse(ctx, a.ID); err != ErrNotFound {
		t.Fatalf("expected second reverse to fail, got %v", err)
	}

	got, err := svc.Earnings(ctx, "m1")
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("2.1")) || got.PaidSessions != 1 || got.RefundedCount != 1 {
		t.Fatalf("unexpected earnings %+v", got)
	}
	all, _ := repo.ListAll(ctx, 1)
	if len(all) != 1 || !strings.HasPrefix(all[0].Description, "User booked") {
		t.Fatalf("unexpected limited list %+v", all)
	}
}
