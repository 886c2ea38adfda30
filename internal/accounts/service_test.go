package accounts

import (
	"context"
	"testing"
	"time"

	"mentorship-platform/internal/audit"
	"mentorship-platform/internal/auth"
)

func fixedService(repo Repository, now time.Time) (*Service, *audit.MemoryRepo) {
	ar := audit.NewMemoryRepo()
	svc := NewService(repo, audit.NewService(ar))
	svc.clock = func() time.Time { return now }
	return svc, ar
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc, _ := fixedService(NewMemoryRepo(), time.Now())
	ctx := context.Background()

	a, err := svc.Create(ctx, NewAccount{Kind: KindUser, Email: " Asha@Example.com ", Name: "Asha", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Email != "asha@example.com" || a.PasswordHash == "pw-123456" {
		t.Fatalf("unexpected account %+v", a)
	}
	if _, err := svc.Create(ctx, NewAccount{Kind: KindUser, Email: "asha@example.com", Password: "x"}); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := svc.Authenticate(ctx, "ASHA@example.com", "pw-123456")
	if err != nil || got.ID != a.ID {
		t.Fatalf("authenticate: %+v %v", got, err)
	}
	if _, err := svc.Authenticate(ctx, "asha@example.com", "nope"); err != auth.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRequire_RejectsBlockedAndDeactivated(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo(
		Account{ID: "m1", Kind: KindMentor, Blocked: true},
		Account{ID: "u1", Kind: KindUser},
	)
	svc, _ := fixedService(repo, now)
	ctx := context.Background()

	if _, err := svc.Require(ctx, "m1", KindMentor); err != ErrBlocked {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if _, err := svc.Require(ctx, "u1", KindMentor); err != ErrNotFound {
		t.Fatalf("expected kind mismatch to be not found, got %v", err)
	}
	if err := svc.DeactivatePermanently(ctx, "u1", "u1", "leaving"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Require(ctx, "u1", KindUser); err != ErrDeactivated {
		t.Fatalf("expected ErrDeactivated, got %v", err)
	}
}

func TestDeactivateTemporarily_TakesOfflineAndAutoReactivates(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo(Account{ID: "u1", Kind: KindUser, Online: true})
	svc, ar := fixedService(repo, now)
	ctx := context.Background()

	back := now.Add(2 * time.Hour)
	if err := svc.DeactivateTemporarily(ctx, "u1", "u1", "break", &back); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	a, _, _ := repo.Get(ctx, "u1")
	if a.Online || !a.Deactivation.IsDeactivated {
		t.Fatalf("expected offline and deactivated, got %+v", a)
	}

	if n, _ := svc.ProcessAutoReactivations(ctx); n != 0 {
		t.Fatalf("expected nothing due yet, got %d", n)
	}
	svc.clock = func() time.Time { return back.Add(time.Minute) }
	if n, err := svc.ProcessAutoReactivations(ctx); err != nil || n != 1 {
		t.Fatalf("expected one reactivation, got %d %v", n, err)
	}
	a, _, _ = repo.Get(ctx, "u1")
	if a.Deactivation.IsDeactivated {
		t.Fatalf("expected reactivated")
	}
	if len(ar.Events()) != 2 {
		t.Fatalf("expected deactivate and reactivate audit events, got %d", len(ar.Events()))
	}
}

func TestDeactivateTemporarily_RejectsPastDate(t *testing.T) {
	now := time.Now()
	svc, _ := fixedService(NewMemoryRepo(Account{ID: "u1", Kind: KindUser}), now)
	past := now.Add(-time.Hour)
	if err := svc.DeactivateTemporarily(context.Background(), "u1", "u1", "", &past); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestProcessAutoDeletions_MarksAfterGrace(t *testing.T) {
	now := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	old := now.Add(-DeletionGrace - time.Hour)
	recent := now.Add(-time.Hour)
	repo := NewMemoryRepo(
		Account{ID: "old", Kind: KindUser, Deactivation: Deactivation{IsDeactivated: true, Type: DeactivationPermanent, DeactivatedAt: &old}},
		Account{ID: "new", Kind: KindUser, Deactivation: Deactivation{IsDeactivated: true, Type: DeactivationPermanent, DeactivatedAt: &recent}},
	)
	svc, _ := fixedService(repo, now)

	n, err := svc.ProcessAutoDeletions(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected one marked, got %d %v", n, err)
	}
	a, _, _ := repo.Get(context.Background(), "old")
	if !a.Deactivation.MarkedForDeletion || a.Deactivation.DeletionScheduledAt == nil {
		t.Fatalf("expected deletion marking, got %+v", a.Deactivation)
	}
	if n, _ := svc.ProcessAutoDeletions(context.Background()); n != 0 {
		t.Fatalf("expected marking to be idempotent, got %d", n)
	}
}

func TestMatchableMentors_PoolFilter(t *testing.T) {
	ok := Account{ID: "ok", Kind: KindMentor, Verified: true, Online: true, Active: true}
	busy := ok
	busy.ID, busy.InCall = "busy", true
	offline := ok
	offline.ID, offline.Online = "offline", false
	svc, _ := fixedService(NewMemoryRepo(ok, busy, offline), time.Now())

	pool, err := svc.MatchableMentors(context.Background())
	if err != nil || len(pool) != 1 || pool[0].ID != "ok" {
		t.Fatalf("unexpected pool %+v %v", pool, err)
	}
	if n, _ := svc.OnlineMentorCount(context.Background()); n != 2 {
		t.Fatalf("expected 2 online mentors, got %d", n)
	}
}
