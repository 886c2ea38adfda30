package matchmaking

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/sessions"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  map[string]int
	reach bool
}

func (n *recordingNotifier) NotifyMentor(ctx context.Context, mentorID string, payload any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string]int{}
	}
	n.sent[mentorID]++
	return n.reach
}

func mentor(id string) accounts.Account {
	return accounts.Account{ID: id, Kind: accounts.KindMentor, Name: "Mentor " + id, Verified: true, Online: true, Active: true}
}

type fixture struct {
	svc      *Service
	accounts *accounts.Service
	sessions *sessions.Service
	notifier *recordingNotifier
}

func newFixture(seed ...accounts.Account) *fixture {
	seed = append(seed, accounts.Account{ID: "u1", Kind: accounts.KindUser}, accounts.Account{ID: "u2", Kind: accounts.KindUser})
	acc := accounts.NewService(accounts.NewMemoryRepo(seed...), nil)
	sess := sessions.NewService(sessions.NewMemoryRepo(), nil, acc, nil, nil)
	n := &recordingNotifier{reach: true}
	return &fixture{
		svc:      NewService(acc, sess, n, rand.New(rand.NewSource(7))),
		accounts: acc,
		sessions: sess,
		notifier: n,
	}
}

func TestCreate_NoMentorsOnline(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), "u1", calls.TypeChat)
	if !errors.Is(err, ErrNoMentorAvailable) {
		t.Fatalf("expected ErrNoMentorAvailable, got %v", err)
	}
	var nm *NoMentorError
	if !errors.As(err, &nm) || nm.Reason != ReasonNoneOnline {
		t.Fatalf("expected none_online, got %v", err)
	}
	if !strings.Contains(nm.Message(), "No mentors are currently online") {
		t.Fatalf("message=%q", nm.Message())
	}
}

func TestCreate_AllMentorsBusy(t *testing.T) {
	busy := mentor("m1")
	busy.InCall = true
	f := newFixture(busy)
	_, err := f.svc.Create(context.Background(), "u1", calls.TypeAudio)
	var nm *NoMentorError
	if !errors.As(err, &nm) || nm.Reason != ReasonAllBusy {
		t.Fatalf("expected all_busy, got %v", err)
	}
}

func TestCreate_OpensPendingSessionAndNotifies(t *testing.T) {
	f := newFixture(mentor("m1"))
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.svc.clock = func() time.Time { return now }

	m, err := f.svc.Create(context.Background(), "u1", calls.TypeChat)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.MentorID != "m1" || !m.Notified || f.notifier.sent["m1"] != 1 {
		t.Fatalf("unexpected match %+v", m)
	}
	if !strings.HasPrefix(m.AnonymousSessionID, "rant_1740823200000_") || len(m.AnonymousSessionID) != len("rant_1740823200000_")+9 {
		t.Fatalf("anonymous id %q", m.AnonymousSessionID)
	}
	suffix := strings.TrimPrefix(m.AnonymousSessionID, "rant_")
	if m.Session.RoomID != "room_"+suffix {
		t.Fatalf("room id %q", m.Session.RoomID)
	}
	if !m.AcceptExpiresAt.Equal(now.Add(10*time.Minute)) || !m.ExpiresAt.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("windows accept=%v end=%v", m.AcceptExpiresAt, m.ExpiresAt)
	}
	if m.Session.Status != sessions.StatusPending || !m.Session.IsAnonymous {
		t.Fatalf("session %+v", m.Session)
	}

	mentorAcc, _ := f.accounts.Get(context.Background(), "m1")
	if mentorAcc.InCall {
		t.Fatalf("mentor must not be marked busy before accepting")
	}
}

func TestCreate_OneOpenSessionPerCaller(t *testing.T) {
	f := newFixture(mentor("m1"), mentor("m2"))
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, "u1", calls.TypeChat); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := f.svc.Create(ctx, "u1", calls.TypeAudio); !errors.Is(err, ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}
	if _, err := f.svc.Create(ctx, "u1", calls.TypeVideo); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("video is not an anonymous type, got %v", err)
	}
}

// pausedLookup holds the first two open-session lookups until both arrive.
type pausedLookup struct {
	*sessions.Service
	mu      sync.Mutex
	arrived int
	both    chan struct{}
}

func (p *pausedLookup) FindOpenAnonymous(ctx context.Context, userID string) (sessions.Session, bool, error) {
	p.mu.Lock()
	p.arrived++
	n := p.arrived
	if n == 2 {
		close(p.both)
	}
	p.mu.Unlock()
	if n <= 2 {
		<-p.both
	}
	return p.Service.FindOpenAnonymous(ctx, userID)
}

func TestCreate_ConcurrentRequestsOpenOneSession(t *testing.T) {
	f := newFixture(mentor("m1"), mentor("m2"))
	store := &pausedLookup{Service: f.sessions, both: make(chan struct{})}
	svc := NewService(f.accounts, store, f.notifier, rand.New(rand.NewSource(7)))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, "u1", calls.TypeChat)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrActiveSessionExists):
			dup++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("expected one session and one conflict, got %d/%d", ok, dup)
	}
	if list, _ := f.sessions.ListActiveAnonymous(ctx, "u1"); len(list) != 1 {
		t.Fatalf("expected one open anonymous session, got %d", len(list))
	}
}

func TestCreate_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(mentor("m1"))
	f.notifier.reach = false
	m, err := f.svc.Create(context.Background(), "u1", calls.TypeChat)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Notified {
		t.Fatalf("expected undelivered notification")
	}
}

func TestPickMentor_UniformOverPool(t *testing.T) {
	f := newFixture(mentor("m1"), mentor("m2"), mentor("m3"))
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		a, err := f.svc.pickMentor(context.Background())
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[a.ID]++
	}
	for id, n := range counts {
		if n < 800 || n > 1200 {
			t.Fatalf("mentor %s picked %d times of 3000", id, n)
		}
	}
	if len(counts) != 3 {
		t.Fatalf("expected all mentors picked, got %v", counts)
	}
}

func TestAcceptEndLifecycle(t *testing.T) {
	f := newFixture(mentor("m1"))
	ctx := context.Background()
	m, err := f.svc.Create(ctx, "u1", calls.TypeChat)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Status(ctx, m.AnonymousSessionID, "u2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger status: %v", err)
	}
	if _, err := f.svc.Status(ctx, "rant_missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: %v", err)
	}

	s, err := f.svc.Accept(ctx, m.AnonymousSessionID, "m1")
	if err != nil || s.Status != sessions.StatusAccepted {
		t.Fatalf("accept: %+v %v", s, err)
	}
	if acc, _ := f.accounts.Get(ctx, "m1"); !acc.InCall {
		t.Fatalf("mentor should be busy after accept")
	}

	active, err := f.svc.ListActive(ctx, "u1")
	if err != nil || len(active) != 1 {
		t.Fatalf("list active: %v %v", active, err)
	}

	s, err = f.svc.End(ctx, m.AnonymousSessionID, "u1")
	if err != nil || s.Status != sessions.StatusCompleted {
		t.Fatalf("end: %+v %v", s, err)
	}
	if acc, _ := f.accounts.Get(ctx, "m1"); acc.InCall {
		t.Fatalf("mentor should be free after end")
	}
	if _, err := f.svc.Create(ctx, "u1", calls.TypeChat); err != nil {
		t.Fatalf("caller may open a new session after end: %v", err)
	}
}

func TestExpirePending_LeavesMentorAvailable(t *testing.T) {
	f := newFixture(mentor("m1"))
	ctx := context.Background()
	f.svc.clock = func() time.Time { return time.Now().Add(-time.Hour) }

	m, err := f.svc.Create(ctx, "u1", calls.TypeAudio)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := f.svc.ExpirePending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expire n=%d err=%v", n, err)
	}
	s, err := f.svc.Status(ctx, m.AnonymousSessionID, "u1")
	if err != nil || s.Status != sessions.StatusExpired {
		t.Fatalf("status %+v %v", s, err)
	}
	if acc, _ := f.accounts.Get(ctx, "m1"); acc.InCall {
		t.Fatalf("mentor must stay available")
	}
	if _, err := f.svc.Accept(ctx, m.AnonymousSessionID, "m1"); !errors.Is(err, sessions.ErrInvalidTransition) {
		t.Fatalf("expired session cannot be accepted, got %v", err)
	}
}
