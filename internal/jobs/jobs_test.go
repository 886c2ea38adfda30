package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/config"
	"mentorship-platform/internal/notify"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/schedule"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingSweep struct {
	calls int
	n     int
	err   error
}

func (c *countingSweep) sweep(ctx context.Context) (int, error) {
	c.calls++
	return c.n, c.err
}

type stubAnonymous struct{ countingSweep }

func (s *stubAnonymous) ExpirePending(ctx context.Context) (int, error) { return s.sweep(ctx) }

type stubPresence struct{ countingSweep }

func (s *stubPresence) Sweep(ctx context.Context) (int, error) { return s.sweep(ctx) }

type stubPackages struct {
	completed countingSweep
	expired   countingSweep
	byUser    map[string][]packages.Package
}

func (s *stubPackages) ActivateCompletedPackages(ctx context.Context) (int, error) {
	return s.completed.sweep(ctx)
}

func (s *stubPackages) ExpireChatSupport(ctx context.Context) (int, error) {
	return s.expired.sweep(ctx)
}

func (s *stubPackages) ListUserPackages(ctx context.Context, userID string, callType calls.Type) ([]packages.Package, error) {
	return s.byUser[userID], nil
}

type stubSlots struct {
	date  string
	slots []schedule.SlotRef
	err   error
}

func (s *stubSlots) Tomorrow() string { return s.date }

func (s *stubSlots) ListAcceptedOn(ctx context.Context, date string) ([]schedule.SlotRef, error) {
	if date != s.date {
		return nil, nil
	}
	return s.slots, s.err
}

func acceptedSlot(id, userID, mentorID string) schedule.SlotRef {
	return schedule.SlotRef{
		Slot: schedule.Slot{
			ID: id, Time: "10:00", CallType: calls.TypeVideo, DurationMinutes: 45,
			Booked: true, Status: schedule.SlotAccepted, UserID: userID,
		},
		MentorID:  mentorID,
		SlotsDate: "2025-03-02",
	}
}

func newTestJobs(pkgs *stubPackages, slots *stubSlots, mail *notify.Recorder) *Jobs {
	acc := accounts.NewService(accounts.NewMemoryRepo(
		accounts.Account{ID: "u1", Kind: accounts.KindUser, Name: "Asha", Email: "asha@example.com"},
		accounts.Account{ID: "u2", Kind: accounts.KindUser, Name: "Bela", Email: "bela@example.com"},
		accounts.Account{ID: "m1", Kind: accounts.KindMentor, Name: "Ravi"},
	), nil)
	return NewJobs(Deps{
		Anonymous: &stubAnonymous{},
		Packages:  pkgs,
		Accounts:  acc,
		Presence:  &stubPresence{},
		Slots:     slots,
		Mailer:    mail,
	}, quietLogger())
}

func TestSendReminders_OnlyPackageSessions(t *testing.T) {
	pkgs := &stubPackages{byUser: map[string][]packages.Package{
		"u1": {{ID: "p1", UserID: "u1", MentorID: "m1", Type: calls.TypeVideo, TotalSessions: 4, RemainingSessions: 2}},
		"u2": {{ID: "p2", UserID: "u2", MentorID: "other", Type: calls.TypeVideo, TotalSessions: 4, RemainingSessions: 2}},
	}}
	slots := &stubSlots{date: "2025-03-02", slots: []schedule.SlotRef{
		acceptedSlot("s1", "u1", "m1"),
		acceptedSlot("s2", "u2", "m1"),
		acceptedSlot("s3", "", "m1"),
	}}
	mail := &notify.Recorder{}
	j := newTestJobs(pkgs, slots, mail)

	n, err := j.sendReminders(context.Background())
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if n != 1 || len(mail.Mails) != 1 {
		t.Fatalf("expected one reminder, got %d (%d mails)", n, len(mail.Mails))
	}
	m := mail.Mails[0]
	if m.To != "asha@example.com" || m.Template != notify.TemplateSessionReminder {
		t.Fatalf("unexpected mail %+v", m)
	}
	if m.Data["mentor_name"] != "Ravi" || m.Data["remaining_sessions"] != "2" || m.Data["scheduled_date"] != "2025-03-02" {
		t.Fatalf("unexpected mail data %+v", m.Data)
	}
}

func TestSendReminders_PropagatesListError(t *testing.T) {
	slots := &stubSlots{date: "2025-03-02", err: errors.New("db down")}
	j := newTestJobs(&stubPackages{}, slots, &notify.Recorder{})
	if _, err := j.sendReminders(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	// The cron entry point swallows it.
	j.SendSessionReminders()
}

func TestJobs_EntryPointsCallSweeps(t *testing.T) {
	pkgs := &stubPackages{}
	j := newTestJobs(pkgs, &stubSlots{}, &notify.Recorder{})
	anon := j.d.Anonymous.(*stubAnonymous)
	pres := j.d.Presence.(*stubPresence)
	anon.err = errors.New("boom")

	j.ExpireAnonymousSessions()
	j.ExpireChatSupport()
	j.ActivateCompletedPackages()
	j.SweepPresence()
	j.ProcessReactivations()
	j.ProcessDeletions()

	if anon.calls != 1 || pres.calls != 1 || pkgs.completed.calls != 1 || pkgs.expired.calls != 1 {
		t.Fatalf("unexpected call counts anon=%d presence=%d completed=%d expired=%d",
			anon.calls, pres.calls, pkgs.completed.calls, pkgs.expired.calls)
	}
}

func TestScheduler_SkipsEmptyAndInvalidSpecs(t *testing.T) {
	j := newTestJobs(&stubPackages{}, &stubSlots{}, &notify.Recorder{})
	s := NewScheduler(j, quietLogger(), config.JobsConfig{
		AnonymousExpiry:   "@every 1m",
		ChatSupportExpiry: "not a spec",
		CompletedPackages: "0 * * * *",
		Reminders:         "0 9 * * *",
	}, nil)
	if n := s.Start(); n != 3 {
		t.Fatalf("expected 3 scheduled jobs, got %d", n)
	}
	<-s.Stop().Done()
}
