package jobs

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/calls"
	"mentorship-platform/internal/notify"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/schedule"
	"mentorship-platform/pkg/logger"
)

// Sweeper is a maintenance pass that reports how many records it changed.
type Sweeper func(ctx context.Context) (int, error)

type AnonymousExpirer interface {
	ExpirePending(ctx context.Context) (int, error)
}

type PackageSweeper interface {
	ActivateCompletedPackages(ctx context.Context) (int, error)
	ExpireChatSupport(ctx context.Context) (int, error)
	ListUserPackages(ctx context.Context, userID string, callType calls.Type) ([]packages.Package, error)
}

type AccountSweeper interface {
	ProcessAutoReactivations(ctx context.Context) (int, error)
	ProcessAutoDeletions(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (accounts.Account, error)
}

type PresenceSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type SlotCalendar interface {
	Tomorrow() string
	ListAcceptedOn(ctx context.Context, date string) ([]schedule.SlotRef, error)
}

type Mailer interface {
	SendMail(ctx context.Context, m notify.Mail)
}

type Deps struct {
	Anonymous AnonymousExpirer
	Packages  PackageSweeper
	Accounts  AccountSweeper
	Presence  PresenceSweeper
	Slots     SlotCalendar
	Mailer    Mailer
}

// Jobs holds the sweep logic. Each exported method is a cron entry point.
type Jobs struct {
	d       Deps
	log     *slog.Logger
	timeout time.Duration
}

func NewJobs(d Deps, log *slog.Logger) *Jobs {
	if log == nil {
		log = slog.Default()
	}
	return &Jobs{d: d, log: log, timeout: 2 * time.Minute}
}

// run executes one sweep with its own deadline and logs the outcome.
func (j *Jobs) run(name string, fn Sweeper) {
	log := j.log.With("job", name)
	ctx, cancel := context.WithTimeout(logger.With(context.Background(), log), j.timeout)
	defer cancel()

	started := time.Now()
	n, err := fn(ctx)
	if err != nil {
		log.Error("job failed", "err", err, "elapsed", time.Since(started))
		return
	}
	if n > 0 {
		log.Info("job finished", "affected", n, "elapsed", time.Since(started))
		return
	}
	log.Debug("job finished", "affected", 0)
}

func (j *Jobs) ExpireAnonymousSessions() { j.run("anonymous_expiry", j.d.Anonymous.ExpirePending) }

func (j *Jobs) ExpireChatSupport() { j.run("chat_support_expiry", j.d.Packages.ExpireChatSupport) }

func (j *Jobs) ActivateCompletedPackages() {
	j.run("completed_packages", j.d.Packages.ActivateCompletedPackages)
}

func (j *Jobs) ProcessReactivations() { j.run("auto_reactivation", j.d.Accounts.ProcessAutoReactivations) }

func (j *Jobs) ProcessDeletions() { j.run("auto_deletion", j.d.Accounts.ProcessAutoDeletions) }

func (j *Jobs) SweepPresence() { j.run("presence_sweep", j.d.Presence.Sweep) }

func (j *Jobs) SendSessionReminders() { j.run("session_reminders", j.sendReminders) }

// sendReminders mails holders of tomorrow's accepted slots when the slot is
// drawn from an active package with that mentor.
func (j *Jobs) sendReminders(ctx context.Context) (int, error) {
	date := j.d.Slots.Tomorrow()
	slots, err := j.d.Slots.ListAcceptedOn(ctx, date)
	if err != nil {
		return 0, err
	}
	log := logger.From(ctx)
	sent := 0
	for _, s := range slots {
		if s.UserID == "" {
			continue
		}
		pkg, ok, err := j.activePackage(ctx, s.UserID, s.MentorID)
		if err != nil {
			log.Warn("reminder package lookup failed", "slot_id", s.ID, "err", err)
			continue
		}
		if !ok {
			continue
		}
		user, err := j.d.Accounts.Get(ctx, s.UserID)
		if err != nil {
			log.Warn("reminder user lookup failed", "slot_id", s.ID, "err", err)
			continue
		}
		mentor, err := j.d.Accounts.Get(ctx, s.MentorID)
		if err != nil {
			log.Warn("reminder mentor lookup failed", "slot_id", s.ID, "err", err)
			continue
		}
		j.d.Mailer.SendMail(ctx, notify.Mail{
			To:       user.Email,
			Subject:  "Package Session Reminder - Tomorrow!",
			Template: notify.TemplateSessionReminder,
			Data: map[string]string{
				"name":               user.Name,
				"mentor_name":        mentor.Name,
				"scheduled_date":     date,
				"time":               s.Time,
				"call_type":          string(s.CallType),
				"duration":           strconv.Itoa(s.DurationMinutes),
				"package_type":       string(pkg.Type),
				"remaining_sessions": strconv.Itoa(pkg.RemainingSessions),
				"total_sessions":     strconv.Itoa(pkg.TotalSessions),
			},
		})
		sent++
	}
	return sent, nil
}

func (j *Jobs) activePackage(ctx context.Context, userID, mentorID string) (packages.Package, bool, error) {
	list, err := j.d.Packages.ListUserPackages(ctx, userID, "")
	if err != nil {
		return packages.Package{}, false, err
	}
	for _, p := range list {
		if p.MentorID == mentorID && p.RemainingSessions > 0 {
			return p, true, nil
		}
	}
	return packages.Package{}, false, nil
}
