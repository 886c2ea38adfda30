package jobs

import (
	"context"
	"log/slog"
	"time"

	"mentorship-platform/internal/config"

	"github.com/robfig/cron/v3"
)

// Scheduler binds Jobs to cron specs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.JobsConfig
}

// NewScheduler builds a cron runner in loc so daily specs fire on local wall time.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.JobsConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{cron: c, jobs: jobs, logger: logger, config: cfg}
}

type entry struct {
	name string
	spec string
	fn   func()
}

func (s *Scheduler) entries() []entry {
	return []entry{
		{"anonymous_expiry", s.config.AnonymousExpiry, s.jobs.ExpireAnonymousSessions},
		{"chat_support_expiry", s.config.ChatSupportExpiry, s.jobs.ExpireChatSupport},
		{"completed_packages", s.config.CompletedPackages, s.jobs.ActivateCompletedPackages},
		{"auto_reactivation", s.config.Reactivation, s.jobs.ProcessReactivations},
		{"auto_deletion", s.config.Deletion, s.jobs.ProcessDeletions},
		{"session_reminders", s.config.Reminders, s.jobs.SendSessionReminders},
		{"presence_sweep", s.config.PresenceSweep, s.jobs.SweepPresence},
	}
}

// Start registers every job with a spec and starts the scheduler. It returns
// how many jobs were scheduled.
func (s *Scheduler) Start() int {
	n := 0
	for _, e := range s.entries() {
		if e.spec == "" {
			s.logger.Warn("job not scheduled; empty spec", "job", e.name)
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, e.fn); err != nil {
			s.logger.Error("failed to schedule job", "job", e.name, "schedule", e.spec, "error", err)
			continue
		}
		s.logger.Info("scheduled job", "job", e.name, "schedule", e.spec)
		n++
	}
	s.cron.Start()
	return n
}

// Stop stops the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
