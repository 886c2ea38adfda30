package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"mentorship-platform/internal/accounts"
	"mentorship-platform/internal/audit"
	"mentorship-platform/internal/auth"
	"mentorship-platform/internal/booking"
	"mentorship-platform/internal/config"
	"mentorship-platform/internal/groupsessions"
	"mentorship-platform/internal/httpapi"
	"mentorship-platform/internal/jobs"
	"mentorship-platform/internal/matchmaking"
	"mentorship-platform/internal/mentorwallet"
	"mentorship-platform/internal/migrations"
	"mentorship-platform/internal/notify"
	"mentorship-platform/internal/packages"
	"mentorship-platform/internal/payments"
	"mentorship-platform/internal/presence"
	"mentorship-platform/internal/pricing"
	"mentorship-platform/internal/rooms"
	"mentorship-platform/internal/schedule"
	"mentorship-platform/internal/sessions"
	"mentorship-platform/internal/wallet"
	"mentorship-platform/pkg/logger"
	"mentorship-platform/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv load failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := time.LoadLocation(cfg.Jobs.ReminderTimezone)
	if err != nil {
		log.Error("timezone load failed", "tz", cfg.Jobs.ReminderTimezone, "err", err)
		os.Exit(1)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Apply(rootCtx, db); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Outbound queue. A broker outage at startup degrades to log-and-drop.
	var publisher notify.Publisher = notify.FallbackPublisher{Log: log}
	if cfg.Broker.AMQPURL != "" {
		producer, err := notify.NewEventProducer(cfg.Broker.AMQPURL, log)
		if err != nil {
			log.Warn("amqp unavailable, notifications will be dropped", "err", err)
		} else {
			publisher = producer
		}
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.Broker.Exchange, 0, log)
	dispatcher.Start(2)

	var vendor rooms.Vendor
	if cfg.Rooms.ManagementToken != "" {
		vendor = rooms.NewHMSClient(cfg.Rooms)
	} else {
		log.Warn("room vendor disabled, using fallback room links")
	}
	provisioner := rooms.NewProvisioner(vendor, cfg.App.FrontendURL, cfg.Rooms.Subdomain)

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	accountSvc := accounts.NewService(accounts.NewPostgresRepo(db), auditSvc)
	walletSvc := wallet.NewService(wallet.NewPostgresStore(db), dispatcher, auditSvc)
	pricingSvc := pricing.NewService(pricing.NewPostgresRepo(db), walletSvc)
	packageSvc := packages.NewService(packages.NewPostgresRepo(db), dispatcher, accountSvc)
	scheduleSvc := schedule.NewService(schedule.NewPostgresRepo(db), loc)
	sessionSvc := sessions.NewService(sessions.NewPostgresRepo(db), provisioner, accountSvc, accountSvc, packageSvc)
	mentorWalletSvc := mentorwallet.NewService(mentorwallet.NewPostgresRepo(db), accountSvc, loc)
	groupSvc := groupsessions.NewService(groupsessions.NewPostgresRepo(db), cfg.App.FrontendURL)

	hub := presence.NewHub(presence.NewMemoryRegistry(cfg.Presence.StaleAfter), accountSvc, cfg.App.CORSOrigins)
	matchSvc := matchmaking.NewService(
		accountSvc,
		sessionSvc,
		notify.NewMentorRelay(hub, dispatcher),
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)

	bookingSvc := booking.NewService(booking.Deps{
		Accounts:     accountSvc,
		Pricing:      pricingSvc,
		Wallet:       walletSvc,
		MentorWallet: mentorWalletSvc,
		Packages:     packageSvc,
		Schedule:     scheduleSvc,
		Sessions:     sessionSvc,
		Rooms:        provisioner,
		Limiter:      utils.NewInflightCap(rdb, "booking:inflight", 1, 30*time.Second),
		Mailer:       dispatcher,
		Location:     loc,
	})

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		sweeps := jobs.NewJobs(jobs.Deps{
			Anonymous: matchSvc,
			Packages:  packageSvc,
			Accounts:  accountSvc,
			Presence:  hub,
			Slots:     scheduleSvc,
			Mailer:    dispatcher,
		}, log)
		scheduler = jobs.NewScheduler(sweeps, log, cfg.Jobs, loc)
		log.Info("jobs scheduled", "count", scheduler.Start())
	}

	httpapi.RegisterValidators()
	h := httpapi.Handlers{
		Auth:                authManager,
		Accounts:            accountSvc,
		Wallet:              walletSvc,
		Payments:            payments.NewGateway(cfg.Payments),
		MentorWallet:        mentorWalletSvc,
		Pricing:             pricingSvc,
		Booking:             bookingSvc,
		Packages:            packageSvc,
		Schedule:            scheduleSvc,
		Sessions:            sessionSvc,
		Matchmaking:         matchSvc,
		Groups:              groupSvc,
		Presence:            hub,
		RechargeCallbackURL: cfg.Payments.CallbackURL,
		WebhookSecret:       cfg.Payments.RazorpayWebhookSecret,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(corsMiddleware(cfg.App.CORSOrigins))
	r.Use(httpapi.ClientIP())

	registerRoutes(r, auth.RequireAccessToken(authManager), h, func(ctx context.Context) error {
		if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn("jobs still running at shutdown")
		}
	}
	dispatcher.Stop()
	publisher.Close()

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// corsMiddleware allows the configured origins, or any origin outside
// production when none are configured.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}
