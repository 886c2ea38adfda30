package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values come from env (optionally seeded from a .env file outside production).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Rooms    RoomsConfig
	Payments PaymentsConfig
	Broker   BrokerConfig
	Jobs     JobsConfig
	Presence PresenceConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string

	// FrontendURL is the base for fallback room links and shareable group links.
	FrontendURL string
	CORSOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// RoomsConfig configures the 100ms room vendor. An empty ManagementToken
// disables the vendor and every room uses the fallback URLs.
type RoomsConfig struct {
	APIBaseURL      string
	ManagementToken string
	TemplateID      string
	Subdomain       string
	Timeout         time.Duration
}

type PaymentsConfig struct {
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	// CallbackURL is where Razorpay redirects after a recharge link is paid.
	CallbackURL string
}

// BrokerConfig configures the outbound notification queue. An empty URL
// selects the logging fallback publisher.
type BrokerConfig struct {
	AMQPURL  string
	Exchange string
}

// JobsConfig holds cron specs for maintenance sweeps.
type JobsConfig struct {
	Enabled           bool
	AnonymousExpiry   string
	ChatSupportExpiry string
	CompletedPackages string
	Reactivation      string
	Deletion          string
	Reminders         string
	PresenceSweep     string
	ReminderTimezone  string
}

type PresenceConfig struct {
	StaleAfter time.Duration
}

// LoadDotEnv seeds the process env from .env outside production. A missing
// file is not an error.
func LoadDotEnv() error {
	if strings.TrimSpace(os.Getenv("APP_ENV")) == "production" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	c.App.FrontendURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FRONTEND_URL")), "/")
	c.App.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Rooms.APIBaseURL = strings.TrimSpace(os.Getenv("HMS_API_BASE_URL"))
	c.Rooms.ManagementToken = os.Getenv("HMS_MANAGEMENT_TOKEN")
	c.Rooms.TemplateID = strings.TrimSpace(os.Getenv("HMS_TEMPLATE_ID"))
	c.Rooms.Subdomain = strings.TrimSpace(os.Getenv("HMS_SUBDOMAIN"))
	c.Rooms.Timeout = mustDuration("HMS_TIMEOUT")

	c.Payments.RazorpayKeyID = strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID"))
	c.Payments.RazorpayKeySecret = os.Getenv("RAZORPAY_KEY_SECRET")
	c.Payments.RazorpayWebhookSecret = os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	c.Payments.CallbackURL = strings.TrimSpace(os.Getenv("RAZORPAY_CALLBACK_URL"))

	c.Broker.AMQPURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	c.Broker.Exchange = strings.TrimSpace(os.Getenv("RABBITMQ_EXCHANGE"))

	c.Jobs.Enabled = strings.TrimSpace(os.Getenv("JOBS_ENABLED")) != "false"
	c.Jobs.AnonymousExpiry = strings.TrimSpace(os.Getenv("JOB_ANONYMOUS_EXPIRY"))
	c.Jobs.ChatSupportExpiry = strings.TrimSpace(os.Getenv("JOB_CHAT_SUPPORT_EXPIRY"))
	c.Jobs.CompletedPackages = strings.TrimSpace(os.Getenv("JOB_COMPLETED_PACKAGES"))
	c.Jobs.Reactivation = strings.TrimSpace(os.Getenv("JOB_REACTIVATION"))
	c.Jobs.Deletion = strings.TrimSpace(os.Getenv("JOB_DELETION"))
	c.Jobs.Reminders = strings.TrimSpace(os.Getenv("JOB_REMINDERS"))
	c.Jobs.PresenceSweep = strings.TrimSpace(os.Getenv("JOB_PRESENCE_SWEEP"))
	c.Jobs.ReminderTimezone = strings.TrimSpace(os.Getenv("SCHEDULE_TIMEZONE"))

	c.Presence.StaleAfter = mustDuration("PRESENCE_STALE_AFTER")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills env-dependent defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.FrontendURL == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("FRONTEND_URL is required in production"))
		} else {
			c.App.FrontendURL = "http://localhost:3000"
		}
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Payments.RazorpayKeyID == "" || c.Payments.RazorpayKeySecret == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Rooms.APIBaseURL == "" {
		c.Rooms.APIBaseURL = "https://api.100ms.live/v2"
	}
	if c.Rooms.Timeout <= 0 {
		c.Rooms.Timeout = 8 * time.Second
	}
	if c.Rooms.ManagementToken != "" && c.Rooms.Subdomain == "" {
		errs = append(errs, errors.New("HMS_SUBDOMAIN is required when HMS_MANAGEMENT_TOKEN is set"))
	}

	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "notifications"
	}

	c.Jobs.applyDefaults()
	if _, err := time.LoadLocation(c.Jobs.ReminderTimezone); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE_TIMEZONE is invalid: %w", err))
	}

	if c.Presence.StaleAfter <= 0 {
		c.Presence.StaleAfter = 2 * time.Minute
	}

	return joinErrors(errs)
}

func (j *JobsConfig) applyDefaults() {
	if j.AnonymousExpiry == "" {
		j.AnonymousExpiry = "@every 1m"
	}
	if j.ChatSupportExpiry == "" {
		j.ChatSupportExpiry = "@hourly"
	}
	if j.CompletedPackages == "" {
		j.CompletedPackages = "@hourly"
	}
	if j.Reactivation == "" {
		j.Reactivation = "@hourly"
	}
	if j.Deletion == "" {
		j.Deletion = "0 2 * * *"
	}
	if j.Reminders == "" {
		j.Reminders = "0 9 * * *"
	}
	if j.PresenceSweep == "" {
		j.PresenceSweep = "@every 1m"
	}
	if j.ReminderTimezone == "" {
		j.ReminderTimezone = "Asia/Kolkata"
	}
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
