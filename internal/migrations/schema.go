// Package migrations holds the Postgres schema. Statements are idempotent and
// applied in order at startup.
package migrations

import (
	"context"
	"database/sql"

	"mentorship-platform/pkg/utils"
)

var Statements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
  id                    TEXT PRIMARY KEY,
  kind                  TEXT NOT NULL CHECK (kind IN ('user', 'mentor', 'admin')),
  email                 TEXT NOT NULL UNIQUE,
  name                  TEXT NOT NULL DEFAULT '',
  password_hash         TEXT NOT NULL,
  blocked               BOOLEAN NOT NULL DEFAULT false,
  online                BOOLEAN NOT NULL DEFAULT false,
  last_seen_at          TIMESTAMPTZ,
  in_call               BOOLEAN NOT NULL DEFAULT false,
  is_unavailable        BOOLEAN NOT NULL DEFAULT false,
  verified              BOOLEAN NOT NULL DEFAULT false,
  active                BOOLEAN NOT NULL DEFAULT true,
  is_deactivated        BOOLEAN NOT NULL DEFAULT false,
  deactivation_type     TEXT NOT NULL DEFAULT '',
  deactivated_at        TIMESTAMPTZ,
  reactivation_date     TIMESTAMPTZ,
  deactivation_reason   TEXT NOT NULL DEFAULT '',
  marked_for_deletion   BOOLEAN NOT NULL DEFAULT false,
  deletion_scheduled_at TIMESTAMPTZ,
  created_at            TIMESTAMPTZ NOT NULL,
  updated_at            TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS accounts_matchable_idx ON accounts (kind, online, in_call)
  WHERE kind = 'mentor' AND verified AND active AND NOT blocked`,

	`CREATE TABLE IF NOT EXISTS audit_events (
  id             TEXT PRIMARY KEY,
  type           TEXT NOT NULL,
  actor_id       TEXT NOT NULL,
  actor_kind     TEXT NOT NULL DEFAULT '',
  ip_address     TEXT NOT NULL DEFAULT '',
  subject_id     TEXT NOT NULL DEFAULT '',
  session_id     TEXT NOT NULL DEFAULT '',
  transaction_id TEXT NOT NULL DEFAULT '',
  amount_minor   BIGINT NOT NULL DEFAULT 0,
  message        TEXT NOT NULL DEFAULT '',
  metadata       TEXT NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS user_wallets (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL UNIQUE REFERENCES accounts (id),
  balance_minor BIGINT NOT NULL DEFAULT 0 CHECK (balance_minor >= 0),
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id                    TEXT PRIMARY KEY,
  transaction_id        TEXT NOT NULL UNIQUE,
  transaction_type      TEXT NOT NULL,
  credit_minor          BIGINT NOT NULL DEFAULT 0,
  debit_minor           BIGINT NOT NULL DEFAULT 0,
  closing_balance_minor BIGINT NOT NULL,
  wallet_id             TEXT NOT NULL REFERENCES user_wallets (id),
  user_id               TEXT NOT NULL,
  status                TEXT NOT NULL CHECK (status IN ('success', 'failed')),
  external_ref          TEXT NOT NULL DEFAULT '',
  created_at            TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS wallet_transactions_user_idx ON wallet_transactions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS wallet_transactions_ref_idx ON wallet_transactions (user_id, external_ref) WHERE external_ref <> ''`,
	// One ledger entry per gateway payment and outcome.
	`CREATE UNIQUE INDEX IF NOT EXISTS wallet_transactions_recharge_ref_key ON wallet_transactions (user_id, external_ref, transaction_type)
  WHERE transaction_type IN ('recharge successful', 'recharge failed')`,

	`CREATE TABLE IF NOT EXISTS mentor_rates (
  id                    TEXT PRIMARY KEY,
  mentor_id             TEXT NOT NULL,
  call_type             TEXT NOT NULL,
  rate_per_minute_minor BIGINT NOT NULL CHECK (rate_per_minute_minor > 0),
  created_at            TIMESTAMPTZ NOT NULL,
  updated_at            TIMESTAMPTZ NOT NULL,
  UNIQUE (mentor_id, call_type)
)`,

	`CREATE TABLE IF NOT EXISTS session_packages (
  id                      TEXT PRIMARY KEY,
  user_id                 TEXT,
  mentor_id               TEXT NOT NULL,
  category_id             TEXT NOT NULL,
  type                    TEXT NOT NULL,
  total_sessions          INTEGER NOT NULL CHECK (total_sessions > 0),
  remaining_sessions      INTEGER NOT NULL CHECK (remaining_sessions >= 0),
  price_minor             BIGINT NOT NULL DEFAULT 0,
  duration_minutes        INTEGER,
  status                  TEXT NOT NULL,
  expiry_date             TIMESTAMPTZ,
  chat_support_expires_at TIMESTAMPTZ,
  created_at              TIMESTAMPTZ NOT NULL,
  updated_at              TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS session_packages_user_idx ON session_packages (user_id, status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS session_packages_mentor_idx ON session_packages (mentor_id, status)`,

	`CREATE TABLE IF NOT EXISTS call_schedules (
  id         TEXT PRIMARY KEY,
  mentor_id  TEXT NOT NULL,
  slots_date TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (mentor_id, slots_date)
)`,
	`CREATE TABLE IF NOT EXISTS schedule_slots (
  id               TEXT PRIMARY KEY,
  schedule_id      TEXT NOT NULL REFERENCES call_schedules (id) ON DELETE CASCADE,
  time             TEXT NOT NULL,
  call_type        TEXT NOT NULL,
  duration_minutes INTEGER NOT NULL,
  booked           BOOLEAN NOT NULL DEFAULT false,
  status           TEXT NOT NULL DEFAULT 'available',
  user_id          TEXT,
  updated_at       TIMESTAMPTZ NOT NULL,
  UNIQUE (schedule_id, time, call_type, duration_minutes)
)`,

	`CREATE TABLE IF NOT EXISTS sessions (
  id                   TEXT PRIMARY KEY,
  user_id              TEXT NOT NULL,
  mentor_id            TEXT NOT NULL,
  call_type            TEXT NOT NULL,
  status               TEXT NOT NULL,
  room_id              TEXT NOT NULL,
  room_name            TEXT NOT NULL DEFAULT '',
  host_code            TEXT NOT NULL DEFAULT '',
  guest_code           TEXT NOT NULL DEFAULT '',
  host_join_url        TEXT NOT NULL DEFAULT '',
  guest_join_url       TEXT NOT NULL DEFAULT '',
  duration_minutes     INTEGER NOT NULL,
  start_time           TIMESTAMPTZ NOT NULL,
  end_time             TIMESTAMPTZ NOT NULL,
  user_joined          BOOLEAN NOT NULL DEFAULT false,
  user_joined_at       TIMESTAMPTZ,
  mentor_joined        BOOLEAN NOT NULL DEFAULT false,
  mentor_joined_at     TIMESTAMPTZ,
  timer_started        BOOLEAN NOT NULL DEFAULT false,
  actual_start_time    TIMESTAMPTZ,
  recording_id         TEXT NOT NULL DEFAULT '',
  recording_status     TEXT NOT NULL DEFAULT '',
  recording_url        TEXT NOT NULL DEFAULT '',
  is_anonymous         BOOLEAN NOT NULL DEFAULT false,
  anonymous_session_id TEXT NOT NULL DEFAULT '',
  accept_expires_at    TIMESTAMPTZ,
  package_id           TEXT NOT NULL DEFAULT '',
  slot_id              TEXT NOT NULL DEFAULT '',
  is_support_session   BOOLEAN NOT NULL DEFAULT false,
  support_expires_at   TIMESTAMPTZ,
  created_at           TIMESTAMPTZ NOT NULL,
  updated_at           TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sessions_anonymous_id_idx ON sessions (anonymous_session_id) WHERE anonymous_session_id <> ''`,
	`CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS sessions_mentor_idx ON sessions (mentor_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS sessions_pending_anonymous_idx ON sessions (accept_expires_at) WHERE is_anonymous AND status = 'PENDING'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sessions_open_anonymous_key ON sessions (user_id)
  WHERE is_anonymous AND status IN ('PENDING', 'ACCEPTED')`,
	`CREATE TABLE IF NOT EXISTS session_messages (
  id          TEXT PRIMARY KEY,
  session_id  TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
  sender_id   TEXT NOT NULL,
  sender_name TEXT NOT NULL DEFAULT '',
  body        TEXT NOT NULL,
  topic       TEXT NOT NULL DEFAULT '',
  sent_at     TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS session_messages_session_idx ON session_messages (session_id, sent_at)`,

	`CREATE TABLE IF NOT EXISTS group_sessions (
  id             TEXT PRIMARY KEY,
  mentor_id      TEXT NOT NULL,
  category_id    TEXT NOT NULL DEFAULT '',
  title          TEXT NOT NULL,
  description    TEXT NOT NULL DEFAULT '',
  session_type   TEXT NOT NULL,
  price_minor    BIGINT NOT NULL DEFAULT 0,
  capacity       INTEGER NOT NULL CHECK (capacity > 0),
  booked_users   TEXT[] NOT NULL DEFAULT '{}',
  scheduled_at   TIMESTAMPTZ NOT NULL,
  status         TEXT NOT NULL,
  room_id        TEXT NOT NULL UNIQUE,
  join_link      TEXT NOT NULL DEFAULT '',
  shareable_link TEXT NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL,
  updated_at     TIMESTAMPTZ NOT NULL,
  CHECK (cardinality(booked_users) <= capacity)
)`,
	`CREATE INDEX IF NOT EXISTS group_sessions_scheduled_idx ON group_sessions (status, scheduled_at)`,

	`CREATE TABLE IF NOT EXISTS mentor_wallet_entries (
  id               TEXT PRIMARY KEY,
  user_id          TEXT NOT NULL,
  mentor_id        TEXT NOT NULL,
  slot_id          TEXT NOT NULL DEFAULT '',
  amount_minor     BIGINT NOT NULL CHECK (amount_minor > 0),
  mentor_share     NUMERIC(20, 4) NOT NULL,
  admin_share      NUMERIC(20, 4) NOT NULL,
  type             TEXT NOT NULL CHECK (type IN ('credit', 'debit', 'refund')),
  status           TEXT NOT NULL CHECK (status IN ('confirmed', 'refunded')),
  description      TEXT NOT NULL DEFAULT '',
  duration_minutes INTEGER NOT NULL DEFAULT 0,
  call_type        TEXT NOT NULL DEFAULT '',
  session_date     TIMESTAMPTZ NOT NULL,
  session_time     TEXT NOT NULL DEFAULT '',
  booking_type     TEXT NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ NOT NULL,
  CHECK (mentor_share + admin_share = amount_minor)
)`,
	`CREATE INDEX IF NOT EXISTS mentor_wallet_entries_mentor_idx ON mentor_wallet_entries (mentor_id, created_at DESC)`,
}

// Apply runs every statement under the schema advisory lock.
func Apply(ctx context.Context, db *sql.DB) error {
	return utils.ApplySchema(ctx, db, Statements)
}
