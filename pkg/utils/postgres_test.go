package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	got := PostgresPoolConfig{MaxOpenConns: 10}.withDefaults()
	if got.MaxIdleConns != 10 {
		t.Fatalf("expected idle conns to follow open conns, got %d", got.MaxIdleConns)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout %v", got.PingTimeout)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("x")) {
		t.Fatalf("plain error is not a unique violation")
	}
}

func TestViolatedConstraint(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "wallet_transactions_recharge_ref_key"})
	name, ok := ViolatedConstraint(err)
	if !ok || name != "wallet_transactions_recharge_ref_key" {
		t.Fatalf("unexpected constraint %q (%v)", name, ok)
	}
	if _, ok := ViolatedConstraint(&pgconn.PgError{Code: "23503", ConstraintName: "fk"}); ok {
		t.Fatalf("foreign key violation reported as unique")
	}
}
