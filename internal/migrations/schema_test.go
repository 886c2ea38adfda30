package migrations

import (
	"strings"
	"testing"
)

func TestStatements_CreateEveryTable(t *testing.T) {
	tables := []string{
		"accounts", "audit_events", "user_wallets", "wallet_transactions", "mentor_rates",
		"session_packages", "call_schedules", "schedule_slots", "sessions", "session_messages",
		"group_sessions", "mentor_wallet_entries",
	}
	created := map[string]bool{}
	for _, stmt := range Statements {
		const prefix = "CREATE TABLE IF NOT EXISTS "
		if !strings.HasPrefix(stmt, prefix) {
			continue
		}
		name := strings.Fields(strings.TrimPrefix(stmt, prefix))[0]
		if created[name] {
			t.Fatalf("table %s created twice", name)
		}
		created[name] = true
	}
	for _, name := range tables {
		if !created[name] {
			t.Fatalf("missing table %s", name)
		}
	}
}

func TestStatements_AreIdempotent(t *testing.T) {
	for i, stmt := range Statements {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Fatalf("statement %d is not idempotent: %.40s", i, stmt)
		}
	}
}

func TestStatements_TablesPrecedeReferences(t *testing.T) {
	seen := map[string]bool{}
	for _, stmt := range Statements {
		for _, line := range strings.Split(stmt, "\n") {
			idx := strings.Index(line, "REFERENCES ")
			if idx < 0 {
				continue
			}
			ref := strings.Fields(line[idx+len("REFERENCES "):])[0]
			if !seen[ref] {
				t.Fatalf("reference to %s before it is created", ref)
			}
		}
		if f := strings.Fields(stmt); len(f) > 5 && f[0] == "CREATE" && f[1] == "TABLE" {
			seen[f[5]] = true
		}
	}
}

func TestStatements_GuardRacyInserts(t *testing.T) {
	want := map[string]string{
		"wallet_transactions_recharge_ref_key": "(user_id, external_ref, transaction_type)",
		"sessions_open_anonymous_key":          "status IN ('PENDING', 'ACCEPTED')",
	}
	for name, fragment := range want {
		found := false
		for _, stmt := range Statements {
			if strings.HasPrefix(stmt, "CREATE UNIQUE INDEX IF NOT EXISTS "+name+" ") {
				found = strings.Contains(stmt, fragment)
			}
		}
		if !found {
			t.Fatalf("missing unique index %s covering %s", name, fragment)
		}
	}
}
