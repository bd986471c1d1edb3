package database

import (
	"strings"
	"testing"

	"github.com/iliyamo/timingle-admin/internal/config"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	for _, s := range stmts {
		if !strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("unexpected statement start: %.40q", s)
		}
	}
	if !strings.Contains(stmts[4], "audit_logs") {
		t.Errorf("expected audit_logs last, got %.60q", stmts[4])
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{DBUser: "admin", DBPass: "pw", DBHost: "db", DBPort: "3306", DBName: "timingle"})
	for _, want := range []string{"admin:pw@tcp(db:3306)/timingle", "parseTime=true", "clientFoundRows=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestSchemaDefaults(t *testing.T) {
	stmts := Statements()
	byTable := map[string]string{}
	for _, s := range stmts {
		name := strings.Fields(strings.TrimPrefix(s, "CREATE TABLE IF NOT EXISTS"))[0]
		byTable[name] = s
	}
	cases := []struct{ table, want string }{
		{"users", "timezone          VARCHAR(64)  NOT NULL DEFAULT 'UTC'"},
		{"users", "language          VARCHAR(8)   NOT NULL DEFAULT 'ko'"},
		{"event_participants", "status    VARCHAR(32) NOT NULL DEFAULT 'PENDING'"},
		{"event_participants", "role      VARCHAR(32) NOT NULL DEFAULT 'PARTICIPANT'"},
	}
	for _, c := range cases {
		if !strings.Contains(byTable[c.table], c.want) {
			t.Errorf("%s: missing %q", c.table, c.want)
		}
	}
}
