// Package database opens the MySQL pool and applies the embedded schema.
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/timingle-admin/internal/config"
)

//go:embed schema.sql
var schema string

// DSN builds the driver connection string. parseTime maps DATETIME to
// time.Time and loc=UTC keeps times consistent. clientFoundRows makes an
// UPDATE that rewrites an unchanged value still report its matched row.
func DSN(cfg config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass
	mc.Net = "tcp"
	mc.Addr = cfg.DBHost + ":" + cfg.DBPort
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema statement by statement. Every statement is
// idempotent, so running it against an existing database is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Statements splits the embedded schema on ';' and drops comments and
// blanks.
func Statements() []string {
	var out []string
	for _, part := range strings.Split(schema, ";") {
		var lines []string
		for _, ln := range strings.Split(part, "\n") {
			if t := strings.TrimSpace(ln); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, ln)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}
