// Package repository implements the MySQL stores behind the admin services.
// Repositories share the sentinel errors below so that higher layers can
// distinguish a missing row from a storage failure without inspecting
// driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors on.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isMissingParent reports a MySQL 1452 foreign-key failure, i.e. the
// referenced row does not exist.
func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1452
}

// likeEscaper escapes LIKE wildcards with '!', the escape character named
// in every LIKE clause here. '!' is used rather than the backslash so the
// pattern does not depend on NO_BACKSLASH_ESCAPES.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern turns user input into a literal substring pattern.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
