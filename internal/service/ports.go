// Package service holds the admin use cases: the audit ledger, the entity
// mutators for users and events, authentication and the read-side queries.
// Every call takes the acting Principal explicitly; storage, broker and
// clock are injected at construction.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/timingle-admin/internal/model"
)

// TxRunner runs fn inside one storage transaction. Stores pick the
// transaction up from the context passed to fn.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStore is the persistence contract for users. Implementations return
// repository.ErrNotFound for missing rows.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error
	UpdateRole(ctx context.Context, id uint64, role model.Role) error
	List(ctx context.Context, f model.UserFilter) ([]*model.User, int64, error)
}

// CredentialStore holds admin password hashes.
type CredentialStore interface {
	GetPasswordHash(ctx context.Context, userID uint64) (string, error)
	SetPasswordHash(ctx context.Context, userID uint64, hash string) error
}

// EventStore is the persistence contract for events.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Event, error)
	UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error
	ListParticipants(ctx context.Context, eventID uint64) ([]*model.Participant, error)
	List(ctx context.Context, f model.EventFilter) ([]*model.Event, int64, error)
}

// AuditStore is the append-only ledger storage. Append sets ID (and
// CreatedAt when zero); nothing updates or deletes entries.
type AuditStore interface {
	Append(ctx context.Context, e *model.AuditLogEntry) error
	Query(ctx context.Context, f model.AuditFilter) ([]*model.AuditLogEntry, int64, error)
	QueryByTarget(ctx context.Context, t model.TargetType, id uint64, limit int) ([]*model.AuditLogEntry, error)
}

// StatsStore serves the dashboard aggregates.
type StatsStore interface {
	Overview(ctx context.Context, dayStart time.Time) (*model.Overview, error)
	DailyUsers(ctx context.Context, since time.Time) ([]model.DailyCount, error)
	DailyEvents(ctx context.Context, since time.Time) ([]model.DailyCount, error)
}

// Publisher delivers a JSON message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

// PasswordChecker reports whether plain matches the stored hash.
type PasswordChecker func(hash, plain string) bool

const (
	defaultLimit = 20
	maxLimit     = 100
)

// normalizePage applies the listing defaults: page >= 1, 1 <= limit <= 100.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
