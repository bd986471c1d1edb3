package service

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/queue"
)

const (
	defaultTargetLimit = 50
	publishTimeout     = 3 * time.Second
)

// Mutation performs one state change inside the ledger's transaction and
// returns the audit entry describing it. Returning a nil entry with a nil
// error means nothing changed and nothing is recorded.
type Mutation func(ctx context.Context) (*model.AuditLogEntry, error)

// AuditLedger is the append-only record of administrative actions. Every
// mutation goes through Apply so that the state write and its audit entry
// commit or roll back together.
type AuditLedger struct {
	store AuditStore
	tx    TxRunner
	pub   Publisher
	log   *log.Logger
	now   func() time.Time
}

// NewAuditLedger wires the ledger. pub may be nil when the audit stream is
// disabled.
func NewAuditLedger(store AuditStore, tx TxRunner, pub Publisher, logger *log.Logger) *AuditLedger {
	if logger == nil {
		logger = log.New("audit")
	}
	return &AuditLedger{store: store, tx: tx, pub: pub, log: logger, now: time.Now}
}

// WithClock overrides the clock used to stamp entries.
func (l *AuditLedger) WithClock(now func() time.Time) *AuditLedger {
	l.now = now
	return l
}

// Record appends a standalone entry, used for views, login and logout. A
// failed append is returned as *apperr.AuditWriteError and the caller must
// not report success.
func (l *AuditLedger) Record(ctx context.Context, meta model.RequestMeta, e *model.AuditLogEntry) error {
	if err := l.append(ctx, e); err != nil {
		l.incident(ctx, meta, e, err)
		return err
	}
	l.announce(ctx, meta, e)
	return nil
}

// Apply runs m and appends the entry it returns in a single transaction.
// The state write is never visible without its entry: if the append fails
// the whole transaction is rolled back and *apperr.AuditWriteError is
// returned.
func (l *AuditLedger) Apply(ctx context.Context, meta model.RequestMeta, m Mutation) (*model.AuditLogEntry, error) {
	var pending *model.AuditLogEntry
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		e, err := m(ctx)
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		pending = e
		return l.append(ctx, e)
	})
	if err != nil {
		var aw *apperr.AuditWriteError
		var ae *apperr.Error
		switch {
		case errors.As(err, &aw):
			l.incident(ctx, meta, pending, err)
		case errors.As(err, &ae):
		default:
			err = apperr.Storage("commit", err)
		}
		return nil, err
	}
	if pending != nil {
		l.announce(ctx, meta, pending)
	}
	return pending, nil
}

// Query lists entries newest first with the total count for pagination.
func (l *AuditLedger) Query(ctx context.Context, p model.Principal, f model.AuditFilter) ([]*model.AuditLogEntry, model.Pagination, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, model.Pagination{}, err
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	items, total, err := l.store.Query(ctx, f)
	if err != nil {
		return nil, model.Pagination{}, apperr.Storage("query audit logs", err)
	}
	return items, model.NewPagination(f.Page, f.Limit, total), nil
}

// QueryByTarget returns the most recent entries for one entity.
func (l *AuditLedger) QueryByTarget(ctx context.Context, p model.Principal, t model.TargetType, id uint64, limit int) ([]*model.AuditLogEntry, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, apperr.Validation("Invalid target type. Use user, event or system")
	}
	if limit < 1 {
		limit = defaultTargetLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	items, err := l.store.QueryByTarget(ctx, t, id, limit)
	if err != nil {
		return nil, apperr.Storage("query audit logs by target", err)
	}
	return items, nil
}

func (l *AuditLedger) append(ctx context.Context, e *model.AuditLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	if err := l.store.Append(ctx, e); err != nil {
		return &apperr.AuditWriteError{Action: string(e.Action), Err: err}
	}
	return nil
}

// incident logs a refused action distinctly from ordinary request errors
// and forwards it to the incident queue.
func (l *AuditLedger) incident(ctx context.Context, meta model.RequestMeta, e *model.AuditLogEntry, cause error) {
	ev := queue.AuditIncidentEvent{
		RequestID:  meta.RequestID,
		Error:      cause.Error(),
		OccurredAt: l.now().UTC().Format(time.RFC3339Nano),
	}
	if e != nil {
		ev.AdminID = e.AdminID
		ev.Action = string(e.Action)
		ev.TargetType = string(e.TargetType)
		ev.TargetID = e.TargetID
	}
	l.log.Errorj(log.JSON{
		"event":       "audit_write_failed",
		"admin_id":    ev.AdminID,
		"action":      ev.Action,
		"target_type": ev.TargetType,
		"target_id":   ev.TargetID,
		"request_id":  ev.RequestID,
		"error":       ev.Error,
	})
	l.publish(ctx, queue.IncidentQueue, ev)
}

func (l *AuditLedger) announce(ctx context.Context, meta model.RequestMeta, e *model.AuditLogEntry) {
	l.publish(ctx, queue.AuditQueue, queue.NewAuditRecorded(e, meta.RequestID))
}

// publish is best effort: the entry is already durable, so a broker outage
// is logged and otherwise ignored.
func (l *AuditLedger) publish(ctx context.Context, name string, v any) {
	if l.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := l.pub.Publish(ctx, name, v); err != nil {
		l.log.Warnj(log.JSON{"event": "audit_publish_failed", "queue": name, "error": err.Error()})
	}
}

// newEntry fills the actor and request fields shared by every entry.
func newEntry(p model.Principal, action model.AuditAction, t model.TargetType, id *uint64, meta model.RequestMeta) *model.AuditLogEntry {
	e := &model.AuditLogEntry{
		AdminID:    p.ID,
		Action:     action,
		TargetType: t,
		TargetID:   id,
	}
	if meta.IPAddress != "" {
		ip := meta.IPAddress
		e.IPAddress = &ip
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		e.UserAgent = &ua
	}
	return e
}

func idPtr(id uint64) *uint64 { return &id }
