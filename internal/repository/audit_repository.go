package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/timingle-admin/internal/model"
)

const auditColumns = "a.id,a.admin_id,u.name,u.phone,a.action,a.target_type,a.target_id,a.old_value,a.new_value,a.ip_address,a.user_agent,a.created_at"

const auditFrom = " FROM audit_logs a LEFT JOIN users u ON u.id=a.admin_id"

// AuditRepo is the append-only store for audit entries. It exposes no
// update or delete.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Append inserts e and sets its ID. When called inside a transaction the
// row commits or rolls back with it.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditLogEntry) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		"INSERT INTO audit_logs (admin_id, action, target_type, target_id, old_value, new_value, ip_address, user_agent, created_at) VALUES (?,?,?,?,?,?,?,?,?)",
		e.AdminID, string(e.Action), string(e.TargetType), e.TargetID, e.OldValue, e.NewValue, e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func scanAudit(s rowScanner) (*model.AuditLogEntry, error) {
	var e model.AuditLogEntry
	err := s.Scan(&e.ID, &e.AdminID, &e.AdminName, &e.AdminPhone, &e.Action, &e.TargetType, &e.TargetID,
		&e.OldValue, &e.NewValue, &e.IPAddress, &e.UserAgent, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Query returns one page of entries matching f, newest first, with the
// acting admin's name and phone, and the total number of matches. Action
// matches as a substring; the date bounds are inclusive.
func (r *AuditRepo) Query(ctx context.Context, f model.AuditFilter) ([]*model.AuditLogEntry, int64, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Action); s != "" {
		where = append(where, "a.action LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(s))
	}
	if f.TargetType != "" {
		where = append(where, "a.target_type=?")
		args = append(args, string(f.TargetType))
	}
	if f.AdminID != 0 {
		where = append(where, "a.admin_id=?")
		args = append(args, f.AdminID)
	}
	if f.StartDate != nil {
		where = append(where, "a.created_at>=?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		where = append(where, "a.created_at<=?")
		args = append(args, *f.EndDate)
	}
	cond := whereClause(where)

	q := conn(ctx, r.DB)
	var total int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs a"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+auditColumns+auditFrom+cond+" ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, model.Offset(f.Page, f.Limit))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.AuditLogEntry, 0, f.Limit)
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// QueryByTarget returns up to limit entries about one entity, newest first.
func (r *AuditRepo) QueryByTarget(ctx context.Context, t model.TargetType, id uint64, limit int) ([]*model.AuditLogEntry, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		"SELECT "+auditColumns+auditFrom+" WHERE a.target_type=? AND a.target_id=? ORDER BY a.created_at DESC, a.id DESC LIMIT ?",
		string(t), id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.AuditLogEntry{}
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
