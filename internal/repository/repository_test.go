package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/timingle-admin/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return db, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

var userCols = []string{"id", "phone", "name", "email", "profile_image_url", "region", "timezone", "language", "role", "status", "created_at", "updated_at"}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := NewUserRepo(db).GetByID(context.Background(), 9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserGetByIDForUpdateScansNullables(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id=? LIMIT 1 FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(5), "01000000005", "Sara", nil, nil, nil, "UTC", "ko", "USER", "ACTIVE", now, now))

	u, err := NewUserRepo(db).GetByIDForUpdate(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name == nil || *u.Name != "Sara" || u.Email != nil {
		t.Errorf("unexpected nullable fields: name=%v email=%v", u.Name, u.Email)
	}
	if u.Role != model.RoleUser || u.Status != model.UserStatusActive {
		t.Errorf("unexpected role/status %s/%s", u.Role, u.Status)
	}
}

func TestUserUpdateStatusNoRows(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=?")).
		WithArgs("SUSPENDED", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewUserRepo(db).UpdateStatus(context.Background(), 5, model.UserStatusSuspended)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserListBuildsFilters(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (phone LIKE ? ESCAPE '!' OR name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!') AND role=?")).
		WithArgs("%010%", "%010%", "%010%", "ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs("%010%", "%010%", "%010%", "ADMIN", int64(10), int64(20)).
		WillReturnRows(sqlmock.NewRows(userCols))

	items, total, err := NewUserRepo(db).List(context.Background(), model.UserFilter{
		Page: 3, Limit: 10, Search: " 010 ", Role: model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 21 || len(items) != 0 {
		t.Errorf("expected total 21 and no items, got %d/%d", total, len(items))
	}
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status=?")).
		WithArgs("CANCELED", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	events, audit := NewEventRepo(db), NewAuditRepo(db)
	err := NewTxManager(db).RunInTx(context.Background(), func(ctx context.Context) error {
		if err := events.UpdateStatus(ctx, 3, model.EventStatusCanceled); err != nil {
			return err
		}
		return audit.Append(ctx, &model.AuditLogEntry{AdminID: 1, Action: model.ActionEventDeleted, TargetType: model.TargetEvent})
	})
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected disk full, got %v", err)
	}
}

func TestTxManagerCommits(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=?")).
		WithArgs("ADMIN", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	users := NewUserRepo(db)
	err := NewTxManager(db).RunInTx(context.Background(), func(ctx context.Context) error {
		return users.UpdateRole(ctx, 4, model.RoleAdmin)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditAppendStoresSnapshots(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	ip := "10.0.0.1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(int64(1), "USER_SUSPENDED", "user", int64(5), `{"status":"ACTIVE"}`, `{"status":"SUSPENDED"}`, ip, nil, at).
		WillReturnResult(sqlmock.NewResult(77, 1))

	target := uint64(5)
	e := &model.AuditLogEntry{
		AdminID:    1,
		Action:     model.ActionUserSuspended,
		TargetType: model.TargetUser,
		TargetID:   &target,
		OldValue:   model.Snapshot{"status": "ACTIVE"},
		NewValue:   model.Snapshot{"status": "SUSPENDED"},
		IPAddress:  &ip,
		CreatedAt:  at,
	}
	if err := NewAuditRepo(db).Append(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != 77 {
		t.Errorf("expected id 77, got %d", e.ID)
	}
}

var auditCols = []string{"id", "admin_id", "name", "phone", "action", "target_type", "target_id", "old_value", "new_value", "ip_address", "user_agent", "created_at"}

func TestAuditQueryFiltersAndScans(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	at := start.Add(3 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs a WHERE a.action LIKE ? ESCAPE '!' AND a.target_type=? AND a.created_at>=?")).
		WithArgs("%USER%", "user", start).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?")).
		WithArgs("%USER%", "user", start, int64(20), int64(0)).
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow(int64(9), int64(1), "Root", "01000000001", "USER_SUSPENDED", "user", int64(5),
				[]byte(`{"status":"ACTIVE"}`), []byte(`{"status":"SUSPENDED"}`), nil, nil, at))

	items, total, err := NewAuditRepo(db).Query(context.Background(), model.AuditFilter{
		Page: 1, Limit: 20, Action: "USER", TargetType: model.TargetUser, StartDate: &start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one entry, got total=%d len=%d", total, len(items))
	}
	e := items[0]
	if e.OldValue["status"] != "ACTIVE" || e.NewValue["status"] != "SUSPENDED" {
		t.Errorf("unexpected snapshots %v -> %v", e.OldValue, e.NewValue)
	}
	if e.AdminName == nil || *e.AdminName != "Root" || e.TargetID == nil || *e.TargetID != 5 {
		t.Errorf("unexpected joined fields %+v", e)
	}
}

func TestAuditQueryByTarget(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.target_type=? AND a.target_id=?")).
		WithArgs("event", int64(3), int64(50)).
		WillReturnRows(sqlmock.NewRows(auditCols))

	items, err := NewAuditRepo(db).QueryByTarget(context.Background(), model.TargetEvent, 3, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", items)
	}
}

func TestStatsOverview(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"total", "today"}).AddRow(int64(10), int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM events")).WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"total", "today", "active"}).AddRow(int64(6), int64(1), int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY role")).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).AddRow("ADMIN", int64(2)).AddRow("USER", int64(8)))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("CONFIRMED", int64(4)))

	o, err := NewStatsRepo(db).Overview(context.Background(), day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Users.Total != 10 || o.Users.Today != 2 || o.Events.Active != 4 {
		t.Errorf("unexpected overview %+v", o)
	}
	if len(o.Users.ByRole) != 2 || o.Users.ByRole[0].Key != "ADMIN" {
		t.Errorf("unexpected byRole %v", o.Users.ByRole)
	}
}

func TestCredentialGetMissing(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT password_hash FROM admin_credentials")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))

	if _, err := NewCredentialRepo(db).GetPasswordHash(context.Background(), 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCredentialSetMissingUser(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_credentials")).
		WithArgs(int64(8), "hash").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	if err := NewCredentialRepo(db).SetPasswordHash(context.Background(), 8, "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	tests := map[string]string{
		"010":     "%010%",
		"_":       "%!_%",
		"50%_off": "%50!%!_off%",
		"hi!":     "%hi!!%",
	}
	for in, want := range tests {
		if got := containsPattern(in); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEventListSearchIsLiteral(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM events e WHERE e.title LIKE ? ESCAPE '!'")).
		WithArgs("%!_%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?")).
		WithArgs("%!_%", int64(20), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, total, err := NewEventRepo(db).List(context.Background(), model.EventFilter{Page: 1, Limit: 20, Search: "_"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected no matches, got %d/%d", total, len(items))
	}
}
