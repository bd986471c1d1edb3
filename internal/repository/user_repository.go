package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/timingle-admin/internal/model"
)

const userColumns = "id,phone,name,email,profile_image_url,region,timezone,language,role,status,created_at,updated_at"

// UserRepo reads users and changes their status and role columns.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Phone, &u.Name, &u.Email, &u.ProfileImageURL, &u.Region,
		&u.Timezone, &u.Language, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	u, err := scanUser(row)
	return u, notFound(err)
}

// GetByIDForUpdate fetches a user and locks the row until the surrounding
// transaction ends.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.User, error) {
	row := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1 FOR UPDATE", id)
	u, err := scanUser(row)
	return u, notFound(err)
}

// GetByPhone fetches a user by trimmed phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	row := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone=? LIMIT 1", strings.TrimSpace(phone))
	u, err := scanUser(row)
	return u, notFound(err)
}

// UpdateStatus sets the lifecycle status.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		"UPDATE users SET status=?, updated_at=CURRENT_TIMESTAMP(6) WHERE id=?", string(status), id)
	return affected(res, err)
}

// UpdateRole sets the role.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		"UPDATE users SET role=?, updated_at=CURRENT_TIMESTAMP(6) WHERE id=?", string(role), id)
	return affected(res, err)
}

// List returns one page of users matching f, newest first, and the total
// number of matches. Search matches phone, name or email as a substring.
func (r *UserRepo) List(ctx context.Context, f model.UserFilter) ([]*model.User, int64, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		like := containsPattern(s)
		where = append(where, "(phone LIKE ? ESCAPE '!' OR name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!')")
		args = append(args, like, like, like)
	}
	if f.Role != "" {
		where = append(where, "role=?")
		args = append(args, string(f.Role))
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	cond := whereClause(where)

	q := conn(ctx, r.DB)
	var total int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+cond+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, model.Offset(f.Page, f.Limit))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.User, 0, f.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// affected turns an UPDATE that matched nothing into ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
