package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/timingle-admin/internal/model"
)

const eventColumns = "e.id,e.title,e.description,e.start_time,e.end_time,e.location,e.creator_id,u.name,u.phone,e.status,e.created_at,e.updated_at"

const eventFrom = " FROM events e LEFT JOIN users u ON u.id=e.creator_id"

// EventRepo reads events with their creator and cancels them.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

func scanEvent(s rowScanner) (*model.Event, error) {
	var e model.Event
	err := s.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.Location,
		&e.CreatorID, &e.CreatorName, &e.CreatorPhone, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID fetches an event and its creator's name and phone.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+eventColumns+eventFrom+" WHERE e.id=? LIMIT 1", id)
	e, err := scanEvent(row)
	return e, notFound(err)
}

// GetByIDForUpdate fetches an event and locks its row.
func (r *EventRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	row := conn(ctx, r.DB).QueryRowContext(ctx,
		"SELECT "+eventColumns+eventFrom+" WHERE e.id=? LIMIT 1 FOR UPDATE OF e", id)
	e, err := scanEvent(row)
	return e, notFound(err)
}

// UpdateStatus sets the event status.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx,
		"UPDATE events SET status=?, updated_at=CURRENT_TIMESTAMP(6) WHERE id=?", string(status), id)
	return affected(res, err)
}

// ListParticipants returns the participants of an event in join order.
func (r *EventRepo) ListParticipants(ctx context.Context, eventID uint64) ([]*model.Participant, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		"SELECT p.id,p.event_id,p.user_id,p.status,p.role,p.joined_at,u.name,u.phone FROM event_participants p LEFT JOIN users u ON u.id=p.user_id WHERE p.event_id=? ORDER BY p.joined_at, p.id",
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Participant{}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.Role, &p.JoinedAt, &p.UserName, &p.UserPhone); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// List returns one page of events matching f, newest first, and the total
// number of matches. Search matches the title as a substring.
func (r *EventRepo) List(ctx context.Context, f model.EventFilter) ([]*model.Event, int64, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "e.title LIKE ? ESCAPE '!'")
		args = append(args, containsPattern(s))
	}
	if f.Status != "" {
		where = append(where, "e.status=?")
		args = append(args, string(f.Status))
	}
	if f.CreatorID != 0 {
		where = append(where, "e.creator_id=?")
		args = append(args, f.CreatorID)
	}
	cond := whereClause(where)

	q := conn(ctx, r.DB)
	var total int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM events e"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+eventColumns+eventFrom+cond+" ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, model.Offset(f.Page, f.Limit))...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.Event, 0, f.Limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
