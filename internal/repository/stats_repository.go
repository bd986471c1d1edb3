package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/timingle-admin/internal/model"
)

// StatsRepo computes dashboard aggregates straight from the users and
// events tables.
type StatsRepo struct{ DB *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{DB: db} }

// Overview counts users and events in total, since dayStart, and grouped by
// role and status. Active events are PROPOSED or CONFIRMED.
func (r *StatsRepo) Overview(ctx context.Context, dayStart time.Time) (*model.Overview, error) {
	q := conn(ctx, r.DB)
	var o model.Overview
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(created_at>=?),0) FROM users", dayStart).
		Scan(&o.Users.Total, &o.Users.Today)
	if err != nil {
		return nil, err
	}
	err = q.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(created_at>=?),0), COALESCE(SUM(status IN ('PROPOSED','CONFIRMED')),0) FROM events", dayStart).
		Scan(&o.Events.Total, &o.Events.Today, &o.Events.Active)
	if err != nil {
		return nil, err
	}
	if o.Users.ByRole, err = countBy(ctx, q, "SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role"); err != nil {
		return nil, err
	}
	if o.Events.ByStatus, err = countBy(ctx, q, "SELECT status, COUNT(*) FROM events GROUP BY status ORDER BY status"); err != nil {
		return nil, err
	}
	return &o, nil
}

func countBy(ctx context.Context, q querier, query string) ([]model.CountBy, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CountBy{}
	for rows.Next() {
		var c model.CountBy
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailyUsers counts sign-ups per calendar day since the given instant,
// newest day first.
func (r *StatsRepo) DailyUsers(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		"SELECT DATE_FORMAT(created_at,'%Y-%m-%d') AS d, COUNT(*) FROM users WHERE created_at>=? GROUP BY d ORDER BY d DESC",
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DailyCount{}
	for rows.Next() {
		var c model.DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailyEvents counts created events per calendar day and status since the
// given instant, newest day first.
func (r *StatsRepo) DailyEvents(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx,
		"SELECT DATE_FORMAT(created_at,'%Y-%m-%d') AS d, status, COUNT(*) FROM events WHERE created_at>=? GROUP BY d, status ORDER BY d DESC, status",
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DailyCount{}
	for rows.Next() {
		var c model.DailyCount
		if err := rows.Scan(&c.Date, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
