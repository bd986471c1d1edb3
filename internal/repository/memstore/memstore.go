// Package memstore is an in-process implementation of every store the
// services need. It backs APP_STORE=memory for local runs and the service
// tests. Transactions are serialized behind one lock and undone on error.
// Reads outside a transaction wait for the running one, so no reader sees
// a write that is later rolled back.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/repository"
)

type txKey struct{}

type memTx struct{ undo []func() }

// Store holds users, credentials, events, participants and the audit log.
type Store struct {
	mu  sync.RWMutex
	txm sync.RWMutex

	users        map[uint64]*model.User
	credentials  map[uint64]string
	events       map[uint64]*model.Event
	participants map[uint64][]*model.Participant
	audit        []*model.AuditLogEntry

	nextUser  uint64
	nextEvent uint64
	nextPart  uint64
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        map[uint64]*model.User{},
		credentials:  map[uint64]string{},
		events:       map[uint64]*model.Event{},
		participants: map[uint64][]*model.Participant{},
		now:          time.Now,
	}
}

// WithClock overrides the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// RunInTx runs fn with exclusive access to the store. Writes made through
// the context passed to fn are undone if fn returns an error or panics.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}
	s.txm.Lock()
	defer s.txm.Unlock()

	tx := &memTx{}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(tx)
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.rollback(tx)
		return err
	}
	return nil
}

func (s *Store) rollback(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
}

// write runs fn under the write lock. Outside a transaction it also takes
// the transaction lock so that it cannot interleave with one. fn returns
// the closure that reverses its change, or nil when nothing changed.
func (s *Store) write(ctx context.Context, fn func() (func(), error)) error {
	tx, inTx := ctx.Value(txKey{}).(*memTx)
	if !inTx {
		s.txm.Lock()
		defer s.txm.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	undo, err := fn()
	if err != nil {
		return err
	}
	if inTx && undo != nil {
		tx.undo = append(tx.undo, undo)
	}
	return nil
}

// rlock takes the read lock and returns its release. Outside a
// transaction it also waits for any running transaction to finish, so
// uncommitted writes are never visible to other readers.
func (s *Store) rlock(ctx context.Context) (unlock func()) {
	_, inTx := ctx.Value(txKey{}).(*memTx)
	if !inTx {
		s.txm.RLock()
	}
	s.mu.RLock()
	return func() {
		s.mu.RUnlock()
		if !inTx {
			s.txm.RUnlock()
		}
	}
}

// Seeding helpers. They are not transactional.

// AddUser stores u, assigning an ID and timestamps when unset, and returns
// the stored copy.
func (s *Store) AddUser(u model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUser++
		u.ID = s.nextUser
	} else if u.ID > s.nextUser {
		s.nextUser = u.ID
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Status == "" {
		u.Status = model.UserStatusActive
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	s.users[u.ID] = &u
	c := u
	return &c
}

// AddEvent stores e the same way AddUser stores users.
func (s *Store) AddEvent(e model.Event) *model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.nextEvent++
		e.ID = s.nextEvent
	} else if e.ID > s.nextEvent {
		s.nextEvent = e.ID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	if e.Status == "" {
		e.Status = model.EventStatusProposed
	}
	s.events[e.ID] = &e
	c := e
	return &c
}

// AddParticipant attaches userID to eventID.
func (s *Store) AddParticipant(eventID, userID uint64, status, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPart++
	s.participants[eventID] = append(s.participants[eventID], &model.Participant{
		ID: s.nextPart, EventID: eventID, UserID: userID,
		Status: status, Role: role, JoinedAt: s.now().UTC(),
	})
}

// AuditLen returns the number of ledger entries.
func (s *Store) AuditLen() int {
	defer s.rlock(context.Background())()
	return len(s.audit)
}

// Users

func (s *Store) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	defer s.rlock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

// GetByIDForUpdate behaves like GetByID; the transaction lock already
// serializes writers.
func (s *Store) GetByIDForUpdate(ctx context.Context, id uint64) (*model.User, error) {
	return s.GetByID(ctx, id)
}

func (s *Store) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	phone = strings.TrimSpace(phone)
	defer s.rlock(ctx)()
	for _, u := range s.users {
		if u.Phone == phone {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	return s.write(ctx, func() (func(), error) {
		u, ok := s.users[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		prev := *u
		u.Status = status
		u.UpdatedAt = s.now().UTC()
		return func() { *u = prev }, nil
	})
}

func (s *Store) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	return s.write(ctx, func() (func(), error) {
		u, ok := s.users[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		prev := *u
		u.Role = role
		u.UpdatedAt = s.now().UTC()
		return func() { *u = prev }, nil
	})
}

func (s *Store) List(ctx context.Context, f model.UserFilter) ([]*model.User, int64, error) {
	defer s.rlock(ctx)()
	search := strings.TrimSpace(f.Search)
	var matched []*model.User
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if search != "" && !containsFold(u.Phone, search) &&
			!containsPtr(u.Name, search) && !containsPtr(u.Email, search) {
			continue
		}
		c := *u
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})
	return page(matched, f.Page, f.Limit), int64(len(matched)), nil
}

// Credentials

func (s *Store) GetPasswordHash(ctx context.Context, userID uint64) (string, error) {
	defer s.rlock(ctx)()
	h, ok := s.credentials[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return h, nil
}

func (s *Store) SetPasswordHash(ctx context.Context, userID uint64, hash string) error {
	return s.write(ctx, func() (func(), error) {
		prev, had := s.credentials[userID]
		s.credentials[userID] = hash
		return func() {
			if had {
				s.credentials[userID] = prev
			} else {
				delete(s.credentials, userID)
			}
		}, nil
	})
}

// Events

// Events returns the event side of the store. Users and events share
// method names, so the event store is a separate view over the same data.
func (s *Store) Events() *EventView { return &EventView{s: s} }

// EventView implements the event store over a Store.
type EventView struct{ s *Store }

func (v *EventView) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	s := v.s
	defer s.rlock(ctx)()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.withCreator(e), nil
}

func (v *EventView) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	return v.GetByID(ctx, id)
}

func (v *EventView) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) error {
	s := v.s
	return s.write(ctx, func() (func(), error) {
		e, ok := s.events[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		prev := *e
		e.Status = status
		e.UpdatedAt = s.now().UTC()
		return func() { *e = prev }, nil
	})
}

func (v *EventView) ListParticipants(ctx context.Context, eventID uint64) ([]*model.Participant, error) {
	s := v.s
	defer s.rlock(ctx)()
	out := []*model.Participant{}
	for _, p := range s.participants[eventID] {
		c := *p
		if u, ok := s.users[p.UserID]; ok {
			c.UserName = u.Name
			phone := u.Phone
			c.UserPhone = &phone
		}
		out = append(out, &c)
	}
	return out, nil
}

func (v *EventView) List(ctx context.Context, f model.EventFilter) ([]*model.Event, int64, error) {
	s := v.s
	defer s.rlock(ctx)()
	search := strings.TrimSpace(f.Search)
	var matched []*model.Event
	for _, e := range s.events {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.CreatorID != 0 && (e.CreatorID == nil || *e.CreatorID != f.CreatorID) {
			continue
		}
		if search != "" && !containsFold(e.Title, search) {
			continue
		}
		matched = append(matched, s.withCreator(e))
	}
	sort.Slice(matched, func(i, j int) bool {
		return newer(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})
	return page(matched, f.Page, f.Limit), int64(len(matched)), nil
}

// withCreator copies e and fills the creator join. Callers hold mu.
func (s *Store) withCreator(e *model.Event) *model.Event {
	c := *e
	c.CreatorName, c.CreatorPhone = nil, nil
	if e.CreatorID != nil {
		if u, ok := s.users[*e.CreatorID]; ok {
			c.CreatorName = u.Name
			phone := u.Phone
			c.CreatorPhone = &phone
		}
	}
	return &c
}

// Audit

// Append adds e to the ledger. Snapshots are stored in their JSON form so
// reads return the same shapes the SQL store returns.
func (s *Store) Append(ctx context.Context, e *model.AuditLogEntry) error {
	oldV, err := normalize(e.OldValue)
	if err != nil {
		return err
	}
	newV, err := normalize(e.NewValue)
	if err != nil {
		return err
	}
	return s.write(ctx, func() (func(), error) {
		c := *e
		c.ID = uint64(len(s.audit) + 1)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now().UTC()
		}
		c.OldValue, c.NewValue = oldV, newV
		c.AdminName, c.AdminPhone = nil, nil
		s.audit = append(s.audit, &c)
		e.ID, e.CreatedAt = c.ID, c.CreatedAt
		n := len(s.audit) - 1
		return func() { s.audit = s.audit[:n] }, nil
	})
}

func (s *Store) Query(ctx context.Context, f model.AuditFilter) ([]*model.AuditLogEntry, int64, error) {
	defer s.rlock(ctx)()
	action := strings.TrimSpace(f.Action)
	var matched []*model.AuditLogEntry
	for _, e := range s.audit {
		if action != "" && !containsFold(string(e.Action), action) {
			continue
		}
		if f.TargetType != "" && e.TargetType != f.TargetType {
			continue
		}
		if f.AdminID != 0 && e.AdminID != f.AdminID {
			continue
		}
		if f.StartDate != nil && e.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && e.CreatedAt.After(*f.EndDate) {
			continue
		}
		matched = append(matched, s.withAdmin(e))
	}
	sortEntries(matched)
	return page(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (s *Store) QueryByTarget(ctx context.Context, t model.TargetType, id uint64, limit int) ([]*model.AuditLogEntry, error) {
	defer s.rlock(ctx)()
	out := []*model.AuditLogEntry{}
	for _, e := range s.audit {
		if e.TargetType == t && e.TargetID != nil && *e.TargetID == id {
			out = append(out, s.withAdmin(e))
		}
	}
	sortEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) withAdmin(e *model.AuditLogEntry) *model.AuditLogEntry {
	c := *e
	if u, ok := s.users[e.AdminID]; ok {
		c.AdminName = u.Name
		phone := u.Phone
		c.AdminPhone = &phone
	}
	return &c
}

func sortEntries(es []*model.AuditLogEntry) {
	sort.Slice(es, func(i, j int) bool {
		return newer(es[i].CreatedAt, es[i].ID, es[j].CreatedAt, es[j].ID)
	})
}

// Stats

func (s *Store) Overview(ctx context.Context, dayStart time.Time) (*model.Overview, error) {
	defer s.rlock(ctx)()
	var o model.Overview
	roles := map[string]int64{}
	for _, u := range s.users {
		o.Users.Total++
		if !u.CreatedAt.Before(dayStart) {
			o.Users.Today++
		}
		roles[string(u.Role)]++
	}
	statuses := map[string]int64{}
	for _, e := range s.events {
		o.Events.Total++
		if !e.CreatedAt.Before(dayStart) {
			o.Events.Today++
		}
		if e.Status == model.EventStatusProposed || e.Status == model.EventStatusConfirmed {
			o.Events.Active++
		}
		statuses[string(e.Status)]++
	}
	o.Users.ByRole = counts(roles)
	o.Events.ByStatus = counts(statuses)
	return &o, nil
}

func (s *Store) DailyUsers(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	defer s.rlock(ctx)()
	days := map[string]int64{}
	for _, u := range s.users {
		if !u.CreatedAt.Before(since) {
			days[u.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}
	out := []model.DailyCount{}
	for d, n := range days {
		out = append(out, model.DailyCount{Date: d, Count: n})
	}
	sortDaily(out)
	return out, nil
}

func (s *Store) DailyEvents(ctx context.Context, since time.Time) ([]model.DailyCount, error) {
	defer s.rlock(ctx)()
	type key struct{ day, status string }
	days := map[key]int64{}
	for _, e := range s.events {
		if !e.CreatedAt.Before(since) {
			days[key{e.CreatedAt.UTC().Format(time.DateOnly), string(e.Status)}]++
		}
	}
	out := []model.DailyCount{}
	for k, n := range days {
		out = append(out, model.DailyCount{Date: k.day, Status: k.status, Count: n})
	}
	sortDaily(out)
	return out, nil
}

func sortDaily(out []model.DailyCount) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Status < out[j].Status
	})
}

func counts(m map[string]int64) []model.CountBy {
	out := make([]model.CountBy, 0, len(m))
	for k, n := range m {
		out = append(out, model.CountBy{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func normalize(s model.Snapshot) (model.Snapshot, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out model.Snapshot
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func newer(at time.Time, id uint64, bt time.Time, bid uint64) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return id > bid
}

// containsFold is a case-insensitive substring match, like LIKE under the
// default MySQL collation.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func containsPtr(p *string, sub string) bool {
	return p != nil && containsFold(*p, sub)
}

func page[T any](items []T, pageNo, limit int) []T {
	if limit <= 0 {
		return items
	}
	off := model.Offset(pageNo, limit)
	if off >= len(items) {
		return []T{}
	}
	end := off + limit
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}
