package service

import (
	"context"
	"errors"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/repository"
)

// EventService lists events, shows their detail and cancels them.
type EventService struct {
	events EventStore
	ledger *AuditLedger
}

func NewEventService(events EventStore, ledger *AuditLedger) *EventService {
	return &EventService{events: events, ledger: ledger}
}

// List returns one page of events with their creator. Not audited.
func (s *EventService) List(ctx context.Context, p model.Principal, f model.EventFilter) ([]*model.Event, model.Pagination, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, model.Pagination{}, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, model.Pagination{}, apperr.Validation("Invalid status")
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	items, total, err := s.events.List(ctx, f)
	if err != nil {
		return nil, model.Pagination{}, apperr.Storage("list events", err)
	}
	return items, model.NewPagination(f.Page, f.Limit, total), nil
}

// Get returns an event with its participants and records EVENT_VIEWED.
func (s *EventService) Get(ctx context.Context, p model.Principal, id uint64, meta model.RequestMeta) (*model.EventDetail, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, eventLookup(err)
	}
	parts, err := s.events.ListParticipants(ctx, id)
	if err != nil {
		return nil, apperr.Storage("list participants", err)
	}
	if err := s.ledger.Record(ctx, meta, newEntry(p, model.ActionEventViewed, model.TargetEvent, idPtr(id), meta)); err != nil {
		return nil, err
	}
	return &model.EventDetail{Event: *ev, Participants: parts}, nil
}

// Delete cancels an event. Cancelling an already canceled event changes
// nothing and records nothing; changed reports which case happened.
func (s *EventService) Delete(ctx context.Context, p model.Principal, id uint64, meta model.RequestMeta) (changed bool, err error) {
	if err := authz.RequireAdmin(p); err != nil {
		return false, err
	}
	entry, err := s.ledger.Apply(ctx, meta, func(ctx context.Context) (*model.AuditLogEntry, error) {
		ev, err := s.events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, eventLookup(err)
		}
		if ev.Status == model.EventStatusCanceled {
			return nil, nil
		}
		if err := s.events.UpdateStatus(ctx, id, model.EventStatusCanceled); err != nil {
			return nil, eventLookup(err)
		}
		e := newEntry(p, model.ActionEventDeleted, model.TargetEvent, idPtr(id), meta)
		e.OldValue = model.Snapshot{"status": string(ev.Status), "event": ev}
		e.NewValue = model.Snapshot{"status": string(model.EventStatusCanceled)}
		return e, nil
	})
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

func eventLookup(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Event")
	}
	return apperr.Storage("event store", err)
}
