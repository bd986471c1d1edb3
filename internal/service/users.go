package service

import (
	"context"
	"errors"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/repository"
)

// UserService lists users and applies the audited status, role and
// soft-delete mutations.
type UserService struct {
	users  UserStore
	ledger *AuditLedger
}

func NewUserService(users UserStore, ledger *AuditLedger) *UserService {
	return &UserService{users: users, ledger: ledger}
}

// List returns one page of users. Listing is not audited.
func (s *UserService) List(ctx context.Context, p model.Principal, f model.UserFilter) ([]*model.User, model.Pagination, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, model.Pagination{}, err
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, model.Pagination{}, apperr.Validation("Invalid role")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, model.Pagination{}, apperr.Validation("Invalid status")
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	items, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, model.Pagination{}, apperr.Storage("list users", err)
	}
	return items, model.NewPagination(f.Page, f.Limit, total), nil
}

// Get returns one user and records a USER_VIEWED entry. The record is not
// returned if the entry cannot be written.
func (s *UserService) Get(ctx context.Context, p model.Principal, id uint64, meta model.RequestMeta) (*model.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookup(err)
	}
	if err := s.ledger.Record(ctx, meta, newEntry(p, model.ActionUserViewed, model.TargetUser, idPtr(id), meta)); err != nil {
		return nil, err
	}
	return u, nil
}

// SetStatus activates or suspends a user. Setting the current value again
// is still applied and recorded.
func (s *UserService) SetStatus(ctx context.Context, p model.Principal, id uint64, status model.UserStatus, meta model.RequestMeta) (model.UserStatus, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return "", err
	}
	if !status.Settable() {
		return "", apperr.Validation("Invalid status. Use ACTIVE or SUSPENDED")
	}
	_, err := s.ledger.Apply(ctx, meta, func(ctx context.Context) (*model.AuditLogEntry, error) {
		u, err := s.loadMutable(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdateStatus(ctx, id, status); err != nil {
			return nil, userLookup(err)
		}
		action := model.ActionUserActivated
		if status == model.UserStatusSuspended {
			action = model.ActionUserSuspended
		}
		e := newEntry(p, action, model.TargetUser, idPtr(id), meta)
		e.OldValue = model.Snapshot{"status": string(u.Status)}
		e.NewValue = model.Snapshot{"status": string(status)}
		return e, nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// ChangeRole sets a user's role. Only SUPER_ADMIN may do this.
func (s *UserService) ChangeRole(ctx context.Context, p model.Principal, id uint64, role model.Role, meta model.RequestMeta) (model.Role, error) {
	if err := authz.RequireSuperAdmin(p); err != nil {
		return "", err
	}
	if !role.Valid() {
		return "", apperr.Validation("Invalid role")
	}
	_, err := s.ledger.Apply(ctx, meta, func(ctx context.Context) (*model.AuditLogEntry, error) {
		u, err := s.loadMutable(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdateRole(ctx, id, role); err != nil {
			return nil, userLookup(err)
		}
		e := newEntry(p, model.ActionUserRoleChanged, model.TargetUser, idPtr(id), meta)
		e.OldValue = model.Snapshot{"role": string(u.Role)}
		e.NewValue = model.Snapshot{"role": string(role)}
		return e, nil
	})
	if err != nil {
		return "", err
	}
	return role, nil
}

// Delete soft-deletes a user by setting status DELETED. Only SUPER_ADMIN
// may do this and never on their own account. The old value keeps the full
// record as it was before deletion.
func (s *UserService) Delete(ctx context.Context, p model.Principal, id uint64, meta model.RequestMeta) error {
	if err := authz.RequireSuperAdmin(p); err != nil {
		return err
	}
	if id == p.ID {
		return apperr.New(apperr.ErrSelfDelete, "Cannot delete yourself")
	}
	_, err := s.ledger.Apply(ctx, meta, func(ctx context.Context) (*model.AuditLogEntry, error) {
		u, err := s.loadMutable(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdateStatus(ctx, id, model.UserStatusDeleted); err != nil {
			return nil, userLookup(err)
		}
		e := newEntry(p, model.ActionUserDeleted, model.TargetUser, idPtr(id), meta)
		e.OldValue = model.Snapshot{"status": string(u.Status), "user": u}
		e.NewValue = model.Snapshot{"status": string(model.UserStatusDeleted)}
		return e, nil
	})
	return err
}

// loadMutable locks the user row and refuses changes to deleted accounts.
func (s *UserService) loadMutable(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, userLookup(err)
	}
	if u.Status == model.UserStatusDeleted {
		return nil, apperr.New(apperr.ErrInvalidTransition, "User is deleted")
	}
	return u, nil
}

func userLookup(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User")
	}
	return apperr.Storage("user store", err)
}
