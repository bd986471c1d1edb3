package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/authz"
	"github.com/iliyamo/timingle-admin/internal/model"
	"github.com/iliyamo/timingle-admin/internal/repository"
	"github.com/iliyamo/timingle-admin/internal/utils"
)

// TokenIssuer mints admin tokens. *utils.TokenService implements it.
type TokenIssuer interface {
	Issue(principalID uint64, role model.Role, phone string) (utils.AccessToken, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// AuthService authenticates admins and records LOGIN and LOGOUT.
type AuthService struct {
	users  UserStore
	creds  CredentialStore
	tokens TokenIssuer
	check  PasswordChecker
	ledger *AuditLedger
}

// NewAuthService wires the service. check defaults to bcrypt verification.
func NewAuthService(users UserStore, creds CredentialStore, tokens TokenIssuer, check PasswordChecker, ledger *AuditLedger) *AuthService {
	if check == nil {
		check = utils.VerifyPassword
	}
	return &AuthService{users: users, creds: creds, tokens: tokens, check: check, ledger: ledger}
}

// Login verifies phone and password for an ADMIN or SUPER_ADMIN account.
// Unknown phones, non-admin accounts, deleted accounts and wrong passwords
// all fail the same way. A suspended admin with the right password gets
// ErrAccountSuspended. No token is issued if the LOGIN entry cannot be
// written.
func (s *AuthService) Login(ctx context.Context, phone, password string, meta model.RequestMeta) (*LoginResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, apperr.Validation("Phone and password are required")
	}
	invalid := apperr.New(apperr.ErrInvalidCredential, "Invalid credentials or not an admin")

	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid
		}
		return nil, apperr.Storage("load admin", err)
	}
	if !u.Role.IsAdmin() || u.Status == model.UserStatusDeleted {
		return nil, invalid
	}
	hash, err := s.creds.GetPasswordHash(ctx, u.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Storage("load credential", err)
	}
	if !s.check(hash, password) {
		return nil, invalid
	}
	if u.Status == model.UserStatusSuspended {
		return nil, apperr.New(apperr.ErrAccountSuspended, "Account is suspended")
	}

	tok, err := s.tokens.Issue(u.ID, u.Role, u.Phone)
	if err != nil {
		return nil, apperr.Storage("issue token", err)
	}
	p := model.Principal{ID: u.ID, Role: u.Role, Phone: u.Phone}
	if err := s.ledger.Record(ctx, meta, newEntry(p, model.ActionLogin, model.TargetSystem, nil, meta)); err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

// Me returns the current record of the authenticated admin.
func (s *AuthService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	if err := authz.RequireAdmin(p); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, userLookup(err)
	}
	return u, nil
}

// Logout records LOGOUT. Tokens are stateless, so the client discards its
// copy and the token stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context, p model.Principal, meta model.RequestMeta) error {
	if err := authz.RequireAdmin(p); err != nil {
		return err
	}
	return s.ledger.Record(ctx, meta, newEntry(p, model.ActionLogout, model.TargetSystem, nil, meta))
}
