// Package authz is the authorization gate in front of every sensitive
// operation. It turns a bearer credential into a Principal and enforces role
// membership. Decisions are made per call; nothing is cached.
package authz

import (
	"strings"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/model"
)

// Verifier checks a raw bearer token. *utils.TokenService implements it.
type Verifier interface {
	Verify(raw string) (model.Principal, error)
}

// Gate resolves Authorization headers into admin principals.
type Gate struct {
	tokens Verifier
}

// NewGate builds a Gate backed by the given verifier.
func NewGate(tokens Verifier) *Gate {
	return &Gate{tokens: tokens}
}

// RequireAdmin validates an Authorization header value and returns the admin
// principal it carries. It fails with apperr.ErrUnauthenticated when the
// header is missing or not a bearer credential, with the verifier's error
// (ErrInvalidCredential / ErrExpiredToken) when the token is rejected, and
// with ErrForbidden when the role is not ADMIN or SUPER_ADMIN.
func (g *Gate) RequireAdmin(header string) (model.Principal, error) {
	raw, ok := bearer(header)
	if !ok {
		return model.Principal{}, apperr.ErrUnauthenticated
	}
	p, err := g.tokens.Verify(raw)
	if err != nil {
		return model.Principal{}, err
	}
	if err := RequireAdmin(p); err != nil {
		return model.Principal{}, err
	}
	return p, nil
}

// RequireAdmin rejects principals whose role is not ADMIN or SUPER_ADMIN.
func RequireAdmin(p model.Principal) error {
	if !p.Role.IsAdmin() {
		return apperr.New(apperr.ErrForbidden, "Admin access required")
	}
	return nil
}

// RequireSuperAdmin rejects principals whose role is not SUPER_ADMIN.
func RequireSuperAdmin(p model.Principal) error {
	if p.Role != model.RoleSuperAdmin {
		return apperr.New(apperr.ErrForbidden, "Super Admin access required")
	}
	return nil
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
