package utils // package utils provides helpers for token issuing and password hashing

import (
	"errors"  // errors classifies jwt parse failures
	"strconv" // strconv encodes the numeric principal id as the sub claim
	"time"    // time utilities for expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/model"
)

// DefaultAccessTTL is the lifetime of an admin access token.
const DefaultAccessTTL = time.Hour

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AdminClaims is the payload of an admin access token. The role and phone
// are captured at issuance; a later role change does not alter tokens that
// are already out.
type AdminClaims struct {
	Role  string `json:"role"`
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 admin tokens. It holds no state
// besides its key and clock, so verification is side-effect free.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService. A non-positive ttl falls back to
// DefaultAccessTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of s that reads time from now. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue builds and signs a token for the given principal.
func (s *TokenService) Issue(principalID uint64, role model.Role, phone string) (AccessToken, error) {
	iat := s.now().UTC()
	exp := iat.Add(s.ttl)
	claims := AdminClaims{
		Role:  string(role),
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(principalID, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify parses raw and returns the principal it asserts. It fails with
// apperr.ErrExpiredToken past expiry and apperr.ErrInvalidCredential for
// anything else: malformed input, a bad signature or a non-HMAC algorithm.
func (s *TokenService) Verify(raw string) (model.Principal, error) {
	var claims AdminClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, apperr.ErrExpiredToken
		}
		return model.Principal{}, apperr.ErrInvalidCredential
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return model.Principal{}, apperr.ErrInvalidCredential
	}
	return model.Principal{ID: id, Role: model.Role(claims.Role), Phone: claims.Phone}, nil
}
