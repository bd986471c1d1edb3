package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/timingle-admin/internal/apperr"
	"github.com/iliyamo/timingle-admin/internal/model"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestIssueAndVerify(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewTokenService("test-secret", time.Hour).WithClock(fixedClock(t0))

	tok, err := svc.Issue(7, model.RoleSuperAdmin, "01000000007")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !tok.Exp.Equal(t0.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", t0.Add(time.Hour), tok.Exp)
	}

	p, err := svc.WithClock(fixedClock(t0.Add(59 * time.Minute))).Verify(tok.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if p.ID != 7 || p.Role != model.RoleSuperAdmin || p.Phone != "01000000007" {
		t.Errorf("unexpected principal %+v", p)
	}
}

func TestVerifyExpiredAfterOneHour(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewTokenService("test-secret", 0).WithClock(fixedClock(t0))
	if svc.TTL() != time.Hour {
		t.Fatalf("expected default ttl of one hour, got %v", svc.TTL())
	}
	tok, err := svc.Issue(7, model.RoleAdmin, "01000000007")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = svc.WithClock(fixedClock(t0.Add(time.Hour + time.Second))).Verify(tok.Token)
	if !errors.Is(err, apperr.ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	t0 := time.Now()
	svc := NewTokenService("test-secret", time.Hour).WithClock(fixedClock(t0))
	tok, err := svc.Issue(7, model.RoleAdmin, "01000000007")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other := NewTokenService("other-secret", time.Hour).WithClock(fixedClock(t0))
	if _, err := other.Verify(tok.Token); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential for wrong key, got %v", err)
	}

	parts := strings.Split(tok.Token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := svc.Verify(tampered); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential for tampered payload, got %v", err)
	}

	if _, err := svc.Verify("not-a-jwt"); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential for garbage, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := AdminClaims{
		Role: "SUPER_ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none failed: %v", err)
	}
	svc := NewTokenService("test-secret", time.Hour)
	if _, err := svc.Verify(raw); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("expected alg=none to be rejected, got %v", err)
	}
}

func TestVerifyRequiresNumericSubject(t *testing.T) {
	secret := []byte("test-secret")
	claims := AdminClaims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := NewTokenService("test-secret", time.Hour).Verify(raw); !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("expected non-numeric sub to be rejected, got %v", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !VerifyPassword(hash, "s3cret!") {
		t.Errorf("expected password to verify")
	}
	if VerifyPassword(hash, "admin123") {
		t.Errorf("expected wrong password to fail")
	}
	if VerifyPassword("", "") {
		t.Errorf("empty hash must never verify")
	}
}
