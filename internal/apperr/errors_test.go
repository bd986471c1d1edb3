package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("load user: %w", NotFound("User"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound through wrapping, got %v", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Errorf("did not expect ErrForbidden")
	}
	if got := Message(err); got != "User not found" {
		t.Errorf("Expected message 'User not found', got %q", got)
	}
}

func TestStorageMessageHidesCause(t *testing.T) {
	err := Storage("update user status", errors.New("Error 1205: Lock wait timeout exceeded"))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage")
	}
	if got := Message(err); got != "Internal Server Error" {
		t.Errorf("storage cause leaked to client: %q", got)
	}
}

func TestAuditWriteErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("suspend user: %w", &AuditWriteError{Action: "USER_SUSPENDED", Err: cause})
	var ae *AuditWriteError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuditWriteError")
	}
	if ae.Action != "USER_SUSPENDED" {
		t.Errorf("unexpected action %q", ae.Action)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be reachable")
	}
	if got := Message(err); got != "Audit trail unavailable; operation was not applied" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestMessageForBareSentinels(t *testing.T) {
	cases := map[error]string{
		ErrUnauthenticated:   "Authorization header required",
		ErrExpiredToken:      "Token expired",
		ErrInvalidCredential: "Invalid or expired token",
		ErrForbidden:         "Forbidden",
		errors.New("boom"):   "Internal Server Error",
	}
	for err, want := range cases {
		if got := Message(err); got != want {
			t.Errorf("Message(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("Invalid role"), 400},
		{New(ErrInvalidTransition, "User is deleted"), 400},
		{New(ErrSelfDelete, "Cannot delete yourself"), 400},
		{ErrUnauthenticated, 401},
		{ErrExpiredToken, 401},
		{New(ErrInvalidCredential, "Invalid credentials or not an admin"), 401},
		{New(ErrForbidden, "Super Admin access required"), 403},
		{New(ErrAccountSuspended, "Account is suspended"), 403},
		{NotFound("Event"), 404},
		{Storage("list users", errors.New("boom")), 500},
		{&AuditWriteError{Action: "LOGIN", Err: errors.New("boom")}, 500},
		{errors.New("unclassified"), 500},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
