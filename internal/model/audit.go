package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction names an administrative action. The set is open-ended; the
// constants below are the ones this service emits.
type AuditAction string

const (
	ActionUserViewed      AuditAction = "USER_VIEWED"
	ActionUserSuspended   AuditAction = "USER_SUSPENDED"
	ActionUserActivated   AuditAction = "USER_ACTIVATED"
	ActionUserDeleted     AuditAction = "USER_DELETED"
	ActionUserRoleChanged AuditAction = "USER_ROLE_CHANGED"
	ActionEventViewed     AuditAction = "EVENT_VIEWED"
	ActionEventDeleted    AuditAction = "EVENT_DELETED"
	ActionLogin           AuditAction = "LOGIN"
	ActionLogout          AuditAction = "LOGOUT"
)

// TargetType is the kind of entity an audit entry refers to.
type TargetType string

const (
	TargetUser   TargetType = "user"
	TargetEvent  TargetType = "event"
	TargetSystem TargetType = "system"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetUser || t == TargetEvent || t == TargetSystem
}

// Snapshot is an opaque before/after image. The ledger never interprets its
// shape; it is stored as JSON and returned verbatim.
type Snapshot map[string]any

// Value implements driver.Valuer. A nil snapshot is stored as SQL NULL.
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns.
func (s *Snapshot) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("snapshot: unsupported source type %T", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*s = nil
		return nil
	}
	m := Snapshot{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	*s = m
	return nil
}

// AuditLogEntry mirrors a row of `audit_logs`. Entries are immutable once
// written. AdminID is always the acting principal, never the affected user.
//
// AdminName and AdminPhone are read-side fields filled from a left join on
// users; they are never written.
type AuditLogEntry struct {
	ID         uint64      `json:"id"`
	AdminID    uint64      `json:"adminId"`
	AdminName  *string     `json:"adminName,omitempty"`
	AdminPhone *string     `json:"adminPhone,omitempty"`
	Action     AuditAction `json:"action"`
	TargetType TargetType  `json:"targetType"`
	TargetID   *uint64     `json:"targetId"`
	OldValue   Snapshot    `json:"oldValue"`
	NewValue   Snapshot    `json:"newValue"`
	IPAddress  *string     `json:"ipAddress"`
	UserAgent  *string     `json:"userAgent"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// AuditFilter narrows a ledger query. Predicates are combined with AND.
// Action matches as a substring; the rest match exactly. StartDate and
// EndDate bound createdAt inclusively.
type AuditFilter struct {
	Page       int
	Limit      int
	Action     string
	TargetType TargetType
	AdminID    uint64
	StartDate  *time.Time
	EndDate    *time.Time
}
