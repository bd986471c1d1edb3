// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

import "github.com/iliyamo/timingle-admin/internal/model"

const (
	// AuditQueue carries one AuditRecordedEvent per committed ledger entry.
	AuditQueue = "admin.audit"
	// IncidentQueue carries AuditIncidentEvent messages raised when a ledger
	// append fails and the surrounding operation was rolled back.
	IncidentQueue = "admin.audit.incident"
)

// AuditRecordedEvent is published after the transaction holding an audit
// entry commits. It mirrors the stored entry so downstream consumers can
// archive or alert without querying the primary database.
type AuditRecordedEvent struct {
	EntryID    uint64         `json:"entry_id"`
	AdminID    uint64         `json:"admin_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   *uint64        `json:"target_id,omitempty"`
	OldValue   model.Snapshot `json:"old_value,omitempty"`
	NewValue   model.Snapshot `json:"new_value,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	RecordedAt string         `json:"recorded_at"`
}

// AuditIncidentEvent reports an action that was refused because its audit
// entry could not be written.
type AuditIncidentEvent struct {
	AdminID    uint64  `json:"admin_id"`
	Action     string  `json:"action"`
	TargetType string  `json:"target_type"`
	TargetID   *uint64 `json:"target_id,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
	Error      string  `json:"error"`
	OccurredAt string  `json:"occurred_at"`
}

// NewAuditRecorded converts a committed ledger entry into its broker message.
func NewAuditRecorded(e *model.AuditLogEntry, requestID string) AuditRecordedEvent {
	ev := AuditRecordedEvent{
		EntryID:    e.ID,
		AdminID:    e.AdminID,
		Action:     string(e.Action),
		TargetType: string(e.TargetType),
		TargetID:   e.TargetID,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		RequestID:  requestID,
		RecordedAt: e.CreatedAt.UTC().Format(timeLayout),
	}
	if e.IPAddress != nil {
		ev.IPAddress = *e.IPAddress
	}
	if e.UserAgent != nil {
		ev.UserAgent = *e.UserAgent
	}
	return ev
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
