package queue

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/timingle-admin/internal/model"
)

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func TestHandleAuditMessage(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("amqp://unused", dir, quietLogger())

	target := uint64(5)
	ip := "10.0.0.1"
	ev := NewAuditRecorded(&model.AuditLogEntry{
		ID: 11, AdminID: 1, Action: model.ActionUserSuspended, TargetType: model.TargetUser, TargetID: &target,
		IPAddress: &ip, CreatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}, "req-9")
	body, _ := json.Marshal(ev)

	if err := c.handleMessage(AuditQueue, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := c.handleMessage(AuditQueue, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two appended lines, got %d", len(lines))
	}
	for _, want := range []string{"USER_SUSPENDED", "entry_id=11", "target=user/5", "request_id=req-9", "2026-05-01T09:00:00.000Z"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q missing %q", lines[0], want)
		}
	}
}

func TestHandleIncidentMessage(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("amqp://unused", dir, quietLogger())
	body, _ := json.Marshal(AuditIncidentEvent{AdminID: 2, Action: "LOGIN", TargetType: "system", Error: "disk full", OccurredAt: "now"})

	if err := c.handleMessage(IncidentQueue, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "audit-incident.log"))
	if !strings.Contains(string(raw), "AUDIT WRITE FAILED LOGIN") || !strings.Contains(string(raw), "target=system/-") {
		t.Errorf("unexpected incident line %q", raw)
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	c := NewConsumer("amqp://unused", t.TempDir(), quietLogger())
	if err := c.handleMessage(AuditQueue, []byte("{not json")); err == nil {
		t.Errorf("expected unmarshal error")
	}
	if err := c.handleMessage("other", []byte("{}")); err == nil {
		t.Errorf("expected unknown queue error")
	}
}
