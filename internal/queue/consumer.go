package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer mirrors the audit stream into append-only log files:
// admin.audit to audit.log and admin.audit.incident to audit-incident.log,
// one line per message.
type Consumer struct {
	url string
	dir string
	log *log.Logger
	mu  sync.Mutex
}

func NewConsumer(url, dir string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.New("queue")
	}
	return &Consumer{url: url, dir: dir, log: logger}
}

// Run connects, consumes both queues and reconnects with backoff until ctx
// is cancelled. Messages that cannot be handled are rejected without
// requeue so the consumer keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warnf("audit-consumer: set QoS failed: %v", err)
	}

	audit, err := c.consume(ch, AuditQueue)
	if err != nil {
		return err
	}
	incidents, err := c.consume(ch, IncidentQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-audit:
			queue = AuditQueue
		case d, ok = <-incidents:
			queue = IncidentQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handleMessage(queue, d.Body); err != nil {
			c.log.Errorf("audit-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

// handleMessage formats one message and appends it to the queue's file.
func (c *Consumer) handleMessage(queue string, body []byte) error {
	var (
		file string
		line string
	)
	switch queue {
	case AuditQueue:
		var ev AuditRecordedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		file = "audit.log"
		line = fmt.Sprintf("[%s] %s | entry_id=%d | admin_id=%d | target=%s/%s | ip=%q | request_id=%s\n",
			ev.RecordedAt, ev.Action, ev.EntryID, ev.AdminID, ev.TargetType, targetID(ev.TargetID), ev.IPAddress, ev.RequestID)
	case IncidentQueue:
		var ev AuditIncidentEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		file = "audit-incident.log"
		line = fmt.Sprintf("[%s] AUDIT WRITE FAILED %s | admin_id=%d | target=%s/%s | request_id=%s | error=%q\n",
			ev.OccurredAt, ev.Action, ev.AdminID, ev.TargetType, targetID(ev.TargetID), ev.RequestID, ev.Error)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func targetID(id *uint64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
