package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// SendTimeout bounds one delivery attempt, broker dial included.
	SendTimeout = 3 * time.Second
	bufferSize  = 256
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
	ErrBufferFull      = errors.New("publish buffer full")
)

type outgoing struct {
	queue string
	body  []byte
}

// Publisher sends JSON messages to durable queues on the default exchange.
// Publish only enqueues; a single goroutine delivers from a bounded buffer,
// so callers never wait on the broker. The connection is opened on first
// use and reopened after it drops.
type Publisher struct {
	url string
	log *log.Logger

	out  chan outgoing
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// NewPublisher starts the delivery goroutine. Call Close to stop it.
func NewPublisher(url string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New("queue")
	}
	p := &Publisher{
		url:      url,
		log:      logger,
		out:      make(chan outgoing, bufferSize),
		done:     make(chan struct{}),
		declared: map[string]bool{},
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish marshals v and queues it for delivery to the named queue. It
// returns ErrBufferFull instead of blocking when the broker falls behind.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case p.out <- outgoing{queue: queue, body: body}:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case m := <-p.out:
			ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
			if err := p.send(ctx, m); err != nil {
				p.log.Warnj(log.JSON{"event": "audit_publish_failed", "queue": m.queue, "error": err.Error()})
			}
			cancel()
		}
	}
}

// send delivers one message as a persistent JSON publishing.
func (p *Publisher) send(ctx context.Context, m outgoing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	if !p.declared[m.queue] {
		// Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(m.queue, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("queue declare: %w", err)
		}
		p.declared[m.queue] = true
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         m.body,
	}
	if err := ch.PublishWithContext(ctx, "", m.queue, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing if needed. The dial and the AMQP
// handshake are bounded by SendTimeout or the ctx deadline, whichever is
// sooner. Callers hold mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout(ctx))})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func dialTimeout(ctx context.Context) time.Duration {
	d := SendTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d {
			d = left
		}
	}
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = map[string]bool{}
}

// Ping opens and closes a separate connection so the health probe never
// waits behind a delivery in progress.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout(ctx))})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	return conn.Close()
}

// Close stops delivery and releases the broker connection. Messages still
// buffered are dropped.
func (p *Publisher) Close() error {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
