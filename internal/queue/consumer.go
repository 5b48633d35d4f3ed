package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/notify"
)

// Consumer drains the confirmation queue and appends every rendered
// email to an outbox file.  Messages that cannot be decoded or written
// are rejected without requeue so one bad payload cannot stall the queue.
type Consumer struct {
	url    string
	queue  string
	outbox string
	log    zerolog.Logger

	mu sync.Mutex
}

func NewConsumer(url, queue, outbox string, log zerolog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Consumer{
		url:    url,
		queue:  queue,
		outbox: outbox,
		log:    log.With().Str("component", "confirmation-consumer").Logger(),
	}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff (capped at 30s) whenever the broker connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("handle confirmation failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle renders one published confirmation into the outbox.
func (c *Consumer) Handle(body []byte) error {
	ev, err := decodeEvent(body)
	if err != nil {
		return err
	}
	email := notify.Render(ev.Message)

	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.outbox); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir outbox: %w", err)
		}
	}
	f, err := os.OpenFile(c.outbox, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: %s\n", ev.Message.ID)
	fmt.Fprintf(&b, "Date: %s\n", ev.Message.CreatedAt.UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "To: %s\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\n\n", email.Subject)
	b.WriteString(email.Body)
	b.WriteString("\n---\n")
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	c.log.Info().
		Str("message_id", ev.Message.ID).
		Uint64("reservation_id", ev.Message.Confirmation.ReservationID).
		Msg("confirmation written to outbox")
	return nil
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
