// Package notify delivers booking confirmations off the request path.
// The Dispatcher hands each confirmation to a Sender on its own goroutine
// with a bounded timeout; delivery failures are logged and counted but
// never reported back to the booking that triggered them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/metrics"
	"github.com/iliyamo/booktable/internal/model"
)

// Message is one confirmation addressed to a customer.
type Message struct {
	ID           string                    `json:"id"`
	To           string                    `json:"to"`
	Confirmation model.BookingConfirmation `json:"confirmation"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// Sender delivers a message to a backend (a broker, a log, a mail relay).
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Dispatcher implements ports.ConfirmationDispatcher.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher that gives each delivery at most
// timeout to complete.
func NewDispatcher(sender Sender, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		log:     log.With().Str("component", "notify").Logger(),
		now:     time.Now,
	}
}

// Dispatch returns immediately.  The delivery context keeps the values of
// ctx but not its cancellation, so a finished HTTP request does not abort
// the delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, to string, c model.BookingConfirmation) {
	if to == "" {
		d.log.Warn().Uint64("reservation_id", c.ReservationID).Msg("confirmation skipped: no recipient")
		metrics.ObserveNotification("skipped", 0)
		return
	}
	msg := Message{
		ID:           uuid.NewString(),
		To:           to,
		Confirmation: c,
		CreatedAt:    d.now().UTC(),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		start := time.Now()
		err := d.send(dctx, msg)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			metrics.ObserveNotification("failed", elapsed)
			d.log.Error().Err(err).
				Str("message_id", msg.ID).
				Uint64("reservation_id", c.ReservationID).
				Msg("confirmation delivery failed")
			return
		}
		metrics.ObserveNotification("sent", elapsed)
		d.log.Debug().Str("message_id", msg.ID).Uint64("reservation_id", c.ReservationID).Msg("confirmation delivered")
	}()
}

func (d *Dispatcher) send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sender panic: %v", p)
		}
	}()
	return d.sender.Send(ctx, msg)
}

// Wait blocks until every dispatched delivery has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// LogSender writes rendered confirmations to the log.  It is the delivery
// backend when no broker is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "notify.log").Logger()}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := Render(m)
	s.log.Info().
		Str("message_id", m.ID).
		Str("to", email.To).
		Str("subject", email.Subject).
		Uint64("reservation_id", m.Confirmation.ReservationID).
		Msg("booking confirmation")
	return nil
}
