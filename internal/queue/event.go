// Package queue moves booking confirmations through RabbitMQ.  The
// Publisher is a notify.Sender; the Consumer drains the queue and writes
// each rendered confirmation email to an outbox file.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/booktable/internal/notify"
)

// DefaultQueue is the durable queue confirmations are published to.
const DefaultQueue = "booking.confirmations"

// eventVersion is bumped whenever the payload changes incompatibly.
const eventVersion = 1

// ConfirmationEvent is the message body published for every confirmed
// booking.  It carries everything the consumer needs to render the email
// without querying the database.
type ConfirmationEvent struct {
	Version int            `json:"version"`
	Message notify.Message `json:"message"`
}

func encodeEvent(m notify.Message) ([]byte, error) {
	return json.Marshal(ConfirmationEvent{Version: eventVersion, Message: m})
}

func decodeEvent(body []byte) (ConfirmationEvent, error) {
	var ev ConfirmationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Version != eventVersion {
		return ev, fmt.Errorf("unsupported event version %d", ev.Version)
	}
	if ev.Message.To == "" {
		return ev, fmt.Errorf("event %s has no recipient", ev.Message.ID)
	}
	return ev, nil
}
