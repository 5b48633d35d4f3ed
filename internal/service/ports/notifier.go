package ports

import (
	"context"

	"github.com/iliyamo/booktable/internal/model"
)

// ConfirmationDispatcher submits a booking confirmation for asynchronous
// delivery.  Dispatch returns immediately; delivery failures are recorded
// by the dispatcher and never reach the caller.
type ConfirmationDispatcher interface {
	Dispatch(ctx context.Context, to string, c model.BookingConfirmation)
}
