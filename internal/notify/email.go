package notify

import (
	"fmt"
	"strings"
)

// Email is a rendered confirmation.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Render formats the confirmation email for m.
func Render(m Message) Email {
	c := m.Confirmation
	var b strings.Builder
	fmt.Fprintf(&b, "Your table at %s is confirmed.\n\n", c.RestaurantName)
	fmt.Fprintf(&b, "Reservation ID: %d\n", c.ReservationID)
	fmt.Fprintf(&b, "Date: %s\n", c.Date)
	fmt.Fprintf(&b, "Time: %s\n", c.Time)
	fmt.Fprintf(&b, "Party size: %d\n", c.People)
	fmt.Fprintf(&b, "Table: %s\n", c.TableType)
	fmt.Fprintf(&b, "Address: %s\n", c.Address)
	if c.Contact != nil && *c.Contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", *c.Contact)
	}
	b.WriteString("\nIf you need to cancel, you can do so from My Reservations.\n")
	return Email{
		To:      m.To,
		Subject: "Booking Confirmation - " + c.RestaurantName,
		Body:    b.String(),
	}
}
