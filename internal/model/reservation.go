package model

import (
	"fmt"
	"time"
)

// Reservation records a customer's booking of one table at one date and
// time.  Reservations are created by the booking engine and hard-deleted
// on cancellation; they are never updated in place.
//
// Fields:
//
//	ID             – primary key identifier.
//	UserID         – user who made the reservation.
//	RestaurantID   – restaurant the table belongs to.
//	TableID        – reserved table.
//	Date           – calendar date (UTC midnight).
//	Time           – start time; the table is busy for one hour.
//	NumberOfPeople – party size.
//	CreatedAt      – creation timestamp.
type Reservation struct {
	ID             uint64    // reservations.id
	UserID         uint64    // reservations.user_id
	RestaurantID   uint64    // reservations.restaurant_id
	TableID        uint64    // reservations.table_id
	Date           time.Time // reservations.date
	Time           TimeOfDay // reservations.time
	NumberOfPeople int       // reservations.number_of_people
	CreatedAt      time.Time // reservations.created_at
}

// ReservationDetail is a reservation joined with its restaurant name, as
// listed to the owning customer.
type ReservationDetail struct {
	ID             uint64    `json:"reservation_id"`
	Restaurant     string    `json:"restaurant"`
	RestaurantID   uint64    `json:"restaurant_id"`
	Date           string    `json:"date"`
	Time           TimeOfDay `json:"time"`
	TableID        uint64    `json:"table_id"`
	NumberOfPeople int       `json:"number_of_people"`
}

// BookingRequest is the engine input for a new reservation.  Time is the
// raw client string; the engine normalizes it.
type BookingRequest struct {
	RestaurantID   uint64
	TableID        uint64
	Date           string
	Time           string
	NumberOfPeople int
}

// AvailabilityQuery is the engine input for availability search.
type AvailabilityQuery struct {
	Date    string
	Time    string
	People  int
	City    string
	State   string
	ZipCode string
}

// AvailableTable is one availability match: a table of a restaurant with
// the first declared slot inside the search window.
type AvailableTable struct {
	RestaurantID   uint64    `json:"restaurant_id"`
	RestaurantName string    `json:"restaurant_name"`
	TableID        uint64    `json:"table_id"`
	TableSize      int       `json:"table_size"`
	AvailableTime  TimeOfDay `json:"available_time"`
	City           string    `json:"city"`
	Cuisine        string    `json:"cuisine"`
	CostRating     int       `json:"cost_rating"`
	Rating         float64   `json:"rating"`
	TotalBookings  int       `json:"total_bookings"`
}

// BookingConfirmation is the payload handed to the notification channel
// after a booking commits.
type BookingConfirmation struct {
	ReservationID  uint64  `json:"reservation_id"`
	RestaurantName string  `json:"restaurant_name"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	People         int     `json:"people"`
	TableType      string  `json:"table_type"`
	Address        string  `json:"address"`
	Contact        *string `json:"contact,omitempty"`
}

// NewBookingConfirmation assembles the confirmation for a reservation.
func NewBookingConfirmation(r Reservation, rest Restaurant) BookingConfirmation {
	return BookingConfirmation{
		ReservationID:  r.ID,
		RestaurantName: rest.Name,
		Date:           r.Date.Format("Monday, January 02, 2006"),
		Time:           r.Time.String(),
		People:         r.NumberOfPeople,
		TableType:      fmt.Sprintf("Table #%d", r.TableID),
		Address:        rest.Address(),
		Contact:        rest.Contact,
	}
}
