package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/model"
)

// BookingService is what the reservation endpoints need from the
// service layer.
type BookingService interface {
	Availability(ctx context.Context, q model.AvailabilityQuery) ([]model.AvailableTable, error)
	Book(ctx context.Context, a model.Actor, req model.BookingRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, a model.Actor, reservationID uint64) error
	MyReservations(ctx context.Context, a model.Actor) ([]model.ReservationDetail, error)
	ResendConfirmation(ctx context.Context, a model.Actor, reservationID uint64) error
	TodayCount(ctx context.Context, restaurantID uint64) (int, error)
}

// BookingHandler serves availability, booking and cancellation.
type BookingHandler struct {
	svc BookingService
	log zerolog.Logger
}

func NewBookingHandler(svc BookingService, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

type bookReq struct {
	TableID        uint64 `json:"table_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	NumberOfPeople int    `json:"number_of_people"`
}

type confirmationReq struct {
	ReservationID uint64 `json:"reservation_id"`
}

// Availability handles GET /restaurants/availability
// ?date=YYYY-MM-DD&time=HH:MM&people=N[&city=&state=&zip_code=].
func (h *BookingHandler) Availability(c echo.Context) error {
	people, err := strconv.Atoi(c.QueryParam("people"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "people must be an integer"})
	}
	items, err := h.svc.Availability(c.Request().Context(), model.AvailabilityQuery{
		Date:    c.QueryParam("date"),
		Time:    c.QueryParam("time"),
		People:  people,
		City:    c.QueryParam("city"),
		State:   c.QueryParam("state"),
		ZipCode: c.QueryParam("zip_code"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Book handles POST /restaurants/:id/book (Customer).
func (h *BookingHandler) Book(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	restaurantID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.TableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_id is required"})
	}
	res, err := h.svc.Book(c.Request().Context(), a, model.BookingRequest{
		RestaurantID:   restaurantID,
		TableID:        req.TableID,
		Date:           req.Date,
		Time:           req.Time,
		NumberOfPeople: req.NumberOfPeople,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":        "Table booked successfully!",
		"reservation_id": res.ID,
	})
}

// Cancel handles DELETE /restaurants/cancel/:reservation_id (Customer, own reservations only).
func (h *BookingHandler) Cancel(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "reservation_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.svc.Cancel(c.Request().Context(), a, id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reservation cancelled successfully."})
}

// MyReservations handles GET /restaurants/my-reservations.
func (h *BookingHandler) MyReservations(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.svc.MyReservations(c.Request().Context(), a)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// SendConfirmation handles POST /restaurants/api/send-confirmation-email.
// The email is queued; the response does not wait for delivery.
func (h *BookingHandler) SendConfirmation(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req confirmationReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}
	if err := h.svc.ResendConfirmation(c.Request().Context(), a, req.ReservationID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "Confirmation email will be sent shortly"})
}

// TodayCount handles GET /restaurants/:id/bookings/today.
func (h *BookingHandler) TodayCount(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	n, err := h.svc.TodayCount(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}
