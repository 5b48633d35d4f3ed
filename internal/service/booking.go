// Package service holds the reservation engine and the restaurant and
// review use cases.  Every mutating operation runs inside one store
// transaction; confirmation delivery happens after commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/metrics"
	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/service/ports"
)

// BookingService decides whether reservations can be accepted and keeps
// the restaurant booking counter in step with them.
type BookingService struct {
	store    ports.Store
	notifier ports.ConfirmationDispatcher
	log      zerolog.Logger
	now      func() time.Time
	loc      *time.Location
}

// NewBookingService wires the engine.  loc defines what "today" means for
// cancellations; nil means UTC.
func NewBookingService(store ports.Store, notifier ports.ConfirmationDispatcher, log zerolog.Logger, loc *time.Location) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "booking").Logger(),
		now:      time.Now,
		loc:      loc,
	}
}

// today returns the current calendar date in the service time zone,
// expressed as UTC midnight so it compares with stored reservation dates.
func (s *BookingService) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Availability lists, for every restaurant passing the location filters
// and every table seating at least q.People, the first declared slot
// within ±30 minutes of q.Time.  An empty result is not an error.
func (s *BookingService) Availability(ctx context.Context, q model.AvailabilityQuery) ([]model.AvailableTable, error) {
	date, err := model.ParseDate(q.Date)
	if err != nil {
		return nil, model.InvalidRequest("invalid date/time format")
	}
	target, err := model.ParseClock(q.Time)
	if err != nil {
		return nil, model.InvalidRequest("invalid date/time format")
	}
	if q.People < 1 {
		return nil, model.InvalidRequest("people must be at least 1")
	}

	restaurants, err := s.store.Restaurants().Search(ctx, model.RestaurantFilter{
		City: q.City, State: q.State, ZipCode: q.ZipCode,
	})
	if err != nil {
		return nil, model.AsInternal("search restaurants", err)
	}
	out := []model.AvailableTable{}
	if len(restaurants) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(restaurants))
	for i, r := range restaurants {
		ids[i] = r.ID
	}
	tables, err := s.store.Tables().ListByRestaurants(ctx, ids, q.People)
	if err != nil {
		return nil, model.AsInternal("list tables", err)
	}
	counts, err := s.store.Reservations().CountOnDate(ctx, ids, date)
	if err != nil {
		return nil, model.AsInternal("count reservations", err)
	}

	byRestaurant := make(map[uint64][]model.Table, len(restaurants))
	for _, t := range tables {
		byRestaurant[t.RestaurantID] = append(byRestaurant[t.RestaurantID], t)
	}
	from, to := model.SearchWindow(target)
	for _, r := range restaurants {
		for _, t := range byRestaurant[r.ID] {
			if t.Size < q.People {
				continue
			}
			slot, ok := t.FirstSlotBetween(from, to)
			if !ok {
				continue
			}
			out = append(out, model.AvailableTable{
				RestaurantID:   r.ID,
				RestaurantName: r.Name,
				TableID:        t.ID,
				TableSize:      t.Size,
				AvailableTime:  slot,
				City:           r.City,
				Cuisine:        r.Cuisine,
				CostRating:     r.CostRating,
				Rating:         r.Rating,
				TotalBookings:  counts[r.ID],
			})
		}
	}
	return out, nil
}

// Book attempts a reservation for the actor.  The restaurant row is
// locked first and the table row second, the same order Cancel uses, so
// two overlapping requests for one table are serialized.  The conflict
// read, insert and counter increment then commit or roll back together.
func (s *BookingService) Book(ctx context.Context, actor model.Actor, req model.BookingRequest) (*model.Reservation, error) {
	if !actor.Is(model.RoleCustomer) {
		metrics.IncBooking("forbidden")
		return nil, model.PermissionDenied("only customers can book tables")
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		metrics.IncBooking("invalid")
		return nil, model.InvalidRequest(fmt.Sprintf("invalid date format: %s", req.Date))
	}

	var (
		res        *model.Reservation
		restaurant *model.Restaurant
	)
	err = s.store.WithinTx(ctx, func(r ports.Repos) error {
		var err error
		restaurant, err = r.Restaurants().GetByIDForUpdate(ctx, req.RestaurantID)
		if err != nil {
			return err
		}
		table, err := r.Tables().GetForUpdate(ctx, req.RestaurantID, req.TableID)
		if err != nil {
			return err
		}
		at, err := model.ParseTimeOfDay(req.Time)
		if err != nil {
			return model.InvalidRequest(fmt.Sprintf("invalid time format: %s", req.Time))
		}
		if !table.Offers(at) {
			return model.InvalidRequest("selected time not available for this table")
		}
		if req.NumberOfPeople < 1 || req.NumberOfPeople > table.Size {
			return model.InvalidRequest(fmt.Sprintf("party size must be between 1 and %d for this table", table.Size))
		}
		from, to := model.OccupancyWindow(at)
		clash, err := r.Reservations().FindOverlap(ctx, table.ID, date, from, to)
		if err != nil {
			return err
		}
		if clash != nil {
			return model.Conflict("this table is already reserved within the selected time window, please choose another time")
		}
		res = &model.Reservation{
			UserID:         actor.UserID,
			RestaurantID:   restaurant.ID,
			TableID:        table.ID,
			Date:           date,
			Time:           at,
			NumberOfPeople: req.NumberOfPeople,
		}
		if err := r.Reservations().Create(ctx, res); err != nil {
			return err
		}
		return r.Restaurants().IncrementBookings(ctx, restaurant.ID)
	})
	if err != nil {
		err = model.AsInternal("failed to create reservation", err)
		kind := outcome(err)
		metrics.IncBooking(kind)
		if kind == "error" {
			s.log.Error().Err(err).Uint64("restaurant_id", req.RestaurantID).Uint64("table_id", req.TableID).Msg("booking failed")
		}
		return nil, err
	}
	metrics.IncBooking("accepted")
	s.log.Info().
		Uint64("reservation_id", res.ID).
		Uint64("restaurant_id", res.RestaurantID).
		Uint64("table_id", res.TableID).
		Str("date", res.Date.Format(model.DateLayout)).
		Str("time", res.Time.String()).
		Msg("reservation created")

	s.notifier.Dispatch(ctx, actor.Email, model.NewBookingConfirmation(*res, *restaurant))
	return res, nil
}

// Cancel deletes the actor's reservation.  When the reservation is dated
// today or later the restaurant counter drops by one, never below zero.
// Rows are locked restaurant first, then reservation.
func (s *BookingService) Cancel(ctx context.Context, actor model.Actor, reservationID uint64) error {
	if !actor.Is(model.RoleCustomer) {
		return model.PermissionDenied("only customers can cancel bookings")
	}
	today := s.today()
	err := s.store.WithinTx(ctx, func(r ports.Repos) error {
		res, err := r.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != actor.UserID {
			return model.PermissionDenied("you can only cancel your own reservations")
		}
		if _, err := r.Restaurants().GetByIDForUpdate(ctx, res.RestaurantID); err != nil {
			return err
		}
		if res, err = r.Reservations().GetByIDForUpdate(ctx, reservationID); err != nil {
			return err
		}
		if err := r.Reservations().Delete(ctx, res.ID); err != nil {
			return err
		}
		if res.Date.Before(today) {
			return nil
		}
		return r.Restaurants().DecrementBookings(ctx, res.RestaurantID)
	})
	if err != nil {
		return model.AsInternal("failed to cancel reservation", err)
	}
	metrics.IncCancellation()
	s.log.Info().Uint64("reservation_id", reservationID).Uint64("user_id", actor.UserID).Msg("reservation cancelled")
	return nil
}

// MyReservations lists the actor's own reservations.
func (s *BookingService) MyReservations(ctx context.Context, actor model.Actor) ([]model.ReservationDetail, error) {
	items, err := s.store.Reservations().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, model.AsInternal("failed to load reservations", err)
	}
	return items, nil
}

// ResendConfirmation dispatches the confirmation of one of the actor's
// reservations again.
func (s *BookingService) ResendConfirmation(ctx context.Context, actor model.Actor, reservationID uint64) error {
	notYours := model.NotFound("reservation not found or doesn't belong to you")
	res, err := s.store.Reservations().GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return notYours
		}
		return model.AsInternal("failed to load reservation", err)
	}
	if res.UserID != actor.UserID {
		return notYours
	}
	restaurant, err := s.store.Restaurants().GetByID(ctx, res.RestaurantID)
	if err != nil {
		return model.AsInternal("failed to load restaurant", err)
	}
	s.notifier.Dispatch(ctx, actor.Email, model.NewBookingConfirmation(*res, *restaurant))
	return nil
}

// TodayCount returns how many reservations the restaurant has today.
func (s *BookingService) TodayCount(ctx context.Context, restaurantID uint64) (int, error) {
	if _, err := s.store.Restaurants().GetByID(ctx, restaurantID); err != nil {
		return 0, model.AsInternal("failed to load restaurant", err)
	}
	counts, err := s.store.Reservations().CountOnDate(ctx, []uint64{restaurantID}, s.today())
	if err != nil {
		return 0, model.AsInternal("failed to count reservations", err)
	}
	return counts[restaurantID], nil
}
