package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booktable/internal/model"
)

var (
	customer = model.Actor{UserID: 10, Role: model.RoleCustomer, Email: "ann@example.com"}
	stranger = model.Actor{UserID: 11, Role: model.RoleCustomer, Email: "bob@example.com"}
	manager  = model.Actor{UserID: 20, Role: model.RoleRestaurantManager, Email: "mgr@example.com"}
)

type bookingFixture struct {
	store *memStore
	disp  *recordingDispatcher
	svc   *BookingService
	rest  model.Restaurant
	table model.Table
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	store := newMemStore()
	disp := &recordingDispatcher{}
	svc := NewBookingService(store, disp, zerolog.Nop(), time.UTC)
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC) }

	rest := store.seedRestaurant(model.Restaurant{
		Name: "Trattoria", Cuisine: "Italian", CostRating: 3,
		City: "Boston", State: "MA", ZipCode: "02108",
	})
	table := store.seedTable(rest.ID, 4, "18:00", "18:30", "19:00")
	return &bookingFixture{store: store, disp: disp, svc: svc, rest: rest, table: table}
}

func (f *bookingFixture) book(actor model.Actor, date, at string, people int) (*model.Reservation, error) {
	return f.svc.Book(context.Background(), actor, model.BookingRequest{
		RestaurantID:   f.rest.ID,
		TableID:        f.table.ID,
		Date:           date,
		Time:           at,
		NumberOfPeople: people,
	})
}

func (f *bookingFixture) bookings() int {
	return f.store.snapshot().restaurants[f.rest.ID].TotalBookings
}

func assertKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	if msg != "" {
		assert.Equal(t, msg, err.Error())
	}
}

func TestBookOneHourOccupancy(t *testing.T) {
	f := newBookingFixture(t)

	first, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "18:00", first.Time.String())
	assert.Equal(t, 1, f.bookings())

	_, err = f.book(stranger, "2025-06-14", "18:30", 2)
	assertKind(t, err, model.ErrConflict,
		"this table is already reserved within the selected time window, please choose another time")
	assert.Equal(t, 1, f.bookings())

	_, err = f.book(stranger, "2025-06-14", "19:00", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.bookings())

	// Another date leaves the same slot free.
	_, err = f.book(stranger, "2025-06-15", "18:30", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, f.bookings())
}

func TestBookBlocksEarlierStartWithinHour(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.book(customer, "2025-06-14", "19:00", 2)
	require.NoError(t, err)

	// 18:30 would still be seated when the 19:00 party arrives.
	_, err = f.book(stranger, "2025-06-14", "18:30", 2)
	assertKind(t, err, model.ErrConflict, "")

	_, err = f.book(stranger, "2025-06-14", "18:00", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.bookings())
}

func TestBookAndCancelLockRestaurantFirst(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	res, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		fmt.Sprintf("restaurant:%d", f.rest.ID),
		fmt.Sprintf("table:%d", f.table.ID),
	}, f.store.lockTrace())

	require.NoError(t, f.svc.Cancel(ctx, customer, res.ID))
	assert.Equal(t, []string{
		fmt.Sprintf("restaurant:%d", f.rest.ID),
		fmt.Sprintf("reservation:%d", res.ID),
	}, f.store.lockTrace())
}

func TestBookNormalizesTime(t *testing.T) {
	f := newBookingFixture(t)

	res, err := f.book(customer, "2025-06-14", "6:30 PM", 2)
	require.NoError(t, err)
	assert.Equal(t, "18:30", res.Time.String())

	_, err = f.book(stranger, "2025-06-14", "18:30:00", 2)
	assertKind(t, err, model.ErrConflict, "")
}

func TestBookValidation(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.book(manager, "2025-06-14", "18:00", 2)
	assertKind(t, err, model.ErrPermissionDenied, "only customers can book tables")

	_, err = f.book(customer, "14/06/2025", "18:00", 2)
	assertKind(t, err, model.ErrInvalidRequest, "invalid date format: 14/06/2025")

	_, err = f.book(customer, "2025-06-14", "dinner", 2)
	assertKind(t, err, model.ErrInvalidRequest, "invalid time format: dinner")

	_, err = f.book(customer, "2025-06-14", "20:00", 2)
	assertKind(t, err, model.ErrInvalidRequest, "selected time not available for this table")

	_, err = f.book(customer, "2025-06-14", "18:00", 5)
	assertKind(t, err, model.ErrInvalidRequest, "party size must be between 1 and 4 for this table")

	_, err = f.book(customer, "2025-06-14", "18:00", 0)
	assertKind(t, err, model.ErrInvalidRequest, "")

	_, err = f.svc.Book(context.Background(), customer, model.BookingRequest{
		RestaurantID: 999, TableID: f.table.ID, Date: "2025-06-14", Time: "18:00", NumberOfPeople: 2,
	})
	assertKind(t, err, model.ErrNotFound, "restaurant not found")

	other := f.store.seedRestaurant(model.Restaurant{Name: "Other", City: "Boston", State: "MA", ZipCode: "02108"})
	_, err = f.svc.Book(context.Background(), customer, model.BookingRequest{
		RestaurantID: other.ID, TableID: f.table.ID, Date: "2025-06-14", Time: "18:00", NumberOfPeople: 2,
	})
	assertKind(t, err, model.ErrNotFound, "table not found for this restaurant")

	assert.Empty(t, f.store.snapshot().reservations)
	assert.Equal(t, 0, f.bookings())
	assert.Empty(t, f.disp.all())
}

func TestBookRollsBackOnFailure(t *testing.T) {
	f := newBookingFixture(t)
	f.store.failOn = "Restaurants.IncrementBookings"

	_, err := f.book(customer, "2025-06-14", "18:00", 2)
	assertKind(t, err, model.ErrInternal, "")
	assert.ErrorIs(t, err, errBoom)

	snap := f.store.snapshot()
	assert.Empty(t, snap.reservations)
	assert.Equal(t, 0, snap.restaurants[f.rest.ID].TotalBookings)
	assert.Empty(t, f.disp.all())
}

func TestBookDispatchesConfirmation(t *testing.T) {
	f := newBookingFixture(t)

	res, err := f.book(customer, "2025-06-14", "19:00", 3)
	require.NoError(t, err)

	sent := f.disp.all()
	require.Len(t, sent, 1)
	assert.Equal(t, customer.Email, sent[0].To)
	c := sent[0].Confirmation
	assert.Equal(t, res.ID, c.ReservationID)
	assert.Equal(t, "Trattoria", c.RestaurantName)
	assert.Equal(t, "Saturday, June 14, 2025", c.Date)
	assert.Equal(t, "19:00", c.Time)
	assert.Equal(t, 3, c.People)
	assert.Equal(t, "Boston, MA 02108", c.Address)
}

func TestBookConcurrentRequestsForOneSlot(t *testing.T) {
	f := newBookingFixture(t)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := model.Actor{UserID: uint64(100 + i), Role: model.RoleCustomer, Email: "c@example.com"}
			_, err := f.book(actor, "2025-06-14", "18:00", 2)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if assert.ErrorIs(t, err, model.ErrConflict) {
				conflict++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, conflict)
	assert.Equal(t, 1, f.bookings())
	assert.Len(t, f.store.snapshot().reservations, 1)
}

func TestCancel(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	res, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)
	require.Equal(t, 1, f.bookings())

	err = f.svc.Cancel(ctx, stranger, res.ID)
	assertKind(t, err, model.ErrPermissionDenied, "you can only cancel your own reservations")

	err = f.svc.Cancel(ctx, manager, res.ID)
	assertKind(t, err, model.ErrPermissionDenied, "only customers can cancel bookings")

	require.NoError(t, f.svc.Cancel(ctx, customer, res.ID))
	assert.Equal(t, 0, f.bookings())
	assert.Empty(t, f.store.snapshot().reservations)

	err = f.svc.Cancel(ctx, customer, res.ID)
	assertKind(t, err, model.ErrNotFound, "reservation not found")
}

func TestCancelTodayDecrements(t *testing.T) {
	f := newBookingFixture(t)

	res, err := f.book(customer, "2025-06-10", "18:00", 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), customer, res.ID))
	assert.Equal(t, 0, f.bookings())
}

func TestCancelPastReservationKeepsCounter(t *testing.T) {
	f := newBookingFixture(t)

	past := f.store.seedReservation(model.Reservation{
		UserID: customer.UserID, RestaurantID: f.rest.ID, TableID: f.table.ID,
		Date: time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), Time: 18 * 60, NumberOfPeople: 2,
	})
	_, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)
	require.Equal(t, 1, f.bookings())

	require.NoError(t, f.svc.Cancel(context.Background(), customer, past.ID))
	assert.Equal(t, 1, f.bookings())
	assert.Len(t, f.store.snapshot().reservations, 1)
}

func TestCancelCounterNeverNegative(t *testing.T) {
	f := newBookingFixture(t)

	res := f.store.seedReservation(model.Reservation{
		UserID: customer.UserID, RestaurantID: f.rest.ID, TableID: f.table.ID,
		Date: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), Time: 18 * 60, NumberOfPeople: 2,
	})
	require.Equal(t, 0, f.bookings())

	require.NoError(t, f.svc.Cancel(context.Background(), customer, res.ID))
	assert.Equal(t, 0, f.bookings())
}

func TestCancelUsesServiceTimeZone(t *testing.T) {
	f := newBookingFixture(t)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	f.svc.loc = tokyo
	// 2025-06-10 15:00 UTC is already 2025-06-11 in Tokyo.
	res := f.store.seedReservation(model.Reservation{
		UserID: customer.UserID, RestaurantID: f.rest.ID, TableID: f.table.ID,
		Date: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), Time: 18 * 60, NumberOfPeople: 2,
	})
	f.store.mu.Lock()
	r := f.store.d.restaurants[f.rest.ID]
	r.TotalBookings = 5
	f.store.d.restaurants[f.rest.ID] = r
	f.store.mu.Unlock()

	require.NoError(t, f.svc.Cancel(context.Background(), customer, res.ID))
	assert.Equal(t, 5, f.bookings())
}

func TestAvailability(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.store.seedTable(f.rest.ID, 2, "19:15", "18:45")
	f.store.seedTable(f.rest.ID, 8, "21:00")
	far := f.store.seedRestaurant(model.Restaurant{Name: "Chez Nous", City: "Denver", State: "CO", ZipCode: "80202"})
	f.store.seedTable(far.ID, 4, "19:00")

	_, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)

	got, err := f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "19:00", People: 2, City: "bost"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, f.table.ID, got[0].TableID)
	assert.Equal(t, "18:30", got[0].AvailableTime.String())
	assert.Equal(t, "Trattoria", got[0].RestaurantName)
	assert.Equal(t, 1, got[0].TotalBookings)
	assert.Equal(t, "19:15", got[1].AvailableTime.String())
	assert.Equal(t, 2, got[1].TableSize)

	got, err = f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "19:00", People: 3})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, f.rest.ID, got[0].RestaurantID)
	assert.Equal(t, far.ID, got[1].RestaurantID)
	assert.Equal(t, 0, got[1].TotalBookings)

	got, err = f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "12:00", People: 2})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "19:00", People: 2, ZipCode: "00000"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAvailabilityValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Availability(ctx, model.AvailabilityQuery{Date: "tomorrow", Time: "19:00", People: 2})
	assertKind(t, err, model.ErrInvalidRequest, "invalid date/time format")

	_, err = f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "7 pm", People: 2})
	assertKind(t, err, model.ErrInvalidRequest, "invalid date/time format")

	_, err = f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "19:00", People: 0})
	assertKind(t, err, model.ErrInvalidRequest, "")

	f.store.failOn = "Restaurants.Search"
	_, err = f.svc.Availability(ctx, model.AvailabilityQuery{Date: "2025-06-14", Time: "19:00", People: 2})
	assertKind(t, err, model.ErrInternal, "")
}

func TestMyReservations(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)
	_, err = f.book(stranger, "2025-06-14", "19:00", 2)
	require.NoError(t, err)

	mine, err := f.svc.MyReservations(ctx, customer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Trattoria", mine[0].Restaurant)
	assert.Equal(t, "2025-06-14", mine[0].Date)

	none, err := f.svc.MyReservations(ctx, manager)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResendConfirmation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	res, err := f.book(customer, "2025-06-14", "18:00", 2)
	require.NoError(t, err)

	require.NoError(t, f.svc.ResendConfirmation(ctx, customer, res.ID))
	sent := f.disp.all()
	require.Len(t, sent, 2)
	assert.Equal(t, sent[0].Confirmation, sent[1].Confirmation)

	err = f.svc.ResendConfirmation(ctx, stranger, res.ID)
	assertKind(t, err, model.ErrNotFound, "reservation not found or doesn't belong to you")

	err = f.svc.ResendConfirmation(ctx, customer, 999)
	assertKind(t, err, model.ErrNotFound, "reservation not found or doesn't belong to you")
	assert.Len(t, f.disp.all(), 2)
}

func TestTodayCount(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.book(customer, "2025-06-10", "18:00", 2)
	require.NoError(t, err)
	_, err = f.book(customer, "2025-06-10", "19:00", 2)
	require.NoError(t, err)
	_, err = f.book(customer, "2025-06-11", "18:00", 2)
	require.NoError(t, err)

	n, err := f.svc.TodayCount(ctx, f.rest.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.TodayCount(ctx, 999)
	assertKind(t, err, model.ErrNotFound, "restaurant not found")
}
