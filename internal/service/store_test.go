package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/booktable/internal/model"
	"github.com/iliyamo/booktable/internal/service/ports"
)

// memStore is an in-memory ports.Store.  WithinTx works on a copy of the
// data and publishes it only when fn succeeds; transactions are serialized.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	d    *memData

	// failOn makes the named repository method return errBoom.
	failOn string

	// locks records every row lock taken, in order, as "kind:id".
	locks []string
}

var errBoom = errors.New("boom")

type memData struct {
	nextID       uint64
	restaurants  map[uint64]model.Restaurant
	tables       map[uint64]model.Table
	reservations map[uint64]model.Reservation
	reviews      []model.Review
	users        map[uint64]model.User
}

func newMemStore() *memStore {
	return &memStore{d: &memData{
		restaurants:  map[uint64]model.Restaurant{},
		tables:       map[uint64]model.Table{},
		reservations: map[uint64]model.Reservation{},
		users:        map[uint64]model.User{},
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:       d.nextID,
		restaurants:  make(map[uint64]model.Restaurant, len(d.restaurants)),
		tables:       make(map[uint64]model.Table, len(d.tables)),
		reservations: make(map[uint64]model.Reservation, len(d.reservations)),
		reviews:      append([]model.Review(nil), d.reviews...),
		users:        make(map[uint64]model.User, len(d.users)),
	}
	for k, v := range d.restaurants {
		c.restaurants[k] = v
	}
	for k, v := range d.tables {
		c.tables[k] = v
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

func (d *memData) id() uint64 {
	d.nextID++
	return d.nextID
}

func (s *memStore) repos(d *memData) memRepos { return memRepos{s: s, d: d} }

func (s *memStore) Restaurants() ports.RestaurantRepo   { return s.repos(s.d).Restaurants() }
func (s *memStore) Tables() ports.TableRepo             { return s.repos(s.d).Tables() }
func (s *memStore) Reservations() ports.ReservationRepo { return s.repos(s.d).Reservations() }
func (s *memStore) Reviews() ports.ReviewRepo           { return s.repos(s.d).Reviews() }
func (s *memStore) Users() ports.UserRepo               { return s.repos(s.d).Users() }

func (s *memStore) WithinTx(ctx context.Context, fn func(ports.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	work := s.d.clone()
	s.mu.Unlock()

	if err := fn(s.repos(work)); err != nil {
		return err
	}
	s.mu.Lock()
	s.d = work
	s.mu.Unlock()
	return nil
}

// snapshot returns the committed data.
func (s *memStore) snapshot() *memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.clone()
}

func (s *memStore) fail(op string) error {
	if s.failOn == op {
		return errBoom
	}
	return nil
}

func (s *memStore) lock(kind string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = append(s.locks, fmt.Sprintf("%s:%d", kind, id))
}

// lockTrace returns the recorded row locks and resets the trace.
func (s *memStore) lockTrace() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.locks
	s.locks = nil
	return out
}

func (s *memStore) seedRestaurant(r model.Restaurant) model.Restaurant {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.d.id()
	s.d.restaurants[r.ID] = r
	return r
}

func (s *memStore) seedTable(restaurantID uint64, size int, slots ...string) model.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	parsed, err := model.ParseSlots(strings.Join(slots, ","))
	if err != nil {
		panic(err)
	}
	t := model.Table{ID: s.d.id(), RestaurantID: restaurantID, Size: size, AvailableTimes: parsed}
	s.d.tables[t.ID] = t
	return t
}

func (s *memStore) seedReservation(r model.Reservation) model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.d.id()
	s.d.reservations[r.ID] = r
	return r
}

type memRepos struct {
	s *memStore
	d *memData
}

func (r memRepos) Restaurants() ports.RestaurantRepo   { return memRestaurants(r) }
func (r memRepos) Tables() ports.TableRepo             { return memTables(r) }
func (r memRepos) Reservations() ports.ReservationRepo { return memReservations(r) }
func (r memRepos) Reviews() ports.ReviewRepo           { return memReviews(r) }
func (r memRepos) Users() ports.UserRepo               { return memUsers(r) }

type memRestaurants memRepos

func (r memRestaurants) Create(_ context.Context, rest *model.Restaurant) error {
	if err := r.s.fail("Restaurants.Create"); err != nil {
		return err
	}
	rest.ID = r.d.id()
	r.d.restaurants[rest.ID] = *rest
	return nil
}

func (r memRestaurants) GetByID(_ context.Context, id uint64) (*model.Restaurant, error) {
	rest, ok := r.d.restaurants[id]
	if !ok {
		return nil, model.NotFound("restaurant not found")
	}
	return &rest, nil
}

func (r memRestaurants) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Restaurant, error) {
	r.s.lock("restaurant", id)
	return r.GetByID(ctx, id)
}

func (r memRestaurants) Search(_ context.Context, f model.RestaurantFilter) ([]model.Restaurant, error) {
	if err := r.s.fail("Restaurants.Search"); err != nil {
		return nil, err
	}
	contains := func(field, want string) bool {
		return want == "" || strings.Contains(strings.ToLower(field), strings.ToLower(want))
	}
	out := []model.Restaurant{}
	for _, rest := range r.d.restaurants {
		if contains(rest.City, f.City) && contains(rest.State, f.State) && contains(rest.Cuisine, f.Cuisine) &&
			(f.ZipCode == "" || rest.ZipCode == f.ZipCode) {
			out = append(out, rest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memRestaurants) IncrementBookings(_ context.Context, id uint64) error {
	if err := r.s.fail("Restaurants.IncrementBookings"); err != nil {
		return err
	}
	rest, ok := r.d.restaurants[id]
	if !ok {
		return model.NotFound("restaurant not found")
	}
	rest.TotalBookings++
	r.d.restaurants[id] = rest
	return nil
}

func (r memRestaurants) DecrementBookings(_ context.Context, id uint64) error {
	rest, ok := r.d.restaurants[id]
	if !ok {
		return nil
	}
	if rest.TotalBookings > 0 {
		rest.TotalBookings--
	}
	r.d.restaurants[id] = rest
	return nil
}

func (r memRestaurants) UpdateRating(_ context.Context, id uint64, rating float64) error {
	if err := r.s.fail("Restaurants.UpdateRating"); err != nil {
		return err
	}
	rest := r.d.restaurants[id]
	rest.Rating = rating
	r.d.restaurants[id] = rest
	return nil
}

type memTables memRepos

func (r memTables) Create(_ context.Context, t *model.Table) error {
	if err := r.s.fail("Tables.Create"); err != nil {
		return err
	}
	t.ID = r.d.id()
	r.d.tables[t.ID] = *t
	return nil
}

func (r memTables) GetForUpdate(_ context.Context, restaurantID, tableID uint64) (*model.Table, error) {
	r.s.lock("table", tableID)
	t, ok := r.d.tables[tableID]
	if !ok || t.RestaurantID != restaurantID {
		return nil, model.NotFound("table not found for this restaurant")
	}
	return &t, nil
}

func (r memTables) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
	return r.ListByRestaurants(ctx, []uint64{restaurantID}, 0)
}

func (r memTables) ListByRestaurants(_ context.Context, ids []uint64, minSize int) ([]model.Table, error) {
	want := map[uint64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []model.Table{}
	for _, t := range r.d.tables {
		if want[t.RestaurantID] && t.Size >= minSize {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RestaurantID != out[j].RestaurantID {
			return out[i].RestaurantID < out[j].RestaurantID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memReservations memRepos

func (r memReservations) Create(_ context.Context, res *model.Reservation) error {
	if err := r.s.fail("Reservations.Create"); err != nil {
		return err
	}
	res.ID = r.d.id()
	res.CreatedAt = time.Now().UTC()
	r.d.reservations[res.ID] = *res
	return nil
}

func (r memReservations) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	res, ok := r.d.reservations[id]
	if !ok {
		return nil, model.NotFound("reservation not found")
	}
	return &res, nil
}

func (r memReservations) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	r.s.lock("reservation", id)
	return r.GetByID(ctx, id)
}

func (r memReservations) Delete(_ context.Context, id uint64) error {
	if _, ok := r.d.reservations[id]; !ok {
		return model.NotFound("reservation not found")
	}
	delete(r.d.reservations, id)
	return nil
}

func (r memReservations) FindOverlap(_ context.Context, tableID uint64, date time.Time, from, to model.TimeOfDay) (*model.Reservation, error) {
	var hit *model.Reservation
	for _, res := range r.d.reservations {
		if res.TableID != tableID || !res.Date.Equal(date) || res.Time < from || res.Time > to {
			continue
		}
		if hit == nil || res.Time < hit.Time {
			res := res
			hit = &res
		}
	}
	return hit, nil
}

func (r memReservations) ListByUser(_ context.Context, userID uint64) ([]model.ReservationDetail, error) {
	out := []model.ReservationDetail{}
	for _, res := range r.d.reservations {
		if res.UserID != userID {
			continue
		}
		out = append(out, model.ReservationDetail{
			ID:             res.ID,
			Restaurant:     r.d.restaurants[res.RestaurantID].Name,
			RestaurantID:   res.RestaurantID,
			Date:           res.Date.Format(model.DateLayout),
			Time:           res.Time,
			TableID:        res.TableID,
			NumberOfPeople: res.NumberOfPeople,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memReservations) CountOnDate(_ context.Context, ids []uint64, date time.Time) (map[uint64]int, error) {
	want := map[uint64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[uint64]int{}
	for _, res := range r.d.reservations {
		if want[res.RestaurantID] && res.Date.Equal(date) {
			out[res.RestaurantID]++
		}
	}
	return out, nil
}

type memReviews memRepos

func (r memReviews) Create(_ context.Context, rev *model.Review) error {
	for _, x := range r.d.reviews {
		if x.UserID == rev.UserID && x.RestaurantID == rev.RestaurantID {
			return model.Conflict("you have already reviewed this restaurant")
		}
	}
	rev.ID = r.d.id()
	r.d.reviews = append(r.d.reviews, *rev)
	return nil
}

func (r memReviews) Exists(_ context.Context, userID, restaurantID uint64) (bool, error) {
	for _, x := range r.d.reviews {
		if x.UserID == userID && x.RestaurantID == restaurantID {
			return true, nil
		}
	}
	return false, nil
}

func (r memReviews) Totals(_ context.Context, restaurantID uint64) (sum, count int, err error) {
	for _, x := range r.d.reviews {
		if x.RestaurantID == restaurantID {
			sum += x.Rating
			count++
		}
	}
	return sum, count, nil
}

func (r memReviews) ListByRestaurant(_ context.Context, restaurantID uint64) ([]model.ReviewView, error) {
	out := []model.ReviewView{}
	for i := len(r.d.reviews) - 1; i >= 0; i-- {
		x := r.d.reviews[i]
		if x.RestaurantID != restaurantID {
			continue
		}
		out = append(out, model.ReviewView{
			ID:       x.ID,
			UserName: r.d.users[x.UserID].FullName,
			Rating:   x.Rating,
			Comment:  x.Comment,
			Date:     x.CreatedAt.Format(model.DateLayout),
		})
	}
	return out, nil
}

type memUsers memRepos

func (r memUsers) Create(_ context.Context, u *model.User) error {
	u.ID = r.d.id()
	r.d.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, model.NotFound("user not found")
}

func (r memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, model.NotFound("user not found")
	}
	return &u, nil
}

// recordingDispatcher captures confirmations instead of delivering them.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []dispatched
}

type dispatched struct {
	To           string
	Confirmation model.BookingConfirmation
}

func (d *recordingDispatcher) Dispatch(_ context.Context, to string, c model.BookingConfirmation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, dispatched{To: to, Confirmation: c})
}

func (d *recordingDispatcher) all() []dispatched {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatched(nil), d.sent...)
}
