// Package ports declares the collaborators the services depend on.  The
// MySQL implementation lives in package repository; tests use in-memory
// fakes.
package ports

import (
	"context"
	"time"

	"github.com/iliyamo/booktable/internal/model"
)

// Store is the persistent store.  Its Repos operate outside any
// transaction; WithinTx runs fn against repos bound to a single
// transaction that is committed when fn returns nil and rolled back
// otherwise, including on panic.
type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(Repos) error) error
}

// Repos groups the per-entity repositories of one unit of work.
type Repos interface {
	Restaurants() RestaurantRepo
	Tables() TableRepo
	Reservations() ReservationRepo
	Reviews() ReviewRepo
	Users() UserRepo
}

// RestaurantRepo persists restaurants.  GetByID returns a model.ErrNotFound
// kind error when the row does not exist.
type RestaurantRepo interface {
	Create(ctx context.Context, r *model.Restaurant) error
	GetByID(ctx context.Context, id uint64) (*model.Restaurant, error)
	// GetByIDForUpdate locks the row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Restaurant, error)
	Search(ctx context.Context, f model.RestaurantFilter) ([]model.Restaurant, error)
	IncrementBookings(ctx context.Context, id uint64) error
	// DecrementBookings never takes the counter below zero.
	DecrementBookings(ctx context.Context, id uint64) error
	UpdateRating(ctx context.Context, id uint64, rating float64) error
}

// TableRepo persists restaurant tables.
type TableRepo interface {
	Create(ctx context.Context, t *model.Table) error
	// GetForUpdate loads a table of the given restaurant and locks it.
	GetForUpdate(ctx context.Context, restaurantID, tableID uint64) (*model.Table, error)
	ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Table, error)
	// ListByRestaurants returns tables with size >= minSize ordered by
	// restaurant and id.
	ListByRestaurants(ctx context.Context, restaurantIDs []uint64, minSize int) ([]model.Table, error)
}

// ReservationRepo persists reservations.
type ReservationRepo interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
	// FindOverlap returns the first reservation on the table and date whose
	// start time lies in [from, to], or nil.
	FindOverlap(ctx context.Context, tableID uint64, date time.Time, from, to model.TimeOfDay) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error)
	CountOnDate(ctx context.Context, restaurantIDs []uint64, date time.Time) (map[uint64]int, error)
}

// ReviewRepo persists reviews.  Create returns a model.ErrConflict kind
// error when the user already reviewed the restaurant.
type ReviewRepo interface {
	Create(ctx context.Context, r *model.Review) error
	Exists(ctx context.Context, userID, restaurantID uint64) (bool, error)
	// Totals returns the sum and count of all ratings of a restaurant.
	Totals(ctx context.Context, restaurantID uint64) (sum, count int, err error)
	ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.ReviewView, error)
}

// UserRepo persists users.
type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}
