package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/iliyamo/booktable/internal/model"
)

// RestaurantRepo reads and writes the restaurants table.
type RestaurantRepo struct {
	q DBTX
}

// NewRestaurantRepo returns a RestaurantRepo bound to db.
func NewRestaurantRepo(db DBTX) *RestaurantRepo { return &RestaurantRepo{q: db} }

const restaurantSelect = `SELECT id, name, cuisine, cost_rating, city, state, zip_code, contact, rating, total_bookings, created_at FROM restaurants`

var restaurantColumns = []any{
	"id", "name", "cuisine", "cost_rating", "city", "state", "zip_code",
	"contact", "rating", "total_bookings", "created_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(s rowScanner) (*model.Restaurant, error) {
	var (
		r       model.Restaurant
		contact sql.NullString
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Cuisine, &r.CostRating, &r.City, &r.State, &r.ZipCode,
		&contact, &r.Rating, &r.TotalBookings, &r.CreatedAt); err != nil {
		return nil, err
	}
	if contact.Valid {
		c := contact.String
		r.Contact = &c
	}
	return &r, nil
}

// Create inserts r and fills in its generated ID.
func (r *RestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	const q = `INSERT INTO restaurants (name, cuisine, cost_rating, city, state, zip_code, contact, rating, total_bookings) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, rest.Name, rest.Cuisine, rest.CostRating, rest.City, rest.State,
		rest.ZipCode, rest.Contact, rest.Rating, rest.TotalBookings)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rest.ID = uint64(id)
	return nil
}

// GetByID loads one restaurant.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return r.get(ctx, restaurantSelect+` WHERE id = ?`, id)
}

// GetByIDForUpdate loads one restaurant and locks its row.
func (r *RestaurantRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return r.get(ctx, restaurantSelect+` WHERE id = ? FOR UPDATE`, id)
}

func (r *RestaurantRepo) get(ctx context.Context, query string, id uint64) (*model.Restaurant, error) {
	rest, err := scanRestaurant(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("restaurant not found")
	}
	return rest, err
}

// Search returns the restaurants matching f ordered by id.  City, state
// and cuisine are substring matches under the column's case-insensitive
// collation; the zip code must match exactly.
func (r *RestaurantRepo) Search(ctx context.Context, f model.RestaurantFilter) ([]model.Restaurant, error) {
	ds := dialect.From("restaurants").Select(restaurantColumns...).Order(goqu.C("id").Asc())
	if f.City != "" {
		ds = ds.Where(goqu.C("city").ILike(containsPattern(f.City)))
	}
	if f.State != "" {
		ds = ds.Where(goqu.C("state").ILike(containsPattern(f.State)))
	}
	if f.Cuisine != "" {
		ds = ds.Where(goqu.C("cuisine").ILike(containsPattern(f.Cuisine)))
	}
	if f.ZipCode != "" {
		ds = ds.Where(goqu.C("zip_code").Eq(f.ZipCode))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build restaurant search: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Restaurant{}
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rest)
	}
	return out, rows.Err()
}

// IncrementBookings adds one to the restaurant's booking counter.
func (r *RestaurantRepo) IncrementBookings(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE restaurants SET total_bookings = total_bookings + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("restaurant not found")
	}
	return nil
}

// DecrementBookings subtracts one from the counter unless it is already 0.
func (r *RestaurantRepo) DecrementBookings(ctx context.Context, id uint64) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE restaurants SET total_bookings = total_bookings - 1 WHERE id = ? AND total_bookings > 0`, id)
	return err
}

// UpdateRating stores a recomputed mean rating.
func (r *RestaurantRepo) UpdateRating(ctx context.Context, id uint64, rating float64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE restaurants SET rating = ? WHERE id = ?`, rating, id)
	return err
}

// containsPattern builds a LIKE pattern matching s anywhere, with LIKE
// wildcards in s matched literally.
func containsPattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
