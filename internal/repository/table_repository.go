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

// TableRepo reads and writes restaurant_tables.  Slots are stored as a
// comma separated "HH:MM" list in declaration order.
type TableRepo struct {
	q DBTX
}

// NewTableRepo returns a TableRepo bound to db.
func NewTableRepo(db DBTX) *TableRepo { return &TableRepo{q: db} }

const tableSelect = `SELECT id, restaurant_id, size, available_times FROM restaurant_tables`

func scanTable(s rowScanner) (*model.Table, error) {
	var (
		t     model.Table
		slots string
	)
	if err := s.Scan(&t.ID, &t.RestaurantID, &t.Size, &slots); err != nil {
		return nil, err
	}
	t.AvailableTimes = decodeSlots(slots)
	return &t, nil
}

// decodeSlots parses a stored slot list.  Entries that are not valid
// "HH:MM" values can never be booked and are skipped.
func decodeSlots(s string) []model.TimeOfDay {
	out := []model.TimeOfDay{}
	for _, part := range strings.Split(s, ",") {
		t, err := model.ParseClock(part)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Create inserts t and fills in its generated ID.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	const q = `INSERT INTO restaurant_tables (restaurant_id, size, available_times) VALUES (?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, t.RestaurantID, t.Size, model.FormatSlots(t.AvailableTimes))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetForUpdate loads the table only when it belongs to restaurantID and
// locks its row until the transaction ends.
func (r *TableRepo) GetForUpdate(ctx context.Context, restaurantID, tableID uint64) (*model.Table, error) {
	t, err := scanTable(r.q.QueryRowContext(ctx,
		tableSelect+` WHERE id = ? AND restaurant_id = ? FOR UPDATE`, tableID, restaurantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("table not found for this restaurant")
	}
	return t, err
}

// ListByRestaurant returns all tables of one restaurant ordered by id.
func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Table, error) {
	rows, err := r.q.QueryContext(ctx, tableSelect+` WHERE restaurant_id = ? ORDER BY id`, restaurantID)
	if err != nil {
		return nil, err
	}
	return collectTables(rows)
}

// ListByRestaurants returns tables of the given restaurants seating at
// least minSize, ordered by restaurant and id.
func (r *TableRepo) ListByRestaurants(ctx context.Context, restaurantIDs []uint64, minSize int) ([]model.Table, error) {
	if len(restaurantIDs) == 0 {
		return []model.Table{}, nil
	}
	query, args, err := dialect.From("restaurant_tables").
		Select("id", "restaurant_id", "size", "available_times").
		Where(
			goqu.C("restaurant_id").In(restaurantIDs),
			goqu.C("size").Gte(minSize),
		).
		Order(goqu.C("restaurant_id").Asc(), goqu.C("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build table listing: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTables(rows)
}

func collectTables(rows *sql.Rows) ([]model.Table, error) {
	defer rows.Close()
	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
