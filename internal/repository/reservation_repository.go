package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/iliyamo/booktable/internal/model"
)

// ReservationRepo reads and writes the reservations table.  The date
// column is a MySQL DATE and the time column a TIME; both are written in
// their canonical text forms and read back into model values.
type ReservationRepo struct {
	q DBTX
}

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db DBTX) *ReservationRepo { return &ReservationRepo{q: db} }

const reservationSelect = `SELECT id, user_id, restaurant_id, table_id, date, time, number_of_people, created_at FROM reservations`

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var (
		r       model.Reservation
		clock   string
		created sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.UserID, &r.RestaurantID, &r.TableID, &r.Date, &clock,
		&r.NumberOfPeople, &created); err != nil {
		return nil, err
	}
	t, err := model.ParseTimeOfDay(clock)
	if err != nil {
		return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	r.Time = t
	r.Date = utcDate(r.Date)
	if created.Valid {
		r.CreatedAt = created.Time
	}
	return &r, nil
}

// utcDate drops any zone the driver attached to a DATE value.
func utcDate(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Create inserts r and fills in its generated ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, restaurant_id, table_id, date, time, number_of_people) VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.q.ExecContext(ctx, q, res.UserID, res.RestaurantID, res.TableID,
		res.Date.Format(model.DateLayout), res.Time.SQLTime(), res.NumberOfPeople)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID loads one reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, reservationSelect+` WHERE id = ?`, id)
}

// GetByIDForUpdate loads one reservation and locks its row.
func (r *ReservationRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, reservationSelect+` WHERE id = ? FOR UPDATE`, id)
}

func (r *ReservationRepo) get(ctx context.Context, query string, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("reservation not found")
	}
	return res, err
}

// Delete removes a reservation.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound("reservation not found")
	}
	return nil
}

// FindOverlap returns the earliest reservation on tableID and date whose
// start lies in [from, to], or nil when there is none.  The read takes
// locks on the scanned index range so a concurrent insert into the same
// window waits for this transaction.
func (r *ReservationRepo) FindOverlap(ctx context.Context, tableID uint64, date time.Time, from, to model.TimeOfDay) (*model.Reservation, error) {
	const q = reservationSelect + ` WHERE table_id = ? AND date = ? AND time BETWEEN ? AND ? ORDER BY time LIMIT 1 FOR UPDATE`
	res, err := scanReservation(r.q.QueryRowContext(ctx, q, tableID,
		date.Format(model.DateLayout), from.SQLTime(), to.SQLTime()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// ListByUser returns the user's reservations, newest date first, with the
// restaurant name.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	const q = `SELECT rs.id, r.name, rs.restaurant_id, rs.date, rs.time, rs.table_id, rs.number_of_people
FROM reservations rs
JOIN restaurants r ON r.id = rs.restaurant_id
WHERE rs.user_id = ?
ORDER BY rs.date DESC, rs.time DESC, rs.id DESC`
	rows, err := r.q.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReservationDetail{}
	for rows.Next() {
		var (
			d     model.ReservationDetail
			date  time.Time
			clock string
		)
		if err := rows.Scan(&d.ID, &d.Restaurant, &d.RestaurantID, &date, &clock, &d.TableID, &d.NumberOfPeople); err != nil {
			return nil, err
		}
		if d.Time, err = model.ParseTimeOfDay(clock); err != nil {
			return nil, fmt.Errorf("reservation %d: %w", d.ID, err)
		}
		d.Date = date.Format(model.DateLayout)
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountOnDate counts reservations per restaurant on date.  Restaurants
// without reservations are absent from the map.
func (r *ReservationRepo) CountOnDate(ctx context.Context, restaurantIDs []uint64, date time.Time) (map[uint64]int, error) {
	out := make(map[uint64]int, len(restaurantIDs))
	if len(restaurantIDs) == 0 {
		return out, nil
	}
	query, args, err := dialect.From("reservations").
		Select(goqu.C("restaurant_id"), goqu.COUNT("*")).
		Where(
			goqu.C("restaurant_id").In(restaurantIDs),
			goqu.C("date").Eq(date.Format(model.DateLayout)),
		).
		GroupBy(goqu.C("restaurant_id")).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build reservation count: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id uint64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
