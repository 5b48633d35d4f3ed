package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/booktable/internal/model"
)

// ReviewRepo reads and writes the reviews table.  A unique key on
// (user_id, restaurant_id) backs the one-review-per-user rule.
type ReviewRepo struct {
	q DBTX
}

// NewReviewRepo returns a ReviewRepo bound to db.
func NewReviewRepo(db DBTX) *ReviewRepo { return &ReviewRepo{q: db} }

// Create inserts rev.  A second review by the same user for the same
// restaurant yields a conflict error.
func (r *ReviewRepo) Create(ctx context.Context, rev *model.Review) error {
	const q = `INSERT INTO reviews (user_id, restaurant_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, rev.UserID, rev.RestaurantID, rev.Rating, rev.Comment, rev.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return model.Conflict("you have already reviewed this restaurant")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rev.ID = uint64(id)
	return nil
}

// Exists reports whether userID already reviewed restaurantID.
func (r *ReviewRepo) Exists(ctx context.Context, userID, restaurantID uint64) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM reviews WHERE user_id = ? AND restaurant_id = ? LIMIT 1`,
		userID, restaurantID).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Totals returns the sum and count of the restaurant's ratings.
func (r *ReviewRepo) Totals(ctx context.Context, restaurantID uint64) (sum, count int, err error) {
	err = r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE restaurant_id = ?`,
		restaurantID).Scan(&sum, &count)
	return sum, count, err
}

// ListByRestaurant returns the restaurant's reviews with author names,
// newest first.
func (r *ReviewRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.ReviewView, error) {
	const q = `SELECT rv.id, u.full_name, rv.rating, rv.comment, rv.created_at
FROM reviews rv
JOIN users u ON u.id = rv.user_id
WHERE rv.restaurant_id = ?
ORDER BY rv.created_at DESC, rv.id DESC`
	rows, err := r.q.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ReviewView{}
	for rows.Next() {
		var (
			v       model.ReviewView
			comment sql.NullString
			created sql.NullTime
		)
		if err := rows.Scan(&v.ID, &v.UserName, &v.Rating, &comment, &created); err != nil {
			return nil, err
		}
		if comment.Valid {
			c := comment.String
			v.Comment = &c
		}
		if created.Valid {
			v.Date = created.Time.UTC().Format(model.DateLayout)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
