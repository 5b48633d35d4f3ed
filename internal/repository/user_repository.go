package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/booktable/internal/model"
)

// UserRepo reads and writes the users table.  Emails are stored
// lower-cased and trimmed.
type UserRepo struct {
	q DBTX
}

// NewUserRepo returns a UserRepo bound to db.
func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{q: db} }

const userSelect = `SELECT id, email, password_hash, full_name, phone, role, created_at FROM users`

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u (with its password already hashed) and fills in its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, full_name, phone, role) VALUES (?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.FullName, u.Phone, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return model.Conflict("email already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, userSelect+` WHERE email = ? LIMIT 1`, NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.get(ctx, userSelect+` WHERE id = ? LIMIT 1`, id)
}

func (r *UserRepo) get(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u     model.User
		phone sql.NullString
	)
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &phone, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		p := phone.String
		u.Phone = &p
	}
	return &u, nil
}
