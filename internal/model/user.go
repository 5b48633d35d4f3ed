package model

import "time"

// Role names as stored in users.role and carried in the access token's
// "role" claim.
const (
	RoleCustomer          = "Customer"
	RoleRestaurantManager = "RestaurantManager"
	RoleAdmin             = "Admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleRestaurantManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user record as stored in the
// `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address; used for booking confirmations.
//	PasswordHash – bcrypt hashed password.
//	FullName     – display name shown next to reviews.
//	Phone        – optional phone number.
//	Role         – Customer, RestaurantManager or Admin.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Phone        *string   // users.phone (nullable)
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}

// Actor is the authenticated identity performing an operation.  It is
// resolved from the bearer token before any service call.
type Actor struct {
	UserID uint64
	Role   string
	Email  string
}

// Is reports whether the actor holds the given role.
func (a Actor) Is(role string) bool { return a.Role == role }

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored, only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
