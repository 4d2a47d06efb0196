package domain

import "time"

// Role is the user's coarse authorization level. There is no scope system;
// the dashboard only distinguishes administrators from regular users.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool { return r == RoleAdmin || r == RoleUser }

type User struct {
	ID           string
	Username     string
	Email        string // unique
	PasswordHash string // argon2id encoded
	FullName     string
	Role         Role
	Active       bool

	// Lockout state. FailedLogins resets to zero on a successful login or
	// when an expired lockout is observed.
	FailedLogins int
	LockedUntil  *time.Time
	LastLoginAt  *time.Time

	// TOTP state. TOTPSecret may be set while TOTPEnabled is still false:
	// that is the enrolled-but-unconfirmed window.
	TOTPSecret      *string // base32
	TOTPEnabled     bool
	LastTwoFactorAt *time.Time

	// Password reset state. The hash of the reset token, never the token
	// itself. Single use, 1 hour expiry.
	ResetTokenHash    *string
	ResetTokenExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the projection of a user that is safe to return to clients.
// It never carries the password hash, TOTP secret, or reset token.
type PublicUser struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	TOTPEnabled bool       `json:"totpEnabled"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Public returns the client-safe projection of u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		Active:      u.Active,
		TOTPEnabled: u.TOTPEnabled,
		LastLoginAt: u.LastLoginAt,
	}
}
