package jsonfile

import (
	"context"
	"strings"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

type usersRepo struct {
	r runner
}

// findUser returns a pointer into the dataset so callers can mutate in place.
func findUser(d *fileData, match func(u *domain.User) bool) *domain.User {
	for i := range d.Users {
		if match(&d.Users[i]) {
			return &d.Users[i]
		}
	}
	return nil
}

func (r *usersRepo) getUser(match func(u *domain.User) bool) (domain.User, error) {
	var out domain.User
	err := r.r.run(false, func(d *fileData) error {
		u := findUser(d, match)
		if u == nil {
			return store.ErrNotFound
		}
		out = *u
		return nil
	})
	return out, err
}

// updateUser applies fn to the matched user and persists.
func (r *usersRepo) updateUser(userID string, fn func(u *domain.User)) error {
	return r.r.run(true, func(d *fileData) error {
		u := findUser(d, func(u *domain.User) bool { return u.ID == userID })
		if u == nil {
			return store.ErrNotFound
		}
		fn(u)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getUser(func(u *domain.User) bool { return u.ID == id })
}

func (r *usersRepo) GetUserByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	return r.getUser(func(u *domain.User) bool {
		return strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier)
	})
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUser(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *usersRepo) GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return r.getUser(func(u *domain.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == hash
	})
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	return r.r.run(true, func(d *fileData) error {
		dup := findUser(d, func(e *domain.User) bool {
			return strings.EqualFold(e.Username, u.Username) || strings.EqualFold(e.Email, u.Email)
		})
		if dup != nil {
			return store.ErrAlreadyExists
		}
		now := time.Now().UTC()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		d.Users = append(d.Users, u)
		return nil
	})
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.r.run(false, func(d *fileData) error {
		out = append(out, d.Users...)
		return nil
	})
	return out, err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.updateUser(userID, func(u *domain.User) { u.PasswordHash = newHash })
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	return r.updateUser(userID, func(u *domain.User) { u.Role = role })
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return r.updateUser(userID, func(u *domain.User) { u.Active = active })
}

func (r *usersRepo) SetLoginState(ctx context.Context, userID string, failedLogins int, lockedUntil *time.Time) error {
	return r.updateUser(userID, func(u *domain.User) {
		u.FailedLogins = failedLogins
		u.LockedUntil = lockedUntil
	})
}

func (r *usersRepo) StampLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.updateUser(userID, func(u *domain.User) { u.LastLoginAt = &at })
}

func (r *usersRepo) SetTOTPSecret(ctx context.Context, userID string, secret string) error {
	return r.updateUser(userID, func(u *domain.User) {
		if secret == "" {
			u.TOTPSecret = nil
			return
		}
		u.TOTPSecret = &secret
	})
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string, at time.Time) error {
	return r.updateUser(userID, func(u *domain.User) {
		u.TOTPEnabled = true
		u.LastTwoFactorAt = &at
	})
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string) error {
	return r.updateUser(userID, func(u *domain.User) {
		u.TOTPSecret = nil
		u.TOTPEnabled = false
		u.LastTwoFactorAt = nil
	})
}

func (r *usersRepo) StampLastTwoFactor(ctx context.Context, userID string, at time.Time) error {
	return r.updateUser(userID, func(u *domain.User) { u.LastTwoFactorAt = &at })
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID string, hash string, expires time.Time) error {
	return r.updateUser(userID, func(u *domain.User) {
		u.ResetTokenHash = &hash
		u.ResetTokenExpires = &expires
	})
}

func (r *usersRepo) ClearResetToken(ctx context.Context, userID string) error {
	return r.updateUser(userID, func(u *domain.User) {
		u.ResetTokenHash = nil
		u.ResetTokenExpires = nil
	})
}

func (r *usersRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Users {
			u := &d.Users[i]
			if u.ResetTokenExpires != nil && u.ResetTokenExpires.Before(now) {
				u.ResetTokenHash = nil
				u.ResetTokenExpires = nil
			}
		}
		return nil
	})
}

func (r *usersRepo) ClearExpiredLockouts(ctx context.Context, now time.Time) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Users {
			u := &d.Users[i]
			if u.LockedUntil != nil && u.LockedUntil.Before(now) {
				u.FailedLogins = 0
				u.LockedUntil = nil
			}
		}
		return nil
	})
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	empty := false
	err := r.r.run(false, func(d *fileData) error {
		empty = len(d.Users) == 0
		return nil
	})
	return empty, err
}
