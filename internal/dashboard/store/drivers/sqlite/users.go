package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, full_name, role, active,
	failed_logins, locked_until, last_login_at,
	totp_secret, totp_enabled, last_2fa_at,
	reset_token_hash, reset_token_expires,
	created_at, updated_at`

func scanUser(s interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var lockedUntil, lastLogin, last2FA, resetExpires sql.NullTime
	var totpSecret, resetHash sql.NullString

	err := s.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.Active,
		&u.FailedLogins, &lockedUntil, &lastLogin,
		&totpSecret, &u.TOTPEnabled, &last2FA,
		&resetHash, &resetExpires,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.LastTwoFactorAt = mapNullTimePtr(last2FA)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	u.ResetTokenHash = mapNullStringPtr(resetHash)
	u.ResetTokenExpires = mapNullTimePtr(resetExpires)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username = ? COLLATE NOCASE OR email = ? COLLATE NOCASE`,
		identifier, identifier))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
}

func (r *usersRepo) GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = ?`, hash))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, full_name, role, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.Active,
	)
	return mapConstraint(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID)
	return err
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		role, userID)
	return err
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, userID)
	return err
}

func (r *usersRepo) SetLoginState(ctx context.Context, userID string, failedLogins int, lockedUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_logins = ?, locked_until = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		failedLogins, mapOptionalTime(lockedUntil), userID)
	return err
}

func (r *usersRepo) StampLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at, userID)
	return err
}

func (r *usersRepo) SetTOTPSecret(ctx context.Context, userID string, secret string) error {
	var val sql.NullString
	if secret != "" {
		val = sql.NullString{String: secret, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		val, userID)
	return err
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled = 1, last_2fa_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at, userID)
	return err
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET totp_secret = NULL, totp_enabled = 0, last_2fa_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		userID)
	return err
}

func (r *usersRepo) StampLastTwoFactor(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_2fa_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at, userID)
	return err
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID string, hash string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = ?, reset_token_expires = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hash, expires, userID)
	return err
}

func (r *usersRepo) ClearResetToken(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID)
	return err
}

func (r *usersRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL
		 WHERE reset_token_expires IS NOT NULL AND reset_token_expires < ?`,
		now)
	return err
}

func (r *usersRepo) ClearExpiredLockouts(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_logins = 0, locked_until = NULL
		 WHERE locked_until IS NOT NULL AND locked_until < ?`,
		now)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
