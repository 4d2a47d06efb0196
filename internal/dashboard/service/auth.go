package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
	"github.com/wattlehq/partnerdesk/pkg/jwtx"
)

const (
	// MaxFailedLogins is the number of consecutive failed password attempts
	// before an account locks.
	MaxFailedLogins = 5

	// LockoutDuration is how long a locked account stays locked. Expired
	// lockouts self-heal on the next access.
	LockoutDuration = 15 * time.Minute

	// ResetTokenTTL is the lifetime of a password reset token.
	ResetTokenTTL = time.Hour

	// MinPasswordLength is enforced on reset and provisioning.
	MinPasswordLength = 6
)

var (
	// ErrInvalidCredentials deliberately covers unknown users, inactive
	// users, and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountLocked     = errors.New("account temporarily locked")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrPasswordTooShort  = errors.New("password too short")
)

// AuthService implements the password side of login: credential checks,
// the failure counter and lockout, password reset, and session issuance.
// The second factor lives in MFAService.
type AuthService struct {
	Store  store.Store
	Signer *jwtx.Signer

	// Now is injectable for tests. Nil means time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Authenticate checks identifier+password and either issues a full session
// token or, for TOTP-enabled users, a short-lived pending token that is only
// good for completing the second factor.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (domain.LoginResult, error) {
	user, err := s.Store.Users().GetUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Active {
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	// Lockout is checked before the password so a locked account leaks
	// nothing about whether the password was right.
	locked, err := s.IsAccountLocked(ctx, &user)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if locked {
		return domain.LoginResult{}, ErrAccountLocked
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if hErr := s.HandleFailedLogin(ctx, user); hErr != nil {
			return domain.LoginResult{}, hErr
		}
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	now := s.now()

	if user.TOTPEnabled {
		pending, err := s.Signer.Sign(jwtx.NewPendingClaims(user.ID, s.Signer.Issuer(), now))
		if err != nil {
			return domain.LoginResult{}, err
		}
		return domain.LoginResult{
			RequiresTwoFactor: true,
			Token:             pending,
			UserID:            user.ID,
		}, nil
	}

	if user.FailedLogins > 0 || user.LockedUntil != nil {
		if err := s.Store.Users().SetLoginState(ctx, user.ID, 0, nil); err != nil {
			return domain.LoginResult{}, fmt.Errorf("failed to reset login state: %w", err)
		}
	}
	if err := s.Store.Users().StampLastLogin(ctx, user.ID, now); err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to stamp last login: %w", err)
	}
	user.LastLoginAt = &now

	token, err := s.Signer.Sign(jwtx.NewSessionClaims(
		user.ID, user.Username, user.Email, string(user.Role),
		s.Signer.Issuer(), jwtx.DefaultSessionTTL, now,
	))
	if err != nil {
		return domain.LoginResult{}, err
	}

	pub := user.Public()
	return domain.LoginResult{Token: token, User: &pub}, nil
}

// HandleFailedLogin bumps the failure counter and locks the account once it
// reaches the threshold.
func (s *AuthService) HandleFailedLogin(ctx context.Context, user domain.User) error {
	failed := user.FailedLogins + 1

	var lockedUntil *time.Time
	if failed >= MaxFailedLogins {
		until := s.now().Add(LockoutDuration)
		lockedUntil = &until
	}

	if err := s.Store.Users().SetLoginState(ctx, user.ID, failed, lockedUntil); err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}
	return nil
}

// IsAccountLocked reports whether the user is currently locked out. An
// expired lockout is healed in place: the counter resets and the passed-in
// user is updated to match.
func (s *AuthService) IsAccountLocked(ctx context.Context, user *domain.User) (bool, error) {
	if user.LockedUntil == nil {
		return false, nil
	}
	if user.LockedUntil.After(s.now()) {
		return true, nil
	}

	if err := s.Store.Users().SetLoginState(ctx, user.ID, 0, nil); err != nil {
		return false, fmt.Errorf("failed to clear expired lockout: %w", err)
	}
	user.FailedLogins = 0
	user.LockedUntil = nil
	return false, nil
}

// GeneratePasswordResetToken mints a single-use reset token when an active
// user matches the email. A nil issue with a nil error means no match; the
// HTTP layer answers identically either way so addresses cannot be probed.
func (s *AuthService) GeneratePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetIssue, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Active {
		return nil, nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	expires := s.now().Add(ResetTokenTTL)
	if err := s.Store.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), expires); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return &domain.PasswordResetIssue{
		Token:     token,
		ExpiresAt: expires,
		Email:     user.Email,
		FullName:  user.FullName,
	}, nil
}

// ResetPassword consumes a reset token and sets a new password. The token
// and any lockout state are cleared in the same transaction.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.Store.Users().GetUserByResetTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}
	if user.ResetTokenExpires == nil || user.ResetTokenExpires.Before(s.now()) {
		return ErrInvalidResetToken
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Users().ClearResetToken(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to clear reset token: %w", err)
		}
		if err := tx.Users().SetLoginState(ctx, user.ID, 0, nil); err != nil {
			return fmt.Errorf("failed to clear lockout: %w", err)
		}
		return nil
	})
}
