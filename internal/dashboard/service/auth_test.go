package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store/drivers/sqlite"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
	"github.com/wattlehq/partnerdesk/pkg/idx"
	"github.com/wattlehq/partnerdesk/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "partnerdesk-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestSigner(t *testing.T) *jwtx.Signer {
	t.Helper()
	signer, err := jwtx.NewSigner([]byte("0123456789abcdef0123456789abcdef"), "partnerdesk-test")
	require.NoError(t, err)
	return signer
}

// fakeClock gives tests control over the service's idea of now.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuthService(t *testing.T) (*AuthService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Now().UTC()}
	return &AuthService{
		Store:  newTestStore(t),
		Signer: newTestSigner(t),
		Now:    clock.now,
	}, clock
}

func seedUser(t *testing.T, st store.Store, password string, mutate func(u *domain.User)) domain.User {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		FullName:     "Alice Example",
		Role:         domain.RoleUser,
		Active:       true,
	}
	if mutate != nil {
		mutate(&u)
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestAuthenticateHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	seedUser(t, svc.Store, "correct horse", nil)

	for _, identifier := range []string{"alice", "alice@example.com"} {
		res, err := svc.Authenticate(ctx, identifier, "correct horse")
		require.NoError(t, err)
		require.False(t, res.RequiresTwoFactor)
		require.NotEmpty(t, res.Token)
		require.Equal(t, "alice", res.User.Username)

		claims, err := svc.Signer.Verify(res.Token)
		require.NoError(t, err)
		require.False(t, claims.PendingTwoFactor)
		require.Equal(t, "alice", claims.Username)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	seedUser(t, svc.Store, "correct horse", nil)

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive user with right password", func(t *testing.T) {
		inactive := seedUser(t, svc.Store, "hunter22", func(u *domain.User) {
			u.Username = "bob"
			u.Email = "bob@example.com"
			u.Active = false
		})
		_, err := svc.Authenticate(ctx, inactive.Username, "hunter22")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	ctx := context.Background()
	svc, clock := newAuthService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)

	for i := 0; i < MaxFailedLogins; i++ {
		_, err := svc.Authenticate(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, MaxFailedLogins, got.FailedLogins)
	require.NotNil(t, got.LockedUntil)

	// Correct password is irrelevant while locked.
	_, err = svc.Authenticate(ctx, "alice", "correct horse")
	require.ErrorIs(t, err, ErrAccountLocked)

	// The lockout expires of its own accord and the next login heals it.
	clock.advance(LockoutDuration + time.Minute)
	res, err := svc.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	got, err = svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLogins)
	require.Nil(t, got.LockedUntil)
}

func TestFailureCounterResetsOnSuccess(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)

	for i := 0; i < 3; i++ {
		_, _ = svc.Authenticate(ctx, "alice", "wrong")
	}

	_, err := svc.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLogins)
	require.NotNil(t, got.LastLoginAt)
}

func TestAuthenticateWithTOTPEnabledIssuesPendingToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t)
	secret := "JBSWY3DPEHPK3PXP"
	u := seedUser(t, svc.Store, "correct horse", func(u *domain.User) {
		u.TOTPSecret = &secret
		u.TOTPEnabled = true
	})

	res, err := svc.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.True(t, res.RequiresTwoFactor)
	require.NotEmpty(t, res.Token)

	// Only the id crosses the wire while the second factor is pending.
	require.Equal(t, u.ID, res.UserID)
	require.Nil(t, res.User)

	claims, err := svc.Signer.Verify(res.Token)
	require.NoError(t, err)
	require.True(t, claims.PendingTwoFactor)
	require.Equal(t, u.ID, claims.Subject)

	// No last-login stamp until the second factor lands.
	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastLoginAt)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, clock := newAuthService(t)
	u := seedUser(t, svc.Store, "old password", nil)

	t.Run("unknown email yields no token and no error", func(t *testing.T) {
		issue, err := svc.GeneratePasswordResetToken(ctx, "stranger@example.com")
		require.NoError(t, err)
		require.Nil(t, issue)
	})

	t.Run("token resets the password once", func(t *testing.T) {
		issue, err := svc.GeneratePasswordResetToken(ctx, u.Email)
		require.NoError(t, err)
		require.NotNil(t, issue)
		require.NotEmpty(t, issue.Token)
		require.Equal(t, u.Email, issue.Email)

		require.NoError(t, svc.ResetPassword(ctx, issue.Token, "new password"))

		res, err := svc.Authenticate(ctx, "alice", "new password")
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)

		// Single use.
		err = svc.ResetPassword(ctx, issue.Token, "another password")
		require.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		issue, err := svc.GeneratePasswordResetToken(ctx, u.Email)
		require.NoError(t, err)
		require.NotNil(t, issue)

		clock.advance(ResetTokenTTL + time.Minute)
		err = svc.ResetPassword(ctx, issue.Token, "late password")
		require.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("short password rejected", func(t *testing.T) {
		issue, err := svc.GeneratePasswordResetToken(ctx, u.Email)
		require.NoError(t, err)
		require.NotNil(t, issue)

		err = svc.ResetPassword(ctx, issue.Token, "tiny")
		require.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("reset clears a lockout", func(t *testing.T) {
		for i := 0; i < MaxFailedLogins; i++ {
			_, _ = svc.Authenticate(ctx, "alice", "wrong")
		}

		issue, err := svc.GeneratePasswordResetToken(ctx, u.Email)
		require.NoError(t, err)
		require.NoError(t, svc.ResetPassword(ctx, issue.Token, "fresh password"))

		res, err := svc.Authenticate(ctx, "alice", "fresh password")
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)
	})
}
