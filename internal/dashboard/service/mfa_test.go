package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
)

func newMFAService(t *testing.T) (*MFAService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Now().UTC()}
	return &MFAService{
		Store:  newTestStore(t),
		Signer: newTestSigner(t),
		Issuer: "PartnerDesk",
		Now:    clock.now,
	}, clock
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      0,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// enrollAndEnable walks a seeded user through setup + confirmation and
// returns the secret and backup codes.
func enrollAndEnable(t *testing.T, svc *MFAService, clock *fakeClock, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := svc.Setup(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, svc.Enable(ctx, userID, codeAt(t, setup.Secret, clock.t)))
	return setup.Secret, setup.BackupCodes
}

func TestSetupLeavesTOTPDisabled(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)

	setup, err := svc.Setup(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OTPAuthURL, "otpauth://totp/")
	// The provisioning URI is scoped to the username, not the address.
	require.Contains(t, setup.OTPAuthURL, ":alice?")
	require.NotContains(t, setup.OTPAuthURL, "alice@example.com")
	require.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	require.Len(t, setup.BackupCodes, backupCodeCount)

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.TOTPEnabled)
	require.NotNil(t, got.TOTPSecret)

	n, err := svc.Store.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount, n)
}

func TestSetupAgainReplacesBackupCodes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)

	first, err := svc.Setup(ctx, u.ID)
	require.NoError(t, err)
	_, err = svc.Setup(ctx, u.ID)
	require.NoError(t, err)

	// The first batch is gone.
	oldHash := cryptox.FingerprintToken(normalizeBackupCode(first.BackupCodes[0]))
	stillThere, err := svc.Store.BackupCodes().VerifyBackupCode(ctx, u.ID, oldHash)
	require.NoError(t, err)
	require.False(t, stillThere)

	n, err := svc.Store.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount, n)
}

func TestEnable(t *testing.T) {
	ctx := context.Background()
	svc, clock := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)

	t.Run("without setup", func(t *testing.T) {
		err := svc.Enable(ctx, u.ID, "123456")
		require.ErrorIs(t, err, ErrSetupNotFound)
	})

	setup, err := svc.Setup(ctx, u.ID)
	require.NoError(t, err)

	t.Run("wrong code", func(t *testing.T) {
		err := svc.Enable(ctx, u.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	})

	t.Run("live code enables", func(t *testing.T) {
		require.NoError(t, svc.Enable(ctx, u.ID, codeAt(t, setup.Secret, clock.t)))

		got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.TOTPEnabled)
		require.NotNil(t, got.LastTwoFactorAt)
	})

	t.Run("enabling twice fails", func(t *testing.T) {
		err := svc.Enable(ctx, u.ID, codeAt(t, setup.Secret, clock.t))
		require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
	})
}

func TestCompleteLoginSkewWindow(t *testing.T) {
	ctx := context.Background()
	svc, clock := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)
	secret, _ := enrollAndEnable(t, svc, clock, u.ID)

	// Codes from up to two steps away are accepted.
	for _, offset := range []time.Duration{0, -60 * time.Second, 60 * time.Second} {
		res, err := svc.CompleteLogin(ctx, u.ID, codeAt(t, secret, clock.t.Add(offset)), false)
		require.NoError(t, err, "offset %s", offset)
		require.NotEmpty(t, res.Token)
		require.False(t, res.RequiresTwoFactor)
	}

	// Three steps away is outside the window.
	_, err := svc.CompleteLogin(ctx, u.ID, codeAt(t, secret, clock.t.Add(-91*time.Second)), false)
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
}

func TestCompleteLoginIssuesFullSession(t *testing.T) {
	ctx := context.Background()
	svc, clock := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", func(u *domain.User) {
		u.FailedLogins = 3
	})
	secret, _ := enrollAndEnable(t, svc, clock, u.ID)

	res, err := svc.CompleteLogin(ctx, u.ID, codeAt(t, secret, clock.t), false)
	require.NoError(t, err)

	claims, err := svc.Signer.Verify(res.Token)
	require.NoError(t, err)
	require.False(t, claims.PendingTwoFactor)
	require.Equal(t, u.ID, claims.Subject)

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLogins)
	require.NotNil(t, got.LastLoginAt)
	require.NotNil(t, got.LastTwoFactorAt)
}

func TestBackupCodeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, clock := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)
	_, codes := enrollAndEnable(t, svc, clock, u.ID)

	// Case and surrounding whitespace are forgiven.
	sloppy := "  " + strings.ToLower(codes[0]) + " "
	res, err := svc.CompleteLogin(ctx, u.ID, sloppy, true)
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	_, err = svc.CompleteLogin(ctx, u.ID, codes[0], true)
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	n, err := svc.Store.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount-1, n)
}

func TestTwoFactorFailuresDoNotFeedLockout(t *testing.T) {
	ctx := context.Background()
	svc, clock := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)
	enrollAndEnable(t, svc, clock, u.ID)

	for i := 0; i < 10; i++ {
		_, err := svc.CompleteLogin(ctx, u.ID, "000000", false)
		require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	}

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, got.FailedLogins)
	require.Nil(t, got.LockedUntil)
}

func TestDisableClearsEverything(t *testing.T) {
	ctx := context.Background()
	svc, clock := newMFAService(t)
	u := seedUser(t, svc.Store, "correct horse", nil)
	secret, _ := enrollAndEnable(t, svc, clock, u.ID)

	t.Run("wrong code leaves state intact", func(t *testing.T) {
		err := svc.Disable(ctx, u.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	})

	require.NoError(t, svc.Disable(ctx, u.ID, codeAt(t, secret, clock.t)))

	got, err := svc.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.TOTPEnabled)
	require.Nil(t, got.TOTPSecret)
	require.Nil(t, got.LastTwoFactorAt)

	n, err := svc.Store.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = svc.CompleteLogin(ctx, u.ID, "123456", false)
	require.ErrorIs(t, err, ErrTwoFactorNotEnabled)
}
