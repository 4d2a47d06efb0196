package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/cryptox"
	"github.com/wattlehq/partnerdesk/pkg/jwtx"
)

const (
	backupCodeCount = 10

	// totpSkewSetup is the window for confirming enrollment: the exact step
	// plus one either side.
	totpSkewSetup = 1

	// totpSkewLogin is the wider login window: two steps either side, so a
	// code stays valid for roughly a minute of clock drift.
	totpSkewLogin = 2

	qrCodeSize = 200
)

var (
	ErrInvalidTwoFactorCode    = errors.New("invalid two-factor code")
	ErrSetupNotFound           = errors.New("two-factor setup not started")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	ErrTwoFactorNotEnabled     = errors.New("two-factor not enabled")
)

// MFAService implements TOTP enrollment, confirmation, and the second half
// of a two-step login.
type MFAService struct {
	Store  store.Store
	Signer *jwtx.Signer

	// Issuer is the account issuer shown in authenticator apps.
	Issuer string

	// Now is injectable for tests. Nil means time.Now.
	Now func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Setup starts enrollment: generates a secret, provisioning URI, QR image
// and backup codes. TOTP stays disabled until Enable confirms a live code,
// so an abandoned setup never locks anyone out.
func (s *MFAService) Setup(ctx context.Context, userID string) (domain.MFASetupResponse, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFASetupResponse{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.TOTPEnabled {
		return domain.MFASetupResponse{}, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFASetupResponse{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := renderQRDataURI(key)
	if err != nil {
		return domain.MFASetupResponse{}, err
	}

	backupCodes := make([]string, backupCodeCount)
	for i := range backupCodes {
		code, err := cryptox.GenerateBackupCode()
		if err != nil {
			return domain.MFASetupResponse{}, fmt.Errorf("failed to generate backup code: %w", err)
		}
		backupCodes[i] = code
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetTOTPSecret(ctx, userID, key.Secret()); err != nil {
			return fmt.Errorf("failed to store TOTP secret: %w", err)
		}
		// A repeated setup replaces any codes from an earlier attempt.
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear old backup codes: %w", err)
		}
		for _, code := range backupCodes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.FingerprintToken(normalizeBackupCode(code))); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.MFASetupResponse{}, err
	}

	return domain.MFASetupResponse{
		Secret:      key.Secret(),
		OTPAuthURL:  key.URL(),
		QRCode:      qr,
		BackupCodes: backupCodes,
	}, nil
}

// Enable confirms enrollment with a live code and turns TOTP on.
func (s *MFAService) Enable(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.TOTPEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return ErrSetupNotFound
	}

	if !s.validateTOTP(code, *user.TOTPSecret, totpSkewSetup) {
		return ErrInvalidTwoFactorCode
	}

	if err := s.Store.Users().EnableTOTP(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("failed to enable TOTP: %w", err)
	}
	return nil
}

// Disable turns TOTP off after verifying a live code. Secret, backup codes
// and the last-2FA timestamp all go together.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return ErrTwoFactorNotEnabled
	}

	if !s.validateTOTP(code, *user.TOTPSecret, totpSkewSetup) {
		return ErrInvalidTwoFactorCode
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete backup codes: %w", err)
		}
		if err := tx.Users().DisableTOTP(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable TOTP: %w", err)
		}
		return nil
	})
}

// CompleteLogin finishes a two-step login with either a TOTP code or a
// single-use backup code, then issues the full session token. Failures here
// never feed the password lockout counter.
func (s *MFAService) CompleteLogin(ctx context.Context, userID, code string, isBackupCode bool) (domain.LoginResult, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Active {
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return domain.LoginResult{}, ErrTwoFactorNotEnabled
	}

	now := s.now()

	if isBackupCode {
		// Consume the code in the same transaction that records success, so
		// two racing attempts cannot both spend it.
		hash := cryptox.FingerprintToken(normalizeBackupCode(code))
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			ok, err := tx.BackupCodes().VerifyBackupCode(ctx, userID, hash)
			if err != nil {
				return fmt.Errorf("failed to verify backup code: %w", err)
			}
			if !ok {
				return ErrInvalidTwoFactorCode
			}
			if err := tx.BackupCodes().DeleteBackupCode(ctx, userID, hash); err != nil {
				return fmt.Errorf("failed to consume backup code: %w", err)
			}
			return s.recordSuccess(ctx, tx, userID, now)
		})
		if err != nil {
			return domain.LoginResult{}, err
		}
	} else {
		if !s.validateTOTP(code, *user.TOTPSecret, totpSkewLogin) {
			return domain.LoginResult{}, ErrInvalidTwoFactorCode
		}
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			return s.recordSuccess(ctx, tx, userID, now)
		})
		if err != nil {
			return domain.LoginResult{}, err
		}
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

func (s *MFAService) recordSuccess(ctx context.Context, tx store.Tx, userID string, now time.Time) error {
	if err := tx.Users().SetLoginState(ctx, userID, 0, nil); err != nil {
		return fmt.Errorf("failed to reset login state: %w", err)
	}
	if err := tx.Users().StampLastTwoFactor(ctx, userID, now); err != nil {
		return fmt.Errorf("failed to stamp last 2FA: %w", err)
	}
	if err := tx.Users().StampLastLogin(ctx, userID, now); err != nil {
		return fmt.Errorf("failed to stamp last login: %w", err)
	}
	return nil
}

func (s *MFAService) validateTOTP(code, secret string, skew uint) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// normalizeBackupCode makes comparison forgiving about case and whitespace.
func normalizeBackupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// renderQRDataURI encodes the provisioning URI as a PNG data URI suitable
// for an <img> tag.
func renderQRDataURI(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
