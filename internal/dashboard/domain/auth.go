package domain

import "time"

// LoginResult is the outcome of a successful (or half-successful) login.
type LoginResult struct {
	// RequiresTwoFactor is set when the password checked out but the user
	// has TOTP enabled. Token then holds a short-lived pending token that
	// is only good for completing the second factor, and UserID is the
	// only account detail disclosed; the full projection waits until the
	// second factor lands.
	RequiresTwoFactor bool        `json:"requiresTwoFactor,omitempty"`
	Token             string      `json:"token,omitempty"`
	UserID            string      `json:"userId,omitempty"`
	User              *PublicUser `json:"user,omitempty"`
}

// MFASetupResponse is returned by 2FA enrollment for display to the user.
// The backup codes are shown exactly once; only fingerprints are stored.
type MFASetupResponse struct {
	Secret      string   `json:"secret"`       // base32, for manual entry
	OTPAuthURL  string   `json:"otpauthUrl"`   // otpauth:// provisioning URI
	QRCode      string   `json:"qrCode"`       // data:image/png;base64,... of the URI
	BackupCodes []string `json:"backupCodes"`
}

// PasswordResetIssue is the internal result of minting a reset token. The
// HTTP layer always answers generically; this struct goes to the mail
// collaborator instead.
type PasswordResetIssue struct {
	Token     string
	ExpiresAt time.Time
	Email     string
	FullName  string
}
