package store

import (
	"context"
	"errors"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Two drivers implement it: sqlite
// (the relational backend) and jsonfile (the document backend used when no
// database is configured). The backend is chosen once at startup; nothing
// above this interface branches on which one is in use.
type Store interface {
	Users() Users
	BackupCodes() BackupCodes
	Partners() Partners
	ExternalPartners() ExternalPartners
	Personnel() Personnel
	Deliverables() Deliverables
	Financials() Financials
	Compliance() Compliance

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn errors
	// and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByIdentifier matches either username or email. Used by login.
	GetUserByIdentifier(ctx context.Context, identifier string) (domain.User, error)

	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByResetTokenHash looks up a user holding the given reset token
	// fingerprint regardless of expiry; the service checks the clock.
	GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	ListUsers(ctx context.Context) ([]domain.User, error)

	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
	SetActive(ctx context.Context, userID string, active bool) error

	// SetLoginState writes the failed-login counter and lockout timestamp
	// together; they always change as a pair.
	SetLoginState(ctx context.Context, userID string, failedLogins int, lockedUntil *time.Time) error

	StampLastLogin(ctx context.Context, userID string, at time.Time) error

	// SetTOTPSecret stores an enrolled-but-unconfirmed secret. An empty
	// secret clears it.
	SetTOTPSecret(ctx context.Context, userID string, secret string) error

	// EnableTOTP flips the enabled flag and stamps last_2fa_at.
	EnableTOTP(ctx context.Context, userID string, at time.Time) error

	// DisableTOTP clears secret, enabled flag, and last_2fa_at.
	DisableTOTP(ctx context.Context, userID string) error

	StampLastTwoFactor(ctx context.Context, userID string, at time.Time) error

	SetResetToken(ctx context.Context, userID string, hash string, expires time.Time) error
	ClearResetToken(ctx context.Context, userID string) error

	// DeleteExpiredResetTokens is housekeeping.
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) error

	// ClearExpiredLockouts is housekeeping; lockouts also self-heal lazily
	// on access, this just keeps the table tidy.
	ClearExpiredLockouts(ctx context.Context, now time.Time) error

	// IsEmpty reports whether any users exist (bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code fingerprint for a user.
	CreateBackupCode(ctx context.Context, userID string, codeHash string) error

	// VerifyBackupCode checks if a backup code fingerprint exists for a user.
	VerifyBackupCode(ctx context.Context, userID string, codeHash string) (bool, error)

	// DeleteBackupCode removes a specific backup code after use.
	DeleteBackupCode(ctx context.Context, userID string, codeHash string) error

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUserBackupCodes returns the number of unused codes remaining.
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}

type Partners interface {
	GetPartnerByID(ctx context.Context, id string) (domain.Partner, error)

	// GetPartnerByPartnerID looks up by the natural key (e.g. "P-07").
	GetPartnerByPartnerID(ctx context.Context, partnerID string) (domain.Partner, error)

	// FindPartnerByNameEmail is the loose secondary match used by the
	// importer when a row carries no partner ID.
	FindPartnerByNameEmail(ctx context.Context, name, email string) (domain.Partner, error)

	// ListPartners returns partners, optionally filtered by a free-text
	// match over name, type, country and contact fields.
	ListPartners(ctx context.Context, filter string) ([]domain.Partner, error)

	CreatePartner(ctx context.Context, p domain.Partner) error
	UpdatePartner(ctx context.Context, p domain.Partner) error
	DeletePartner(ctx context.Context, id string) error
}

type ExternalPartners interface {
	GetExternalPartnerByID(ctx context.Context, id string) (domain.ExternalPartner, error)
	FindExternalPartnerByName(ctx context.Context, name string) (domain.ExternalPartner, error)
	ListExternalPartners(ctx context.Context, filter string) ([]domain.ExternalPartner, error)
	CreateExternalPartner(ctx context.Context, p domain.ExternalPartner) error
	UpdateExternalPartner(ctx context.Context, p domain.ExternalPartner) error
	DeleteExternalPartner(ctx context.Context, id string) error
}

type Personnel interface {
	GetPersonnelByID(ctx context.Context, id string) (domain.Personnel, error)

	// GetPersonnelByEmail looks up by the natural key.
	GetPersonnelByEmail(ctx context.Context, email string) (domain.Personnel, error)

	ListPersonnel(ctx context.Context, filter string) ([]domain.Personnel, error)
	CreatePersonnel(ctx context.Context, p domain.Personnel) error
	UpdatePersonnel(ctx context.Context, p domain.Personnel) error
	DeletePersonnel(ctx context.Context, id string) error
}

type Deliverables interface {
	GetDeliverableByID(ctx context.Context, id string) (domain.Deliverable, error)

	// GetDeliverableByKey looks up by the composite natural key.
	GetDeliverableByKey(ctx context.Context, partnerID, number string) (domain.Deliverable, error)

	ListDeliverables(ctx context.Context, filter string) ([]domain.Deliverable, error)
	CreateDeliverable(ctx context.Context, d domain.Deliverable) error
	UpdateDeliverable(ctx context.Context, d domain.Deliverable) error
	DeleteDeliverable(ctx context.Context, id string) error
}

type Financials interface {
	GetFinancialByID(ctx context.Context, id string) (domain.FinancialSummary, error)
	GetFinancialByKey(ctx context.Context, partnerID, period string) (domain.FinancialSummary, error)
	ListFinancials(ctx context.Context, filter string) ([]domain.FinancialSummary, error)
	CreateFinancial(ctx context.Context, f domain.FinancialSummary) error
	UpdateFinancial(ctx context.Context, f domain.FinancialSummary) error
	DeleteFinancial(ctx context.Context, id string) error
}

type Compliance interface {
	GetComplianceByID(ctx context.Context, id string) (domain.ComplianceRecord, error)
	GetComplianceByKey(ctx context.Context, partnerID, requirement string) (domain.ComplianceRecord, error)
	ListCompliance(ctx context.Context, filter string) ([]domain.ComplianceRecord, error)
	CreateCompliance(ctx context.Context, c domain.ComplianceRecord) error
	UpdateCompliance(ctx context.Context, c domain.ComplianceRecord) error
	DeleteCompliance(ctx context.Context, id string) error
}
