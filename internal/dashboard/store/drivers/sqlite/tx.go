package sqlite

import (
	"context"
	"database/sql"

	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // outer DB stays open; caller commits/rolls back

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx starts

func (t *txStore) Users() store.Users                       { return &usersRepo{db: t.tx} }
func (t *txStore) BackupCodes() store.BackupCodes           { return &backupCodesRepo{db: t.tx} }
func (t *txStore) Partners() store.Partners                 { return &partnersRepo{db: t.tx} }
func (t *txStore) ExternalPartners() store.ExternalPartners { return &externalPartnersRepo{db: t.tx} }
func (t *txStore) Personnel() store.Personnel               { return &personnelRepo{db: t.tx} }
func (t *txStore) Deliverables() store.Deliverables         { return &deliverablesRepo{db: t.tx} }
func (t *txStore) Financials() store.Financials             { return &financialsRepo{db: t.tx} }
func (t *txStore) Compliance() store.Compliance             { return &complianceRepo{db: t.tx} }
