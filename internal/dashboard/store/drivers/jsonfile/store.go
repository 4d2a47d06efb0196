// Package jsonfile implements the store over a single JSON document on disk.
// It is the fallback backend for installs without a database: every collection
// lives in one file, loaded at startup and rewritten atomically on each write.
package jsonfile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

type backupCode struct {
	UserID    string    `json:"userId"`
	CodeHash  string    `json:"codeHash"`
	CreatedAt time.Time `json:"createdAt"`
}

type fileData struct {
	Users            []domain.User             `json:"users"`
	BackupCodes      []backupCode              `json:"backupCodes"`
	Partners         []domain.Partner          `json:"partners"`
	ExternalPartners []domain.ExternalPartner  `json:"externalPartners"`
	Personnel        []domain.Personnel        `json:"personnel"`
	Deliverables     []domain.Deliverable      `json:"deliverables"`
	Financials       []domain.FinancialSummary `json:"financials"`
	Compliance       []domain.ComplianceRecord `json:"compliance"`
}

// Store is a document-file backed store.Store. A single mutex serialises all
// access; the dataset is the size of one project's register, so contention is
// not a concern.
type Store struct {
	path string
	mu   sync.Mutex
	data *fileData
}

var _ store.Store = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	s := &Store{path: path, data: &fileData{}}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run, start empty. The file is created on first write.
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	default:
		if err := json.Unmarshal(raw, s.data); err != nil {
			return nil, fmt.Errorf("parse store file %s: %w", path, err)
		}
	}
	return s, nil
}

// persist writes the document atomically: marshal to a sibling temp file,
// then rename over the target. Callers must hold s.mu.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".partnerdesk-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// runner executes repo logic against the right dataset: the live store data
// under lock, or a transaction's working copy.
type runner interface {
	run(write bool, fn func(d *fileData) error) error
}

type storeRunner struct{ s *Store }

func (r storeRunner) run(write bool, fn func(d *fileData) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := fn(r.s.data); err != nil {
		return err
	}
	if write {
		return r.s.persist()
	}
	return nil
}

func (s *Store) Users() store.Users                       { return &usersRepo{storeRunner{s}} }
func (s *Store) BackupCodes() store.BackupCodes           { return &backupCodesRepo{storeRunner{s}} }
func (s *Store) Partners() store.Partners                 { return &partnersRepo{storeRunner{s}} }
func (s *Store) ExternalPartners() store.ExternalPartners { return &externalPartnersRepo{storeRunner{s}} }
func (s *Store) Personnel() store.Personnel               { return &personnelRepo{storeRunner{s}} }
func (s *Store) Deliverables() store.Deliverables         { return &deliverablesRepo{storeRunner{s}} }
func (s *Store) Financials() store.Financials             { return &financialsRepo{storeRunner{s}} }
func (s *Store) Compliance() store.Compliance             { return &complianceRepo{storeRunner{s}} }

// ApplyMigrations is a no-op for the document backend; the schema is implicit
// in the document shape and unknown fields are dropped on next save.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}
	return nil
}

// Tx locks the store for the duration of the transaction and hands out repos
// bound to a deep copy. Commit swaps the copy in and persists it; Rollback
// discards it. Either one releases the lock.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()

	working := &fileData{}
	raw, err := json.Marshal(s.data)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := json.Unmarshal(raw, working); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return &txStore{s: s, working: working}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type txStore struct {
	s       *Store
	working *fileData
	done    bool
}

var _ store.Tx = (*txStore)(nil)

type txRunner struct{ tx *txStore }

func (r txRunner) run(write bool, fn func(d *fileData) error) error {
	if r.tx.done {
		return sql.ErrTxDone
	}
	return fn(r.tx.working)
}

func (t *txStore) Users() store.Users                       { return &usersRepo{txRunner{t}} }
func (t *txStore) BackupCodes() store.BackupCodes           { return &backupCodesRepo{txRunner{t}} }
func (t *txStore) Partners() store.Partners                 { return &partnersRepo{txRunner{t}} }
func (t *txStore) ExternalPartners() store.ExternalPartners { return &externalPartnersRepo{txRunner{t}} }
func (t *txStore) Personnel() store.Personnel               { return &personnelRepo{txRunner{t}} }
func (t *txStore) Deliverables() store.Deliverables         { return &deliverablesRepo{txRunner{t}} }
func (t *txStore) Financials() store.Financials             { return &financialsRepo{txRunner{t}} }
func (t *txStore) Compliance() store.Compliance             { return &complianceRepo{txRunner{t}} }

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return t.s.Ping(ctx) }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

func (t *txStore) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.s.data = t.working
	err := t.s.persist()
	t.s.mu.Unlock()
	return err
}

func (t *txStore) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}
