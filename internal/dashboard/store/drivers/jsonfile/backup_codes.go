package jsonfile

import (
	"context"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

type backupCodesRepo struct {
	r runner
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, userID string, codeHash string) error {
	return r.r.run(true, func(d *fileData) error {
		for _, c := range d.BackupCodes {
			if c.UserID == userID && c.CodeHash == codeHash {
				return store.ErrAlreadyExists
			}
		}
		d.BackupCodes = append(d.BackupCodes, backupCode{
			UserID:    userID,
			CodeHash:  codeHash,
			CreatedAt: time.Now().UTC(),
		})
		return nil
	})
}

func (r *backupCodesRepo) VerifyBackupCode(ctx context.Context, userID string, codeHash string) (bool, error) {
	found := false
	err := r.r.run(false, func(d *fileData) error {
		for _, c := range d.BackupCodes {
			if c.UserID == userID && c.CodeHash == codeHash {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *backupCodesRepo) DeleteBackupCode(ctx context.Context, userID string, codeHash string) error {
	return r.r.run(true, func(d *fileData) error {
		kept := d.BackupCodes[:0]
		for _, c := range d.BackupCodes {
			if c.UserID == userID && c.CodeHash == codeHash {
				continue
			}
			kept = append(kept, c)
		}
		d.BackupCodes = kept
		return nil
	})
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	return r.r.run(true, func(d *fileData) error {
		kept := d.BackupCodes[:0]
		for _, c := range d.BackupCodes {
			if c.UserID == userID {
				continue
			}
			kept = append(kept, c)
		}
		d.BackupCodes = kept
		return nil
	})
}

func (r *backupCodesRepo) CountUserBackupCodes(ctx context.Context, userID string) (int, error) {
	count := 0
	err := r.r.run(false, func(d *fileData) error {
		for _, c := range d.BackupCodes {
			if c.UserID == userID {
				count++
			}
		}
		return nil
	})
	return count, err
}
