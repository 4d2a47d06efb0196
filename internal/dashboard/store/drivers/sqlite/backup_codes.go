package sqlite

import "context"

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, userID string, codeHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_codes (user_id, code_hash) VALUES (?, ?)`,
		userID, codeHash)
	return mapConstraint(err)
}

func (r *backupCodesRepo) VerifyBackupCode(ctx context.Context, userID string, codeHash string) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ? AND code_hash = ?`,
		userID, codeHash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *backupCodesRepo) DeleteBackupCode(ctx context.Context, userID string, codeHash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = ? AND code_hash = ?`,
		userID, codeHash)
	return err
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}

func (r *backupCodesRepo) CountUserBackupCodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}
