package sqlite

import (
	"context"
	"database/sql"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type complianceRepo struct {
	db dbtx
}

const complianceColumns = `id, partner_id, partner_name, requirement, status,
	due_date, completed_at, notes, created_at, updated_at`

func scanCompliance(s interface{ Scan(...any) error }) (domain.ComplianceRecord, error) {
	var c domain.ComplianceRecord
	var dueDate, completedAt sql.NullTime

	err := s.Scan(
		&c.ID, &c.PartnerID, &c.PartnerName, &c.Requirement, &c.Status,
		&dueDate, &completedAt, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.ComplianceRecord{}, mapNotFound(err)
	}
	c.DueDate = mapNullTimePtr(dueDate)
	c.CompletedAt = mapNullTimePtr(completedAt)
	return c, nil
}

func (r *complianceRepo) GetComplianceByID(ctx context.Context, id string) (domain.ComplianceRecord, error) {
	return scanCompliance(r.db.QueryRowContext(ctx,
		`SELECT `+complianceColumns+` FROM compliance WHERE id = ?`, id))
}

func (r *complianceRepo) GetComplianceByKey(ctx context.Context, partnerID, requirement string) (domain.ComplianceRecord, error) {
	return scanCompliance(r.db.QueryRowContext(ctx,
		`SELECT `+complianceColumns+` FROM compliance WHERE partner_id = ? AND requirement = ? COLLATE NOCASE`,
		partnerID, requirement))
}

func (r *complianceRepo) ListCompliance(ctx context.Context, filter string) ([]domain.ComplianceRecord, error) {
	query := `SELECT ` + complianceColumns + ` FROM compliance`
	var args []any
	if filter != "" {
		query += ` WHERE partner_id LIKE ?1 OR partner_name LIKE ?1 OR requirement LIKE ?1 OR status LIKE ?1`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY partner_id, requirement`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ComplianceRecord
	for rows.Next() {
		c, err := scanCompliance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *complianceRepo) CreateCompliance(ctx context.Context, c domain.ComplianceRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO compliance (id, partner_id, partner_name, requirement, status, due_date, completed_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PartnerID, c.PartnerName, c.Requirement, c.Status,
		mapOptionalTime(c.DueDate), mapOptionalTime(c.CompletedAt), c.Notes,
	)
	return mapConstraint(err)
}

func (r *complianceRepo) UpdateCompliance(ctx context.Context, c domain.ComplianceRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE compliance SET partner_id = ?, partner_name = ?, requirement = ?, status = ?,
		   due_date = ?, completed_at = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.PartnerID, c.PartnerName, c.Requirement, c.Status,
		mapOptionalTime(c.DueDate), mapOptionalTime(c.CompletedAt), c.Notes, c.ID,
	)
	return mapNoRows(res, err)
}

func (r *complianceRepo) DeleteCompliance(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM compliance WHERE id = ?`, id)
	return mapNoRows(res, err)
}
