package sqlite

import (
	"context"
	"database/sql"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type deliverablesRepo struct {
	db dbtx
}

const deliverableColumns = `id, partner_id, partner_name, number, title, work_package,
	due_date, submitted_at, status, notes, created_at, updated_at`

func scanDeliverable(s interface{ Scan(...any) error }) (domain.Deliverable, error) {
	var d domain.Deliverable
	var dueDate, submittedAt sql.NullTime

	err := s.Scan(
		&d.ID, &d.PartnerID, &d.PartnerName, &d.Number, &d.Title, &d.WorkPackage,
		&dueDate, &submittedAt, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.Deliverable{}, mapNotFound(err)
	}
	d.DueDate = mapNullTimePtr(dueDate)
	d.SubmittedAt = mapNullTimePtr(submittedAt)
	return d, nil
}

func (r *deliverablesRepo) GetDeliverableByID(ctx context.Context, id string) (domain.Deliverable, error) {
	return scanDeliverable(r.db.QueryRowContext(ctx,
		`SELECT `+deliverableColumns+` FROM deliverables WHERE id = ?`, id))
}

func (r *deliverablesRepo) GetDeliverableByKey(ctx context.Context, partnerID, number string) (domain.Deliverable, error) {
	return scanDeliverable(r.db.QueryRowContext(ctx,
		`SELECT `+deliverableColumns+` FROM deliverables WHERE partner_id = ? AND number = ?`,
		partnerID, number))
}

func (r *deliverablesRepo) ListDeliverables(ctx context.Context, filter string) ([]domain.Deliverable, error) {
	query := `SELECT ` + deliverableColumns + ` FROM deliverables`
	var args []any
	if filter != "" {
		query += ` WHERE number LIKE ?1 OR title LIKE ?1 OR work_package LIKE ?1
			OR status LIKE ?1 OR partner_name LIKE ?1`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY partner_id, number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *deliverablesRepo) CreateDeliverable(ctx context.Context, d domain.Deliverable) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deliverables (id, partner_id, partner_name, number, title, work_package,
		   due_date, submitted_at, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.PartnerID, d.PartnerName, d.Number, d.Title, d.WorkPackage,
		mapOptionalTime(d.DueDate), mapOptionalTime(d.SubmittedAt), d.Status, d.Notes,
	)
	return mapConstraint(err)
}

func (r *deliverablesRepo) UpdateDeliverable(ctx context.Context, d domain.Deliverable) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deliverables SET partner_id = ?, partner_name = ?, number = ?, title = ?,
		   work_package = ?, due_date = ?, submitted_at = ?, status = ?, notes = ?,
		   updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		d.PartnerID, d.PartnerName, d.Number, d.Title,
		d.WorkPackage, mapOptionalTime(d.DueDate), mapOptionalTime(d.SubmittedAt),
		d.Status, d.Notes, d.ID,
	)
	return mapNoRows(res, err)
}

func (r *deliverablesRepo) DeleteDeliverable(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deliverables WHERE id = ?`, id)
	return mapNoRows(res, err)
}
