package sqlite

import (
	"context"
	"database/sql"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type personnelRepo struct {
	db dbtx
}

const personnelColumns = `id, partner_id, partner_name, name, email, role_title,
	phone, start_date, end_date, created_at, updated_at`

func scanPersonnel(s interface{ Scan(...any) error }) (domain.Personnel, error) {
	var p domain.Personnel
	var startDate, endDate sql.NullTime

	err := s.Scan(
		&p.ID, &p.PartnerID, &p.PartnerName, &p.Name, &p.Email, &p.RoleTitle,
		&p.Phone, &startDate, &endDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Personnel{}, mapNotFound(err)
	}
	p.StartDate = mapNullTimePtr(startDate)
	p.EndDate = mapNullTimePtr(endDate)
	return p, nil
}

func (r *personnelRepo) GetPersonnelByID(ctx context.Context, id string) (domain.Personnel, error) {
	return scanPersonnel(r.db.QueryRowContext(ctx,
		`SELECT `+personnelColumns+` FROM personnel WHERE id = ?`, id))
}

func (r *personnelRepo) GetPersonnelByEmail(ctx context.Context, email string) (domain.Personnel, error) {
	return scanPersonnel(r.db.QueryRowContext(ctx,
		`SELECT `+personnelColumns+` FROM personnel WHERE email = ? COLLATE NOCASE`, email))
}

func (r *personnelRepo) ListPersonnel(ctx context.Context, filter string) ([]domain.Personnel, error) {
	query := `SELECT ` + personnelColumns + ` FROM personnel`
	var args []any
	if filter != "" {
		query += ` WHERE name LIKE ?1 OR email LIKE ?1 OR role_title LIKE ?1 OR partner_name LIKE ?1`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Personnel
	for rows.Next() {
		p, err := scanPersonnel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *personnelRepo) CreatePersonnel(ctx context.Context, p domain.Personnel) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO personnel (id, partner_id, partner_name, name, email, role_title, phone, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PartnerID, p.PartnerName, p.Name, p.Email, p.RoleTitle, p.Phone,
		mapOptionalTime(p.StartDate), mapOptionalTime(p.EndDate),
	)
	return mapConstraint(err)
}

func (r *personnelRepo) UpdatePersonnel(ctx context.Context, p domain.Personnel) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE personnel SET partner_id = ?, partner_name = ?, name = ?, email = ?,
		   role_title = ?, phone = ?, start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.PartnerID, p.PartnerName, p.Name, p.Email,
		p.RoleTitle, p.Phone, mapOptionalTime(p.StartDate), mapOptionalTime(p.EndDate), p.ID,
	)
	return mapNoRows(res, err)
}

func (r *personnelRepo) DeletePersonnel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM personnel WHERE id = ?`, id)
	return mapNoRows(res, err)
}
