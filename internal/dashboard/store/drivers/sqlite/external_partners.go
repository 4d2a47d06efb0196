package sqlite

import (
	"context"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type externalPartnersRepo struct {
	db dbtx
}

const externalPartnerColumns = `id, name, organisation, country, contact_email,
	involvement, notes, created_at, updated_at`

func scanExternalPartner(s interface{ Scan(...any) error }) (domain.ExternalPartner, error) {
	var p domain.ExternalPartner
	err := s.Scan(
		&p.ID, &p.Name, &p.Organisation, &p.Country, &p.ContactEmail,
		&p.Involvement, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.ExternalPartner{}, mapNotFound(err)
	}
	return p, nil
}

func (r *externalPartnersRepo) GetExternalPartnerByID(ctx context.Context, id string) (domain.ExternalPartner, error) {
	return scanExternalPartner(r.db.QueryRowContext(ctx,
		`SELECT `+externalPartnerColumns+` FROM external_partners WHERE id = ?`, id))
}

func (r *externalPartnersRepo) FindExternalPartnerByName(ctx context.Context, name string) (domain.ExternalPartner, error) {
	return scanExternalPartner(r.db.QueryRowContext(ctx,
		`SELECT `+externalPartnerColumns+` FROM external_partners WHERE name = ? COLLATE NOCASE`,
		name))
}

func (r *externalPartnersRepo) ListExternalPartners(ctx context.Context, filter string) ([]domain.ExternalPartner, error) {
	query := `SELECT ` + externalPartnerColumns + ` FROM external_partners`
	var args []any
	if filter != "" {
		query += ` WHERE name LIKE ?1 OR organisation LIKE ?1 OR country LIKE ?1 OR contact_email LIKE ?1`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExternalPartner
	for rows.Next() {
		p, err := scanExternalPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *externalPartnersRepo) CreateExternalPartner(ctx context.Context, p domain.ExternalPartner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO external_partners (id, name, organisation, country, contact_email, involvement, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Organisation, p.Country, p.ContactEmail, p.Involvement, p.Notes,
	)
	return mapConstraint(err)
}

func (r *externalPartnersRepo) UpdateExternalPartner(ctx context.Context, p domain.ExternalPartner) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE external_partners SET name = ?, organisation = ?, country = ?,
		   contact_email = ?, involvement = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Organisation, p.Country, p.ContactEmail, p.Involvement, p.Notes, p.ID,
	)
	return mapNoRows(res, err)
}

func (r *externalPartnersRepo) DeleteExternalPartner(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM external_partners WHERE id = ?`, id)
	return mapNoRows(res, err)
}
