package sqlite

import (
	"context"
	"database/sql"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type partnersRepo struct {
	db dbtx
}

const partnerColumns = `id, partner_id, name, type, country, contact_name, contact_email,
	phone, status, joined_at, notes, created_at, updated_at`

func scanPartner(s interface{ Scan(...any) error }) (domain.Partner, error) {
	var p domain.Partner
	var joinedAt sql.NullTime

	err := s.Scan(
		&p.ID, &p.PartnerID, &p.Name, &p.Type, &p.Country, &p.ContactName, &p.ContactEmail,
		&p.Phone, &p.Status, &joinedAt, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Partner{}, mapNotFound(err)
	}
	p.JoinedAt = mapNullTimePtr(joinedAt)
	return p, nil
}

func (r *partnersRepo) GetPartnerByID(ctx context.Context, id string) (domain.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE id = ?`, id))
}

func (r *partnersRepo) GetPartnerByPartnerID(ctx context.Context, partnerID string) (domain.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE partner_id = ? AND partner_id <> ''`,
		partnerID))
}

func (r *partnersRepo) FindPartnerByNameEmail(ctx context.Context, name, email string) (domain.Partner, error) {
	return scanPartner(r.db.QueryRowContext(ctx,
		`SELECT `+partnerColumns+` FROM partners
		 WHERE name = ? COLLATE NOCASE AND contact_email = ? COLLATE NOCASE`,
		name, email))
}

func (r *partnersRepo) ListPartners(ctx context.Context, filter string) ([]domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners`
	var args []any
	if filter != "" {
		query += ` WHERE name LIKE ?1 OR type LIKE ?1 OR country LIKE ?1
			OR contact_name LIKE ?1 OR contact_email LIKE ?1 OR partner_id LIKE ?1`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *partnersRepo) CreatePartner(ctx context.Context, p domain.Partner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partners (id, partner_id, name, type, country, contact_name,
		   contact_email, phone, status, joined_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PartnerID, p.Name, p.Type, p.Country, p.ContactName,
		p.ContactEmail, p.Phone, p.Status, mapOptionalTime(p.JoinedAt), p.Notes,
	)
	return mapConstraint(err)
}

func (r *partnersRepo) UpdatePartner(ctx context.Context, p domain.Partner) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE partners SET partner_id = ?, name = ?, type = ?, country = ?,
		   contact_name = ?, contact_email = ?, phone = ?, status = ?,
		   joined_at = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.PartnerID, p.Name, p.Type, p.Country,
		p.ContactName, p.ContactEmail, p.Phone, p.Status,
		mapOptionalTime(p.JoinedAt), p.Notes, p.ID,
	)
	return mapNoRows(res, err)
}

func (r *partnersRepo) DeletePartner(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM partners WHERE id = ?`, id)
	return mapNoRows(res, err)
}
