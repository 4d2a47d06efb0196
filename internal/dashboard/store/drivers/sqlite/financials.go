package sqlite

import (
	"context"
	"database/sql"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
)

type financialsRepo struct {
	db dbtx
}

const financialColumns = `id, partner_id, partner_name, period, budget, claimed, paid,
	currency, notes, created_at, updated_at`

func scanFinancial(s interface{ Scan(...any) error }) (domain.FinancialSummary, error) {
	var f domain.FinancialSummary
	var budget, claimed, paid sql.NullFloat64

	err := s.Scan(
		&f.ID, &f.PartnerID, &f.PartnerName, &f.Period, &budget, &claimed, &paid,
		&f.Currency, &f.Notes, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return domain.FinancialSummary{}, mapNotFound(err)
	}
	f.Budget = mapNullFloatPtr(budget)
	f.Claimed = mapNullFloatPtr(claimed)
	f.Paid = mapNullFloatPtr(paid)
	return f, nil
}

func (r *financialsRepo) GetFinancialByID(ctx context.Context, id string) (domain.FinancialSummary, error) {
	return scanFinancial(r.db.QueryRowContext(ctx,
		`SELECT `+financialColumns+` FROM financials WHERE id = ?`, id))
}

func (r *financialsRepo) GetFinancialByKey(ctx context.Context, partnerID, period string) (domain.FinancialSummary, error) {
	return scanFinancial(r.db.QueryRowContext(ctx,
		`SELECT `+financialColumns+` FROM financials WHERE partner_id = ? AND period = ?`,
		partnerID, period))
}

func (r *financialsRepo) ListFinancials(ctx context.Context, filter string) ([]domain.FinancialSummary, error) {
	query := `SELECT ` + financialColumns + ` FROM financials`
	var args []any
	if filter != "" {
		query += ` WHERE partner_id LIKE ?1 OR partner_name LIKE ?1 OR period LIKE ?1`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY partner_id, period`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FinancialSummary
	for rows.Next() {
		f, err := scanFinancial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *financialsRepo) CreateFinancial(ctx context.Context, f domain.FinancialSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO financials (id, partner_id, partner_name, period, budget, claimed, paid, currency, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.PartnerID, f.PartnerName, f.Period,
		mapOptionalFloat(f.Budget), mapOptionalFloat(f.Claimed), mapOptionalFloat(f.Paid),
		f.Currency, f.Notes,
	)
	return mapConstraint(err)
}

func (r *financialsRepo) UpdateFinancial(ctx context.Context, f domain.FinancialSummary) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE financials SET partner_id = ?, partner_name = ?, period = ?, budget = ?,
		   claimed = ?, paid = ?, currency = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		f.PartnerID, f.PartnerName, f.Period, mapOptionalFloat(f.Budget),
		mapOptionalFloat(f.Claimed), mapOptionalFloat(f.Paid), f.Currency, f.Notes, f.ID,
	)
	return mapNoRows(res, err)
}

func (r *financialsRepo) DeleteFinancial(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM financials WHERE id = ?`, id)
	return mapNoRows(res, err)
}
