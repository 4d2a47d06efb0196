package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/idx"
)

// sheetHandler processes the data rows of one routed sheet and reports how
// many rows it stored out of how many it saw.
type sheetHandler func(ctx context.Context, cols columnIndex, rows [][]string) (processed, total int)

// sheetHandlers is the explicit routing table from normalized sheet names to
// handlers. The keys cover the names partner registers actually ship with.
func (imp *Importer) sheetHandlers() map[string]sheetHandler {
	return map[string]sheetHandler{
		"master register":      imp.handlePartners,
		"partners":             imp.handlePartners,
		"partner register":     imp.handlePartners,
		"external partners":    imp.handleExternalPartners,
		"key personnel":        imp.handlePersonnel,
		"personnel":            imp.handlePersonnel,
		"deliverables":         imp.handleDeliverables,
		"financial summary":    imp.handleFinancials,
		"financials":           imp.handleFinancials,
		"compliance reporting": imp.handleCompliance,
		"compliance":           imp.handleCompliance,
	}
}

// Field alias lists, normalized. The source spreadsheets are not
// schema-controlled, so each logical field tolerates the spellings seen in
// the wild. Order is priority.
var (
	aliasPartnerID    = []string{"partner id", "partner no", "partner number", "id", "ref"}
	aliasPartnerName  = []string{"partner name", "name", "organisation", "organization", "partner"}
	aliasPartnerType  = []string{"type", "partner type", "category"}
	aliasCountry      = []string{"country"}
	aliasContactName  = []string{"contact name", "contact person", "contact"}
	aliasContactEmail = []string{"contact email", "email", "e mail"}
	aliasPhone        = []string{"phone", "telephone", "phone number", "contact phone"}
	aliasStatus       = []string{"status"}
	aliasJoined       = []string{"joined", "date joined", "join date"}
	aliasNotes        = []string{"notes", "comments", "remarks"}

	aliasOrganisation = []string{"organisation", "organization", "company", "institution"}
	aliasInvolvement  = []string{"involvement", "role", "engagement"}

	aliasPersonName = []string{"name", "full name", "person", "personnel name"}
	aliasRoleTitle  = []string{"role", "position", "title", "job title"}
	aliasStartDate  = []string{"start date", "start", "from"}
	aliasEndDate    = []string{"end date", "end", "to"}

	aliasNumber      = []string{"deliverable number", "deliverable no", "number", "no", "deliverable"}
	aliasTitle       = []string{"title", "deliverable title", "description"}
	aliasWorkPackage = []string{"work package", "wp"}
	aliasDueDate     = []string{"due date", "due", "deadline"}
	aliasSubmitted   = []string{"submitted", "submission date", "date submitted"}

	aliasPeriod  = []string{"period", "reporting period", "quarter", "year"}
	aliasBudget  = []string{"budget", "total budget", "budget eur"}
	aliasClaimed = []string{"claimed", "total claimed", "claimed amount"}
	aliasPaid    = []string{"paid", "total paid", "paid amount"}

	aliasCurrency    = []string{"currency"}
	aliasRequirement = []string{"requirement", "obligation", "report", "item"}
	aliasCompleted   = []string{"completed", "date completed", "completion date"}
)

// rowPreview gives log lines enough context to find the offending row in
// the source file without dumping the whole thing.
func rowPreview(row []string) string {
	var parts []string
	for _, cell := range row {
		if v := sanitizeCell(cell); v != "" {
			parts = append(parts, v)
			if len(parts) == 3 {
				break
			}
		}
	}
	preview := strings.Join(parts, " | ")
	if len(preview) > 80 {
		preview = preview[:80] + "…"
	}
	return preview
}

// setIf assigns v to dst unless the row had nothing for it, so a re-import
// with sparser columns never blanks data entered through the dashboard.
func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setIfTime(dst **time.Time, v *time.Time) {
	if v != nil {
		*dst = v
	}
}

func setIfFloat(dst **float64, v *float64) {
	if v != nil {
		*dst = v
	}
}

// partnerRef resolves the partner reference for dependent sheets: the
// explicit partner ID column when present, else the partner name.
func partnerRef(cols columnIndex, row []string) (id, name string) {
	id = cols.value(row, aliasPartnerID...)
	name = cols.value(row, "partner name", "partner", "organisation", "organization")
	return id, name
}

func (imp *Importer) handlePartners(ctx context.Context, cols columnIndex, rows [][]string) (int, int) {
	processed, total := 0, 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		total++

		name := cols.value(row, aliasPartnerName...)
		ptype := cols.value(row, aliasPartnerType...)
		email := cols.value(row, aliasContactEmail...)
		if name == "" || ptype == "" || email == "" {
			imp.logger.Warn("partner row missing required fields",
				slog.String("row", rowPreview(row)))
			continue
		}

		p := domain.Partner{
			PartnerID:    cols.value(row, aliasPartnerID...),
			Name:         name,
			Type:         ptype,
			Country:      cols.value(row, aliasCountry...),
			ContactName:  cols.value(row, aliasContactName...),
			ContactEmail: email,
			Phone:        cols.value(row, aliasPhone...),
			Status:       cols.value(row, aliasStatus...),
			JoinedAt:     parseDate(cols.value(row, aliasJoined...)),
			Notes:        cols.value(row, aliasNotes...),
		}

		if err := imp.upsertPartner(ctx, p); err != nil {
			imp.logger.Error("failed to store partner row",
				slog.String("partner", p.Name), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, total
}

func (imp *Importer) upsertPartner(ctx context.Context, p domain.Partner) error {
	repo := imp.store.Partners()

	var existing domain.Partner
	err := store.ErrNotFound
	if p.PartnerID != "" {
		existing, err = repo.GetPartnerByPartnerID(ctx, p.PartnerID)
	}
	if errors.Is(err, store.ErrNotFound) {
		existing, err = repo.FindPartnerByNameEmail(ctx, p.Name, p.ContactEmail)
		if err == nil && p.PartnerID == "" {
			// Loose match: two distinct partners sharing name+email would
			// merge here. Known reconciliation risk, surfaced in the log.
			imp.logger.Warn("partner matched by name+email fallback",
				slog.String("partner", p.Name),
				slog.String("record_id", existing.ID))
		}
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if errors.Is(err, store.ErrNotFound) {
		p.ID = idx.New().String()
		return repo.CreatePartner(ctx, p)
	}

	updated := existing
	setIf(&updated.PartnerID, p.PartnerID)
	setIf(&updated.Name, p.Name)
	setIf(&updated.Type, p.Type)
	setIf(&updated.Country, p.Country)
	setIf(&updated.ContactName, p.ContactName)
	setIf(&updated.ContactEmail, p.ContactEmail)
	setIf(&updated.Phone, p.Phone)
	setIf(&updated.Status, p.Status)
	setIfTime(&updated.JoinedAt, p.JoinedAt)
	setIf(&updated.Notes, p.Notes)
	return repo.UpdatePartner(ctx, updated)
}

func (imp *Importer) handleExternalPartners(ctx context.Context, cols columnIndex, rows [][]string) (int, int) {
	processed, total := 0, 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		total++

		name := cols.value(row, aliasPartnerName...)
		if name == "" {
			imp.logger.Warn("external partner row missing name",
				slog.String("row", rowPreview(row)))
			continue
		}

		p := domain.ExternalPartner{
			Name:         name,
			Organisation: cols.value(row, aliasOrganisation...),
			Country:      cols.value(row, aliasCountry...),
			ContactEmail: cols.value(row, aliasContactEmail...),
			Involvement:  cols.value(row, aliasInvolvement...),
			Notes:        cols.value(row, aliasNotes...),
		}

		if err := imp.upsertExternalPartner(ctx, p); err != nil {
			imp.logger.Error("failed to store external partner row",
				slog.String("name", p.Name), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, total
}

func (imp *Importer) upsertExternalPartner(ctx context.Context, p domain.ExternalPartner) error {
	repo := imp.store.ExternalPartners()

	existing, err := repo.FindExternalPartnerByName(ctx, p.Name)
	if errors.Is(err, store.ErrNotFound) {
		p.ID = idx.New().String()
		return repo.CreateExternalPartner(ctx, p)
	}
	if err != nil {
		return err
	}

	updated := existing
	setIf(&updated.Organisation, p.Organisation)
	setIf(&updated.Country, p.Country)
	setIf(&updated.ContactEmail, p.ContactEmail)
	setIf(&updated.Involvement, p.Involvement)
	setIf(&updated.Notes, p.Notes)
	return repo.UpdateExternalPartner(ctx, updated)
}

func (imp *Importer) handlePersonnel(ctx context.Context, cols columnIndex, rows [][]string) (int, int) {
	processed, total := 0, 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		total++

		name := cols.value(row, aliasPersonName...)
		email := cols.value(row, aliasContactEmail...)
		if name == "" || email == "" {
			imp.logger.Warn("personnel row missing required fields",
				slog.String("row", rowPreview(row)))
			continue
		}

		partnerID, partnerName := partnerRef(cols, row)
		p := domain.Personnel{
			PartnerID:   partnerID,
			PartnerName: partnerName,
			Name:        name,
			Email:       email,
			RoleTitle:   cols.value(row, aliasRoleTitle...),
			Phone:       cols.value(row, aliasPhone...),
			StartDate:   parseDate(cols.value(row, aliasStartDate...)),
			EndDate:     parseDate(cols.value(row, aliasEndDate...)),
		}

		if err := imp.upsertPersonnel(ctx, p); err != nil {
			imp.logger.Error("failed to store personnel row",
				slog.String("email", p.Email), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, total
}

func (imp *Importer) upsertPersonnel(ctx context.Context, p domain.Personnel) error {
	repo := imp.store.Personnel()

	existing, err := repo.GetPersonnelByEmail(ctx, p.Email)
	if errors.Is(err, store.ErrNotFound) {
		p.ID = idx.New().String()
		return repo.CreatePersonnel(ctx, p)
	}
	if err != nil {
		return err
	}

	updated := existing
	setIf(&updated.PartnerID, p.PartnerID)
	setIf(&updated.PartnerName, p.PartnerName)
	setIf(&updated.Name, p.Name)
	setIf(&updated.RoleTitle, p.RoleTitle)
	setIf(&updated.Phone, p.Phone)
	setIfTime(&updated.StartDate, p.StartDate)
	setIfTime(&updated.EndDate, p.EndDate)
	return repo.UpdatePersonnel(ctx, updated)
}

func (imp *Importer) handleDeliverables(ctx context.Context, cols columnIndex, rows [][]string) (int, int) {
	processed, total := 0, 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		total++

		partnerID, partnerName := partnerRef(cols, row)
		ref := partnerID
		if ref == "" {
			ref = partnerName
		}
		number := cols.value(row, aliasNumber...)
		if ref == "" || number == "" {
			imp.logger.Warn("deliverable row missing partner reference or number",
				slog.String("row", rowPreview(row)))
			continue
		}

		d := domain.Deliverable{
			PartnerID:   ref,
			PartnerName: partnerName,
			Number:      number,
			Title:       cols.value(row, aliasTitle...),
			WorkPackage: cols.value(row, aliasWorkPackage...),
			DueDate:     parseDate(cols.value(row, aliasDueDate...)),
			SubmittedAt: parseDate(cols.value(row, aliasSubmitted...)),
			Status:      cols.value(row, aliasStatus...),
			Notes:       cols.value(row, aliasNotes...),
		}

		if err := imp.upsertDeliverable(ctx, d); err != nil {
			imp.logger.Error("failed to store deliverable row",
				slog.String("number", d.Number), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, total
}

func (imp *Importer) upsertDeliverable(ctx context.Context, d domain.Deliverable) error {
	repo := imp.store.Deliverables()

	existing, err := repo.GetDeliverableByKey(ctx, d.PartnerID, d.Number)
	if errors.Is(err, store.ErrNotFound) {
		d.ID = idx.New().String()
		return repo.CreateDeliverable(ctx, d)
	}
	if err != nil {
		return err
	}

	updated := existing
	setIf(&updated.PartnerName, d.PartnerName)
	setIf(&updated.Title, d.Title)
	setIf(&updated.WorkPackage, d.WorkPackage)
	setIfTime(&updated.DueDate, d.DueDate)
	setIfTime(&updated.SubmittedAt, d.SubmittedAt)
	setIf(&updated.Status, d.Status)
	setIf(&updated.Notes, d.Notes)
	return repo.UpdateDeliverable(ctx, updated)
}

func (imp *Importer) handleFinancials(ctx context.Context, cols columnIndex, rows [][]string) (int, int) {
	processed, total := 0, 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		total++

		partnerID, partnerName := partnerRef(cols, row)
		ref := partnerID
		if ref == "" {
			ref = partnerName
		}
		if ref == "" {
			imp.logger.Warn("financial row missing partner reference",
				slog.String("row", rowPreview(row)))
			continue
		}

		f := domain.FinancialSummary{
			PartnerID:   ref,
			PartnerName: partnerName,
			Period:      cols.value(row, aliasPeriod...),
			Budget:      parseMoney(cols.value(row, aliasBudget...)),
			Claimed:     parseMoney(cols.value(row, aliasClaimed...)),
			Paid:        parseMoney(cols.value(row, aliasPaid...)),
			Currency:    cols.value(row, aliasCurrency...),
			Notes:       cols.value(row, aliasNotes...),
		}

		if err := imp.upsertFinancial(ctx, f); err != nil {
			imp.logger.Error("failed to store financial row",
				slog.String("partner", f.PartnerID), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, total
}

func (imp *Importer) upsertFinancial(ctx context.Context, f domain.FinancialSummary) error {
	repo := imp.store.Financials()

	existing, err := repo.GetFinancialByKey(ctx, f.PartnerID, f.Period)
	if errors.Is(err, store.ErrNotFound) {
		f.ID = idx.New().String()
		return repo.CreateFinancial(ctx, f)
	}
	if err != nil {
		return err
	}

	updated := existing
	setIf(&updated.PartnerName, f.PartnerName)
	setIfFloat(&updated.Budget, f.Budget)
	setIfFloat(&updated.Claimed, f.Claimed)
	setIfFloat(&updated.Paid, f.Paid)
	setIf(&updated.Currency, f.Currency)
	setIf(&updated.Notes, f.Notes)
	return repo.UpdateFinancial(ctx, updated)
}

func (imp *Importer) handleCompliance(ctx context.Context, cols columnIndex, rows [][]string) (int, int) {
	processed, total := 0, 0
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		total++

		partnerID, partnerName := partnerRef(cols, row)
		ref := partnerID
		if ref == "" {
			ref = partnerName
		}
		requirement := cols.value(row, aliasRequirement...)
		if ref == "" || requirement == "" {
			imp.logger.Warn("compliance row missing partner reference or requirement",
				slog.String("row", rowPreview(row)))
			continue
		}

		c := domain.ComplianceRecord{
			PartnerID:   ref,
			PartnerName: partnerName,
			Requirement: requirement,
			Status:      cols.value(row, aliasStatus...),
			DueDate:     parseDate(cols.value(row, aliasDueDate...)),
			CompletedAt: parseDate(cols.value(row, aliasCompleted...)),
			Notes:       cols.value(row, aliasNotes...),
		}

		if err := imp.upsertCompliance(ctx, c); err != nil {
			imp.logger.Error("failed to store compliance row",
				slog.String("requirement", c.Requirement), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, total
}

func (imp *Importer) upsertCompliance(ctx context.Context, c domain.ComplianceRecord) error {
	repo := imp.store.Compliance()

	existing, err := repo.GetComplianceByKey(ctx, c.PartnerID, c.Requirement)
	if errors.Is(err, store.ErrNotFound) {
		c.ID = idx.New().String()
		return repo.CreateCompliance(ctx, c)
	}
	if err != nil {
		return err
	}

	updated := existing
	setIf(&updated.PartnerName, c.PartnerName)
	setIf(&updated.Status, c.Status)
	setIfTime(&updated.DueDate, c.DueDate)
	setIfTime(&updated.CompletedAt, c.CompletedAt)
	setIf(&updated.Notes, c.Notes)
	return repo.UpdateCompliance(ctx, updated)
}

// checkHandlers verifies the routing table at construction: a nil handler is
// a programming error worth failing fast on.
func checkHandlers(handlers map[string]sheetHandler) error {
	for name, h := range handlers {
		if h == nil {
			return fmt.Errorf("nil handler registered for sheet %q", name)
		}
	}
	return nil
}
