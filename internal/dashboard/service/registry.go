package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/idx"
)

// RegistryService is the CRUD layer over the five register collections. It
// assigns IDs and leaves natural-key semantics to the store and importer.
type RegistryService struct {
	Store store.Store
}

// --- partners ---

func (s *RegistryService) ListPartners(ctx context.Context, filter string) ([]domain.Partner, error) {
	return s.Store.Partners().ListPartners(ctx, filter)
}

func (s *RegistryService) GetPartner(ctx context.Context, id string) (domain.Partner, error) {
	return s.Store.Partners().GetPartnerByID(ctx, id)
}

func (s *RegistryService) CreatePartner(ctx context.Context, p domain.Partner) (domain.Partner, error) {
	p.ID = idx.New().String()
	if err := s.Store.Partners().CreatePartner(ctx, p); err != nil {
		return domain.Partner{}, err
	}
	return s.Store.Partners().GetPartnerByID(ctx, p.ID)
}

func (s *RegistryService) UpdatePartner(ctx context.Context, p domain.Partner) (domain.Partner, error) {
	if err := s.Store.Partners().UpdatePartner(ctx, p); err != nil {
		return domain.Partner{}, err
	}
	return s.Store.Partners().GetPartnerByID(ctx, p.ID)
}

func (s *RegistryService) DeletePartner(ctx context.Context, id string) error {
	return s.Store.Partners().DeletePartner(ctx, id)
}

// --- external partners ---

func (s *RegistryService) ListExternalPartners(ctx context.Context, filter string) ([]domain.ExternalPartner, error) {
	return s.Store.ExternalPartners().ListExternalPartners(ctx, filter)
}

func (s *RegistryService) GetExternalPartner(ctx context.Context, id string) (domain.ExternalPartner, error) {
	return s.Store.ExternalPartners().GetExternalPartnerByID(ctx, id)
}

func (s *RegistryService) CreateExternalPartner(ctx context.Context, p domain.ExternalPartner) (domain.ExternalPartner, error) {
	p.ID = idx.New().String()
	if err := s.Store.ExternalPartners().CreateExternalPartner(ctx, p); err != nil {
		return domain.ExternalPartner{}, err
	}
	return s.Store.ExternalPartners().GetExternalPartnerByID(ctx, p.ID)
}

func (s *RegistryService) UpdateExternalPartner(ctx context.Context, p domain.ExternalPartner) (domain.ExternalPartner, error) {
	if err := s.Store.ExternalPartners().UpdateExternalPartner(ctx, p); err != nil {
		return domain.ExternalPartner{}, err
	}
	return s.Store.ExternalPartners().GetExternalPartnerByID(ctx, p.ID)
}

func (s *RegistryService) DeleteExternalPartner(ctx context.Context, id string) error {
	return s.Store.ExternalPartners().DeleteExternalPartner(ctx, id)
}

// --- personnel ---

func (s *RegistryService) ListPersonnel(ctx context.Context, filter string) ([]domain.Personnel, error) {
	return s.Store.Personnel().ListPersonnel(ctx, filter)
}

func (s *RegistryService) GetPersonnel(ctx context.Context, id string) (domain.Personnel, error) {
	return s.Store.Personnel().GetPersonnelByID(ctx, id)
}

func (s *RegistryService) CreatePersonnel(ctx context.Context, p domain.Personnel) (domain.Personnel, error) {
	p.ID = idx.New().String()
	if err := s.Store.Personnel().CreatePersonnel(ctx, p); err != nil {
		return domain.Personnel{}, err
	}
	return s.Store.Personnel().GetPersonnelByID(ctx, p.ID)
}

func (s *RegistryService) UpdatePersonnel(ctx context.Context, p domain.Personnel) (domain.Personnel, error) {
	if err := s.Store.Personnel().UpdatePersonnel(ctx, p); err != nil {
		return domain.Personnel{}, err
	}
	return s.Store.Personnel().GetPersonnelByID(ctx, p.ID)
}

func (s *RegistryService) DeletePersonnel(ctx context.Context, id string) error {
	return s.Store.Personnel().DeletePersonnel(ctx, id)
}

// --- deliverables ---

func (s *RegistryService) ListDeliverables(ctx context.Context, filter string) ([]domain.Deliverable, error) {
	return s.Store.Deliverables().ListDeliverables(ctx, filter)
}

func (s *RegistryService) GetDeliverable(ctx context.Context, id string) (domain.Deliverable, error) {
	return s.Store.Deliverables().GetDeliverableByID(ctx, id)
}

func (s *RegistryService) CreateDeliverable(ctx context.Context, d domain.Deliverable) (domain.Deliverable, error) {
	d.ID = idx.New().String()
	if err := s.Store.Deliverables().CreateDeliverable(ctx, d); err != nil {
		return domain.Deliverable{}, err
	}
	return s.Store.Deliverables().GetDeliverableByID(ctx, d.ID)
}

func (s *RegistryService) UpdateDeliverable(ctx context.Context, d domain.Deliverable) (domain.Deliverable, error) {
	if err := s.Store.Deliverables().UpdateDeliverable(ctx, d); err != nil {
		return domain.Deliverable{}, err
	}
	return s.Store.Deliverables().GetDeliverableByID(ctx, d.ID)
}

func (s *RegistryService) DeleteDeliverable(ctx context.Context, id string) error {
	return s.Store.Deliverables().DeleteDeliverable(ctx, id)
}

// --- financials ---

func (s *RegistryService) ListFinancials(ctx context.Context, filter string) ([]domain.FinancialSummary, error) {
	return s.Store.Financials().ListFinancials(ctx, filter)
}

func (s *RegistryService) GetFinancial(ctx context.Context, id string) (domain.FinancialSummary, error) {
	return s.Store.Financials().GetFinancialByID(ctx, id)
}

func (s *RegistryService) CreateFinancial(ctx context.Context, f domain.FinancialSummary) (domain.FinancialSummary, error) {
	f.ID = idx.New().String()
	if err := s.Store.Financials().CreateFinancial(ctx, f); err != nil {
		return domain.FinancialSummary{}, err
	}
	return s.Store.Financials().GetFinancialByID(ctx, f.ID)
}

func (s *RegistryService) UpdateFinancial(ctx context.Context, f domain.FinancialSummary) (domain.FinancialSummary, error) {
	if err := s.Store.Financials().UpdateFinancial(ctx, f); err != nil {
		return domain.FinancialSummary{}, err
	}
	return s.Store.Financials().GetFinancialByID(ctx, f.ID)
}

func (s *RegistryService) DeleteFinancial(ctx context.Context, id string) error {
	return s.Store.Financials().DeleteFinancial(ctx, id)
}

// --- compliance ---

func (s *RegistryService) ListCompliance(ctx context.Context, filter string) ([]domain.ComplianceRecord, error) {
	return s.Store.Compliance().ListCompliance(ctx, filter)
}

func (s *RegistryService) GetCompliance(ctx context.Context, id string) (domain.ComplianceRecord, error) {
	return s.Store.Compliance().GetComplianceByID(ctx, id)
}

func (s *RegistryService) CreateCompliance(ctx context.Context, c domain.ComplianceRecord) (domain.ComplianceRecord, error) {
	c.ID = idx.New().String()
	if err := s.Store.Compliance().CreateCompliance(ctx, c); err != nil {
		return domain.ComplianceRecord{}, err
	}
	return s.Store.Compliance().GetComplianceByID(ctx, c.ID)
}

func (s *RegistryService) UpdateCompliance(ctx context.Context, c domain.ComplianceRecord) (domain.ComplianceRecord, error) {
	if err := s.Store.Compliance().UpdateCompliance(ctx, c); err != nil {
		return domain.ComplianceRecord{}, err
	}
	return s.Store.Compliance().GetComplianceByID(ctx, c.ID)
}

func (s *RegistryService) DeleteCompliance(ctx context.Context, id string) error {
	return s.Store.Compliance().DeleteCompliance(ctx, id)
}

// --- CSV export ---

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func csvFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *RegistryService) ExportPartnersCSV(ctx context.Context, w io.Writer) error {
	partners, err := s.ListPartners(ctx, "")
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(partners))
	for _, p := range partners {
		rows = append(rows, []string{
			p.PartnerID, p.Name, p.Type, p.Country, p.ContactName,
			p.ContactEmail, p.Phone, p.Status, csvDate(p.JoinedAt), p.Notes,
		})
	}
	return writeCSV(w, []string{
		"Partner ID", "Name", "Type", "Country", "Contact Name",
		"Contact Email", "Phone", "Status", "Joined", "Notes",
	}, rows)
}

func (s *RegistryService) ExportExternalPartnersCSV(ctx context.Context, w io.Writer) error {
	externals, err := s.ListExternalPartners(ctx, "")
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(externals))
	for _, p := range externals {
		rows = append(rows, []string{
			p.Name, p.Organisation, p.Country, p.ContactEmail, p.Involvement, p.Notes,
		})
	}
	return writeCSV(w, []string{
		"Name", "Organisation", "Country", "Contact Email", "Involvement", "Notes",
	}, rows)
}

func (s *RegistryService) ExportPersonnelCSV(ctx context.Context, w io.Writer) error {
	people, err := s.ListPersonnel(ctx, "")
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, []string{
			p.PartnerID, p.PartnerName, p.Name, p.Email, p.RoleTitle,
			p.Phone, csvDate(p.StartDate), csvDate(p.EndDate),
		})
	}
	return writeCSV(w, []string{
		"Partner ID", "Partner", "Name", "Email", "Role", "Phone", "Start", "End",
	}, rows)
}

func (s *RegistryService) ExportDeliverablesCSV(ctx context.Context, w io.Writer) error {
	deliverables, err := s.ListDeliverables(ctx, "")
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(deliverables))
	for _, d := range deliverables {
		rows = append(rows, []string{
			d.PartnerID, d.PartnerName, d.Number, d.Title, d.WorkPackage,
			csvDate(d.DueDate), csvDate(d.SubmittedAt), d.Status, d.Notes,
		})
	}
	return writeCSV(w, []string{
		"Partner ID", "Partner", "Number", "Title", "Work Package",
		"Due", "Submitted", "Status", "Notes",
	}, rows)
}

func (s *RegistryService) ExportFinancialsCSV(ctx context.Context, w io.Writer) error {
	financials, err := s.ListFinancials(ctx, "")
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(financials))
	for _, f := range financials {
		rows = append(rows, []string{
			f.PartnerID, f.PartnerName, f.Period, csvFloat(f.Budget),
			csvFloat(f.Claimed), csvFloat(f.Paid), f.Currency, f.Notes,
		})
	}
	return writeCSV(w, []string{
		"Partner ID", "Partner", "Period", "Budget", "Claimed", "Paid", "Currency", "Notes",
	}, rows)
}

func (s *RegistryService) ExportComplianceCSV(ctx context.Context, w io.Writer) error {
	records, err := s.ListCompliance(ctx, "")
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, c := range records {
		rows = append(rows, []string{
			c.PartnerID, c.PartnerName, c.Requirement, c.Status,
			csvDate(c.DueDate), csvDate(c.CompletedAt), c.Notes,
		})
	}
	return writeCSV(w, []string{
		"Partner ID", "Partner", "Requirement", "Status", "Due", "Completed", "Notes",
	}, rows)
}
