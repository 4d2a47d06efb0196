package jsonfile

import (
	"context"
	"strings"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

// matchAny reports whether any field contains the filter, case-insensitively.
// An empty filter matches everything.
func matchAny(filter string, fields ...string) bool {
	if filter == "" {
		return true
	}
	filter = strings.ToLower(filter)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), filter) {
			return true
		}
	}
	return false
}

func stamp(createdAt *time.Time, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// --- partners ---

type partnersRepo struct {
	r runner
}

func (r *partnersRepo) get(match func(p *domain.Partner) bool) (domain.Partner, error) {
	var out domain.Partner
	err := r.r.run(false, func(d *fileData) error {
		for i := range d.Partners {
			if match(&d.Partners[i]) {
				out = d.Partners[i]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *partnersRepo) GetPartnerByID(ctx context.Context, id string) (domain.Partner, error) {
	return r.get(func(p *domain.Partner) bool { return p.ID == id })
}

func (r *partnersRepo) GetPartnerByPartnerID(ctx context.Context, partnerID string) (domain.Partner, error) {
	return r.get(func(p *domain.Partner) bool {
		return p.PartnerID != "" && p.PartnerID == partnerID
	})
}

func (r *partnersRepo) FindPartnerByNameEmail(ctx context.Context, name, email string) (domain.Partner, error) {
	return r.get(func(p *domain.Partner) bool {
		return strings.EqualFold(p.Name, name) && strings.EqualFold(p.ContactEmail, email)
	})
}

func (r *partnersRepo) ListPartners(ctx context.Context, filter string) ([]domain.Partner, error) {
	var out []domain.Partner
	err := r.r.run(false, func(d *fileData) error {
		for _, p := range d.Partners {
			if matchAny(filter, p.Name, p.Type, p.Country, p.ContactName, p.ContactEmail, p.PartnerID) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *partnersRepo) CreatePartner(ctx context.Context, p domain.Partner) error {
	return r.r.run(true, func(d *fileData) error {
		stamp(&p.CreatedAt, &p.UpdatedAt)
		d.Partners = append(d.Partners, p)
		return nil
	})
}

func (r *partnersRepo) UpdatePartner(ctx context.Context, p domain.Partner) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Partners {
			if d.Partners[i].ID == p.ID {
				p.CreatedAt = d.Partners[i].CreatedAt
				p.UpdatedAt = time.Now().UTC()
				d.Partners[i] = p
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (r *partnersRepo) DeletePartner(ctx context.Context, id string) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Partners {
			if d.Partners[i].ID == id {
				d.Partners = append(d.Partners[:i], d.Partners[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// --- external partners ---

type externalPartnersRepo struct {
	r runner
}

func (r *externalPartnersRepo) get(match func(p *domain.ExternalPartner) bool) (domain.ExternalPartner, error) {
	var out domain.ExternalPartner
	err := r.r.run(false, func(d *fileData) error {
		for i := range d.ExternalPartners {
			if match(&d.ExternalPartners[i]) {
				out = d.ExternalPartners[i]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *externalPartnersRepo) GetExternalPartnerByID(ctx context.Context, id string) (domain.ExternalPartner, error) {
	return r.get(func(p *domain.ExternalPartner) bool { return p.ID == id })
}

func (r *externalPartnersRepo) FindExternalPartnerByName(ctx context.Context, name string) (domain.ExternalPartner, error) {
	return r.get(func(p *domain.ExternalPartner) bool { return strings.EqualFold(p.Name, name) })
}

func (r *externalPartnersRepo) ListExternalPartners(ctx context.Context, filter string) ([]domain.ExternalPartner, error) {
	var out []domain.ExternalPartner
	err := r.r.run(false, func(d *fileData) error {
		for _, p := range d.ExternalPartners {
			if matchAny(filter, p.Name, p.Organisation, p.Country, p.ContactEmail) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *externalPartnersRepo) CreateExternalPartner(ctx context.Context, p domain.ExternalPartner) error {
	return r.r.run(true, func(d *fileData) error {
		stamp(&p.CreatedAt, &p.UpdatedAt)
		d.ExternalPartners = append(d.ExternalPartners, p)
		return nil
	})
}

func (r *externalPartnersRepo) UpdateExternalPartner(ctx context.Context, p domain.ExternalPartner) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.ExternalPartners {
			if d.ExternalPartners[i].ID == p.ID {
				p.CreatedAt = d.ExternalPartners[i].CreatedAt
				p.UpdatedAt = time.Now().UTC()
				d.ExternalPartners[i] = p
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (r *externalPartnersRepo) DeleteExternalPartner(ctx context.Context, id string) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.ExternalPartners {
			if d.ExternalPartners[i].ID == id {
				d.ExternalPartners = append(d.ExternalPartners[:i], d.ExternalPartners[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// --- personnel ---

type personnelRepo struct {
	r runner
}

func (r *personnelRepo) get(match func(p *domain.Personnel) bool) (domain.Personnel, error) {
	var out domain.Personnel
	err := r.r.run(false, func(d *fileData) error {
		for i := range d.Personnel {
			if match(&d.Personnel[i]) {
				out = d.Personnel[i]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *personnelRepo) GetPersonnelByID(ctx context.Context, id string) (domain.Personnel, error) {
	return r.get(func(p *domain.Personnel) bool { return p.ID == id })
}

func (r *personnelRepo) GetPersonnelByEmail(ctx context.Context, email string) (domain.Personnel, error) {
	return r.get(func(p *domain.Personnel) bool { return strings.EqualFold(p.Email, email) })
}

func (r *personnelRepo) ListPersonnel(ctx context.Context, filter string) ([]domain.Personnel, error) {
	var out []domain.Personnel
	err := r.r.run(false, func(d *fileData) error {
		for _, p := range d.Personnel {
			if matchAny(filter, p.Name, p.Email, p.RoleTitle, p.PartnerName) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *personnelRepo) CreatePersonnel(ctx context.Context, p domain.Personnel) error {
	return r.r.run(true, func(d *fileData) error {
		stamp(&p.CreatedAt, &p.UpdatedAt)
		d.Personnel = append(d.Personnel, p)
		return nil
	})
}

func (r *personnelRepo) UpdatePersonnel(ctx context.Context, p domain.Personnel) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Personnel {
			if d.Personnel[i].ID == p.ID {
				p.CreatedAt = d.Personnel[i].CreatedAt
				p.UpdatedAt = time.Now().UTC()
				d.Personnel[i] = p
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (r *personnelRepo) DeletePersonnel(ctx context.Context, id string) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Personnel {
			if d.Personnel[i].ID == id {
				d.Personnel = append(d.Personnel[:i], d.Personnel[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// --- deliverables ---

type deliverablesRepo struct {
	r runner
}

func (r *deliverablesRepo) get(match func(d *domain.Deliverable) bool) (domain.Deliverable, error) {
	var out domain.Deliverable
	err := r.r.run(false, func(d *fileData) error {
		for i := range d.Deliverables {
			if match(&d.Deliverables[i]) {
				out = d.Deliverables[i]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *deliverablesRepo) GetDeliverableByID(ctx context.Context, id string) (domain.Deliverable, error) {
	return r.get(func(d *domain.Deliverable) bool { return d.ID == id })
}

func (r *deliverablesRepo) GetDeliverableByKey(ctx context.Context, partnerID, number string) (domain.Deliverable, error) {
	return r.get(func(d *domain.Deliverable) bool {
		return d.PartnerID == partnerID && strings.EqualFold(d.Number, number)
	})
}

func (r *deliverablesRepo) ListDeliverables(ctx context.Context, filter string) ([]domain.Deliverable, error) {
	var out []domain.Deliverable
	err := r.r.run(false, func(d *fileData) error {
		for _, del := range d.Deliverables {
			if matchAny(filter, del.Number, del.Title, del.WorkPackage, del.Status, del.PartnerName) {
				out = append(out, del)
			}
		}
		return nil
	})
	return out, err
}

func (r *deliverablesRepo) CreateDeliverable(ctx context.Context, del domain.Deliverable) error {
	return r.r.run(true, func(d *fileData) error {
		stamp(&del.CreatedAt, &del.UpdatedAt)
		d.Deliverables = append(d.Deliverables, del)
		return nil
	})
}

func (r *deliverablesRepo) UpdateDeliverable(ctx context.Context, del domain.Deliverable) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Deliverables {
			if d.Deliverables[i].ID == del.ID {
				del.CreatedAt = d.Deliverables[i].CreatedAt
				del.UpdatedAt = time.Now().UTC()
				d.Deliverables[i] = del
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (r *deliverablesRepo) DeleteDeliverable(ctx context.Context, id string) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Deliverables {
			if d.Deliverables[i].ID == id {
				d.Deliverables = append(d.Deliverables[:i], d.Deliverables[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// --- financials ---

type financialsRepo struct {
	r runner
}

func (r *financialsRepo) get(match func(f *domain.FinancialSummary) bool) (domain.FinancialSummary, error) {
	var out domain.FinancialSummary
	err := r.r.run(false, func(d *fileData) error {
		for i := range d.Financials {
			if match(&d.Financials[i]) {
				out = d.Financials[i]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *financialsRepo) GetFinancialByID(ctx context.Context, id string) (domain.FinancialSummary, error) {
	return r.get(func(f *domain.FinancialSummary) bool { return f.ID == id })
}

func (r *financialsRepo) GetFinancialByKey(ctx context.Context, partnerID, period string) (domain.FinancialSummary, error) {
	return r.get(func(f *domain.FinancialSummary) bool {
		return f.PartnerID == partnerID && strings.EqualFold(f.Period, period)
	})
}

func (r *financialsRepo) ListFinancials(ctx context.Context, filter string) ([]domain.FinancialSummary, error) {
	var out []domain.FinancialSummary
	err := r.r.run(false, func(d *fileData) error {
		for _, f := range d.Financials {
			if matchAny(filter, f.PartnerID, f.PartnerName, f.Period) {
				out = append(out, f)
			}
		}
		return nil
	})
	return out, err
}

func (r *financialsRepo) CreateFinancial(ctx context.Context, f domain.FinancialSummary) error {
	return r.r.run(true, func(d *fileData) error {
		stamp(&f.CreatedAt, &f.UpdatedAt)
		d.Financials = append(d.Financials, f)
		return nil
	})
}

func (r *financialsRepo) UpdateFinancial(ctx context.Context, f domain.FinancialSummary) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Financials {
			if d.Financials[i].ID == f.ID {
				f.CreatedAt = d.Financials[i].CreatedAt
				f.UpdatedAt = time.Now().UTC()
				d.Financials[i] = f
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (r *financialsRepo) DeleteFinancial(ctx context.Context, id string) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Financials {
			if d.Financials[i].ID == id {
				d.Financials = append(d.Financials[:i], d.Financials[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// --- compliance ---

type complianceRepo struct {
	r runner
}

func (r *complianceRepo) get(match func(c *domain.ComplianceRecord) bool) (domain.ComplianceRecord, error) {
	var out domain.ComplianceRecord
	err := r.r.run(false, func(d *fileData) error {
		for i := range d.Compliance {
			if match(&d.Compliance[i]) {
				out = d.Compliance[i]
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *complianceRepo) GetComplianceByID(ctx context.Context, id string) (domain.ComplianceRecord, error) {
	return r.get(func(c *domain.ComplianceRecord) bool { return c.ID == id })
}

func (r *complianceRepo) GetComplianceByKey(ctx context.Context, partnerID, requirement string) (domain.ComplianceRecord, error) {
	return r.get(func(c *domain.ComplianceRecord) bool {
		return c.PartnerID == partnerID && strings.EqualFold(c.Requirement, requirement)
	})
}

func (r *complianceRepo) ListCompliance(ctx context.Context, filter string) ([]domain.ComplianceRecord, error) {
	var out []domain.ComplianceRecord
	err := r.r.run(false, func(d *fileData) error {
		for _, c := range d.Compliance {
			if matchAny(filter, c.PartnerID, c.PartnerName, c.Requirement, c.Status) {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (r *complianceRepo) CreateCompliance(ctx context.Context, c domain.ComplianceRecord) error {
	return r.r.run(true, func(d *fileData) error {
		stamp(&c.CreatedAt, &c.UpdatedAt)
		d.Compliance = append(d.Compliance, c)
		return nil
	})
}

func (r *complianceRepo) UpdateCompliance(ctx context.Context, c domain.ComplianceRecord) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Compliance {
			if d.Compliance[i].ID == c.ID {
				c.CreatedAt = d.Compliance[i].CreatedAt
				c.UpdatedAt = time.Now().UTC()
				d.Compliance[i] = c
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (r *complianceRepo) DeleteCompliance(ctx context.Context, id string) error {
	return r.r.run(true, func(d *fileData) error {
		for i := range d.Compliance {
			if d.Compliance[i].ID == id {
				d.Compliance = append(d.Compliance[:i], d.Compliance[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}
