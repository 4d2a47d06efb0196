package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/service"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/pkg/httpx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

// RegistryHandler covers the CRUD and CSV export endpoints for the five
// registry collections. The endpoints are identical in shape; the small
// generic helpers below keep the per-collection methods to routing glue.
type RegistryHandler struct {
	RegistryService *service.RegistryService
}

func handleList[T any](w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]T, error)) {
	ctx := r.Context()
	items, err := list(ctx, r.URL.Query().Get("q"))
	if err != nil {
		slogx.FromContext(ctx).Error("list failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []T{}
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func handleGet[T any](w http.ResponseWriter, r *http.Request, get func(context.Context, string) (T, error)) {
	ctx := r.Context()
	item, err := get(ctx, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Error("get failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func handleCreate[T any](w http.ResponseWriter, r *http.Request, create func(context.Context, T) (T, error)) {
	ctx := r.Context()
	var in T
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := create(ctx, in)
	if err != nil {
		slogx.FromContext(ctx).Warn("create failed", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "could not create record")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func handleUpdate[T any](w http.ResponseWriter, r *http.Request, setID func(*T, string), update func(context.Context, T) (T, error)) {
	ctx := r.Context()
	var in T
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	setID(&in, r.PathValue("id"))
	updated, err := update(ctx, in)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Warn("update failed", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "could not update record")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func handleDelete(w http.ResponseWriter, r *http.Request, del func(context.Context, string) error) {
	ctx := r.Context()
	err := del(ctx, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Error("delete failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleExportCSV(w http.ResponseWriter, r *http.Request, name string, export func(context.Context, io.Writer) error) {
	ctx := r.Context()

	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export(ctx, w); err != nil {
		// Headers are out; all that is left is the log line.
		slogx.FromContext(ctx).Error("csv export failed",
			"export", name, "err", err)
	}
}

// Partners

//	@Summary	List partners
//	@Tags		Registry
//	@Param		q	query	string	false	"Free-text filter"
//	@Produce	json
//	@Success	200	{array}	domain.Partner
//	@Router		/v1/partners [get]
func (h *RegistryHandler) HandleListPartners(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.RegistryService.ListPartners)
}

//	@Summary	Get a partner
//	@Tags		Registry
//	@Produce	json
//	@Success	200	{object}	domain.Partner
//	@Router		/v1/partners/{id} [get]
func (h *RegistryHandler) HandleGetPartner(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.RegistryService.GetPartner)
}

//	@Summary	Create a partner
//	@Tags		Registry
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	domain.Partner
//	@Router		/v1/partners [post]
func (h *RegistryHandler) HandleCreatePartner(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.RegistryService.CreatePartner)
}

//	@Summary	Update a partner
//	@Tags		Registry
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	domain.Partner
//	@Router		/v1/partners/{id} [put]
func (h *RegistryHandler) HandleUpdatePartner(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, func(p *domain.Partner, id string) { p.ID = id }, h.RegistryService.UpdatePartner)
}

//	@Summary	Delete a partner
//	@Tags		Registry
//	@Success	204
//	@Router		/v1/partners/{id} [delete]
func (h *RegistryHandler) HandleDeletePartner(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.RegistryService.DeletePartner)
}

//	@Summary	Export partners as CSV
//	@Tags		Registry
//	@Produce	text/csv
//	@Router		/v1/partners/export [get]
func (h *RegistryHandler) HandleExportPartners(w http.ResponseWriter, r *http.Request) {
	handleExportCSV(w, r, "partners", h.RegistryService.ExportPartnersCSV)
}

// External partners

//	@Summary	List external partners
//	@Tags		Registry
//	@Produce	json
//	@Success	200	{array}	domain.ExternalPartner
//	@Router		/v1/external-partners [get]
func (h *RegistryHandler) HandleListExternalPartners(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.RegistryService.ListExternalPartners)
}

func (h *RegistryHandler) HandleGetExternalPartner(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.RegistryService.GetExternalPartner)
}

func (h *RegistryHandler) HandleCreateExternalPartner(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.RegistryService.CreateExternalPartner)
}

func (h *RegistryHandler) HandleUpdateExternalPartner(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, func(p *domain.ExternalPartner, id string) { p.ID = id }, h.RegistryService.UpdateExternalPartner)
}

func (h *RegistryHandler) HandleDeleteExternalPartner(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.RegistryService.DeleteExternalPartner)
}

func (h *RegistryHandler) HandleExportExternalPartners(w http.ResponseWriter, r *http.Request) {
	handleExportCSV(w, r, "external-partners", h.RegistryService.ExportExternalPartnersCSV)
}

// Personnel

//	@Summary	List personnel
//	@Tags		Registry
//	@Produce	json
//	@Success	200	{array}	domain.Personnel
//	@Router		/v1/personnel [get]
func (h *RegistryHandler) HandleListPersonnel(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.RegistryService.ListPersonnel)
}

func (h *RegistryHandler) HandleGetPersonnel(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.RegistryService.GetPersonnel)
}

func (h *RegistryHandler) HandleCreatePersonnel(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.RegistryService.CreatePersonnel)
}

func (h *RegistryHandler) HandleUpdatePersonnel(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, func(p *domain.Personnel, id string) { p.ID = id }, h.RegistryService.UpdatePersonnel)
}

func (h *RegistryHandler) HandleDeletePersonnel(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.RegistryService.DeletePersonnel)
}

func (h *RegistryHandler) HandleExportPersonnel(w http.ResponseWriter, r *http.Request) {
	handleExportCSV(w, r, "personnel", h.RegistryService.ExportPersonnelCSV)
}

// Deliverables

//	@Summary	List deliverables
//	@Tags		Registry
//	@Produce	json
//	@Success	200	{array}	domain.Deliverable
//	@Router		/v1/deliverables [get]
func (h *RegistryHandler) HandleListDeliverables(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.RegistryService.ListDeliverables)
}

func (h *RegistryHandler) HandleGetDeliverable(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.RegistryService.GetDeliverable)
}

func (h *RegistryHandler) HandleCreateDeliverable(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.RegistryService.CreateDeliverable)
}

func (h *RegistryHandler) HandleUpdateDeliverable(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, func(d *domain.Deliverable, id string) { d.ID = id }, h.RegistryService.UpdateDeliverable)
}

func (h *RegistryHandler) HandleDeleteDeliverable(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.RegistryService.DeleteDeliverable)
}

func (h *RegistryHandler) HandleExportDeliverables(w http.ResponseWriter, r *http.Request) {
	handleExportCSV(w, r, "deliverables", h.RegistryService.ExportDeliverablesCSV)
}

// Financials

//	@Summary	List financial summaries
//	@Tags		Registry
//	@Produce	json
//	@Success	200	{array}	domain.FinancialSummary
//	@Router		/v1/financials [get]
func (h *RegistryHandler) HandleListFinancials(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.RegistryService.ListFinancials)
}

func (h *RegistryHandler) HandleGetFinancial(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.RegistryService.GetFinancial)
}

func (h *RegistryHandler) HandleCreateFinancial(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.RegistryService.CreateFinancial)
}

func (h *RegistryHandler) HandleUpdateFinancial(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, func(f *domain.FinancialSummary, id string) { f.ID = id }, h.RegistryService.UpdateFinancial)
}

func (h *RegistryHandler) HandleDeleteFinancial(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.RegistryService.DeleteFinancial)
}

func (h *RegistryHandler) HandleExportFinancials(w http.ResponseWriter, r *http.Request) {
	handleExportCSV(w, r, "financials", h.RegistryService.ExportFinancialsCSV)
}

// Compliance

//	@Summary	List compliance records
//	@Tags		Registry
//	@Produce	json
//	@Success	200	{array}	domain.ComplianceRecord
//	@Router		/v1/compliance [get]
func (h *RegistryHandler) HandleListCompliance(w http.ResponseWriter, r *http.Request) {
	handleList(w, r, h.RegistryService.ListCompliance)
}

func (h *RegistryHandler) HandleGetCompliance(w http.ResponseWriter, r *http.Request) {
	handleGet(w, r, h.RegistryService.GetCompliance)
}

func (h *RegistryHandler) HandleCreateCompliance(w http.ResponseWriter, r *http.Request) {
	handleCreate(w, r, h.RegistryService.CreateCompliance)
}

func (h *RegistryHandler) HandleUpdateCompliance(w http.ResponseWriter, r *http.Request) {
	handleUpdate(w, r, func(c *domain.ComplianceRecord, id string) { c.ID = id }, h.RegistryService.UpdateCompliance)
}

func (h *RegistryHandler) HandleDeleteCompliance(w http.ResponseWriter, r *http.Request) {
	handleDelete(w, r, h.RegistryService.DeleteCompliance)
}

func (h *RegistryHandler) HandleExportCompliance(w http.ResponseWriter, r *http.Request) {
	handleExportCSV(w, r, "compliance", h.RegistryService.ExportComplianceCSV)
}
