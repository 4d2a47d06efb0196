package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/wattlehq/partnerdesk/internal/importer"
	"github.com/wattlehq/partnerdesk/pkg/httpx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"
)

// ImportsHandler exposes the spreadsheet importer to admins: trigger a scan
// outside the watcher's schedule, or inspect what has been imported.
type ImportsHandler struct {
	Importer *importer.Importer
}

// HandleScan handles POST /v1/imports/scan
//
//	@Summary		Trigger an import scan
//	@Description	Runs a scan of the drop directory in the background. Returns
//	@Description	409 when a pass is already running; the trigger is dropped,
//	@Description	not queued.
//	@Tags			Imports
//	@Success		202
//	@Failure		409	{object}	httpx.ErrorBody	"Scan already in progress"
//	@Router			/v1/imports/scan [post]
func (h *ImportsHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if h.Importer.Busy() {
		httpx.WriteError(w, http.StatusConflict, "an import pass is already running")
		return
	}

	// Detached from the request context: the scan should not die with the
	// HTTP client's connection.
	go func() {
		if err := h.Importer.Scan(context.Background()); err != nil && !errors.Is(err, importer.ErrScanInProgress) {
			log.Error("manual import scan failed", "err", err)
		}
	}()

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "import scan started",
	})
}

// HandleState handles GET /v1/imports/state
//
//	@Summary	Inspect the import ledger
//	@Tags		Imports
//	@Produce	json
//	@Success	200	{object}	map[string]importer.FileState
//	@Router		/v1/imports/state [get]
func (h *ImportsHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"busy":  h.Importer.Busy(),
		"files": h.Importer.State(),
	})
}
