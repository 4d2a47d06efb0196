package importer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store/drivers/sqlite"
)

func newTestImporter(t *testing.T) (*Importer, store.Store, string) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp, err := New(st, logger, Config{Dir: dir})
	require.NoError(t, err)
	return imp, st, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanImportsPartnersCSV(t *testing.T) {
	imp, st, dir := newTestImporter(t)

	writeFile(t, dir, "partners.csv",
		"Partner ID,Name,Type,Country,Contact Email,Budget\n"+
			"P-07,Acme Research,Academic,DE,lab@acme.example,\n"+
			"P-08,Widget GmbH,Industry,AT,ops@widget.example,\n")

	require.NoError(t, imp.Scan(context.Background()))

	got, err := st.Partners().GetPartnerByPartnerID(context.Background(), "P-07")
	require.NoError(t, err)
	require.Equal(t, "Acme Research", got.Name)
	require.Equal(t, "DE", got.Country)

	all, err := st.Partners().ListPartners(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestScanSkipsUnchangedFiles(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	writeFile(t, dir, "partners.csv",
		"Partner ID,Name,Type,Contact Email\n"+
			"P-07,Acme Research,Academic,lab@acme.example\n")
	require.NoError(t, imp.Scan(ctx))

	// Rename the partner behind the importer's back; a second scan of
	// the unchanged file must not touch it.
	p, err := st.Partners().GetPartnerByPartnerID(ctx, "P-07")
	require.NoError(t, err)
	p.Name = "Renamed In Dashboard"
	require.NoError(t, st.Partners().UpdatePartner(ctx, p))

	require.NoError(t, imp.Scan(ctx))

	p, err = st.Partners().GetPartnerByPartnerID(ctx, "P-07")
	require.NoError(t, err)
	require.Equal(t, "Renamed In Dashboard", p.Name)
}

func TestChangedFileUpsertsInPlace(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	writeFile(t, dir, "partners.csv",
		"Partner ID,Name,Type,Contact Email\n"+
			"P-07,Acme Research,Academic,lab@acme.example\n")
	require.NoError(t, imp.Scan(ctx))

	// Different size guarantees a fingerprint mismatch even when mtime
	// granularity swallows the rewrite.
	writeFile(t, dir, "partners.csv",
		"Partner ID,Name,Type,Contact Email\n"+
			"P-07,Acme Research Institute,Academic,lab@acme.example\n")
	require.NoError(t, imp.Scan(ctx))

	all, err := st.Partners().ListPartners(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1, "reimport must update, not duplicate")
	require.Equal(t, "Acme Research Institute", all[0].Name)
}

func TestHeaderDetectionUnderBannerRow(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	banner := ""
	for range 20 {
		banner += "CONSORTIUM "
	}
	writeFile(t, dir, "partners.csv",
		"\""+banner+"\"\n"+
			"\n"+
			"Partner ID,Name,Type,Contact Email\n"+
			"P-01,First Partner,SME,a@b.example\n")
	require.NoError(t, imp.Scan(ctx))

	_, err := st.Partners().GetPartnerByPartnerID(ctx, "P-01")
	require.NoError(t, err)
}

func TestPersonnelRowMissingEmailIsSkipped(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	writeFile(t, dir, "key personnel.csv",
		"Name,Email,Role,Partner\n"+
			"No Email Person,,Researcher,Acme\n"+
			"Jane Doe,jane@acme.example,PI,Acme\n")
	require.NoError(t, imp.Scan(ctx))

	all, err := st.Personnel().ListPersonnel(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "jane@acme.example", all[0].Email)
}

func TestWorkbookRoutesSheetsByName(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "Master Register"))
	for i, row := range [][]any{
		{"Partner ID", "Name", "Type", "Contact Email"},
		{"P-07", "Acme Research", "Academic", "lab@acme.example"},
	} {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, wb.SetCellValue("Master Register", cell, v))
		}
	}
	_, err := wb.NewSheet("Deliverables")
	for i, row := range [][]any{
		{"Partner ID", "Deliverable Number", "Title", "Due Date"},
		{"P-07", "D4.2", "Annual Report", "2026-03-31"},
	} {
		for j, v := range row {
			cell, cErr := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, cErr)
			require.NoError(t, wb.SetCellValue("Deliverables", cell, v))
		}
	}
	require.NoError(t, err)
	require.NoError(t, wb.SaveAs(filepath.Join(dir, "register.xlsx")))

	require.NoError(t, imp.Scan(ctx))

	_, err = st.Partners().GetPartnerByPartnerID(ctx, "P-07")
	require.NoError(t, err)

	d, err := st.Deliverables().GetDeliverableByKey(ctx, "P-07", "D4.2")
	require.NoError(t, err)
	require.Equal(t, "Annual Report", d.Title)
	require.NotNil(t, d.DueDate)
	require.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), *d.DueDate)
}

func TestFinancialRowNormalizesMoney(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	writeFile(t, dir, "financial summary.csv",
		"Partner ID,Period,Budget,Claimed,Currency\n"+
			"P-07,2025-Q2,\"€1,250,000.50\",\"250000\",EUR\n")
	require.NoError(t, imp.Scan(ctx))

	f, err := st.Financials().GetFinancialByKey(ctx, "P-07", "2025-Q2")
	require.NoError(t, err)
	require.NotNil(t, f.Budget)
	require.InDelta(t, 1250000.50, *f.Budget, 0.001)
	require.NotNil(t, f.Claimed)
	require.InDelta(t, 250000, *f.Claimed, 0.001)
}

func TestScanIgnoresLockAndStateFiles(t *testing.T) {
	imp, _, dir := newTestImporter(t)
	ctx := context.Background()

	writeFile(t, dir, "~$partners.xlsx", "garbage")
	writeFile(t, dir, ".hidden.csv", "garbage")
	writeFile(t, dir, "notes.txt", "not a spreadsheet")

	require.NoError(t, imp.Scan(ctx))
	require.Empty(t, imp.State())
}

func TestStateSurvivesRestart(t *testing.T) {
	imp, st, dir := newTestImporter(t)
	ctx := context.Background()

	writeFile(t, dir, "partners.csv",
		"Partner ID,Name,Type,Contact Email\n"+
			"P-07,Acme Research,Academic,lab@acme.example\n")
	require.NoError(t, imp.Scan(ctx))

	// A fresh importer over the same directory and store picks up the
	// ledger and leaves the unchanged file alone.
	p, err := st.Partners().GetPartnerByPartnerID(ctx, "P-07")
	require.NoError(t, err)
	p.Name = "Edited"
	require.NoError(t, st.Partners().UpdatePartner(ctx, p))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp2, err := New(st, logger, Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, imp2.Scan(ctx))

	p, err = st.Partners().GetPartnerByPartnerID(ctx, "P-07")
	require.NoError(t, err)
	require.Equal(t, "Edited", p.Name)
}

func TestUnsupportedXLSIsRecordedNotRetried(t *testing.T) {
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	dir := t.TempDir()
	var logBuf bytes.Buffer
	imp, err := New(st, slog.New(slog.NewTextHandler(&logBuf, nil)), Config{Dir: dir})
	require.NoError(t, err)

	path := writeFile(t, dir, "legacy.xls", "BIFF payload we cannot parse")

	require.NoError(t, imp.Scan(ctx))
	require.Contains(t, imp.State(), path, "unsupported file must still be fingerprinted")
	require.Equal(t, 1, strings.Count(logBuf.String(), "unsupported spreadsheet format"))

	// The poll loop rescans constantly; the recorded fingerprint must keep
	// the file from being reprocessed and re-logged every pass.
	require.NoError(t, imp.Scan(ctx))
	require.NoError(t, imp.Scan(ctx))
	require.Equal(t, 1, strings.Count(logBuf.String(), "unsupported spreadsheet format"))

	all, err := st.Partners().ListPartners(ctx, "")
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestSecondTriggerWhileBusyIsDropped(t *testing.T) {
	imp, _, _ := newTestImporter(t)

	imp.busy.Store(true)
	err := imp.Scan(context.Background())
	require.ErrorIs(t, err, ErrScanInProgress)
	imp.busy.Store(false)
}
