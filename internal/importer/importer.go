// Package importer watches a drop directory for partner register
// spreadsheets and loads their sheets into the store. Files are
// fingerprinted by path, mtime and size so unchanged files are never
// re-read; all writes are upserts so re-importing a changed file is safe.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

const (
	// DefaultFileTimeout bounds how long a single spreadsheet may take to
	// parse and persist before its context is cancelled.
	DefaultFileTimeout = 2 * time.Minute

	// DefaultPollInterval is the fallback rescan cadence for filesystems
	// where inotify events are unreliable (network mounts, docker volumes).
	DefaultPollInterval = 30 * time.Second

	// DefaultDebounce coalesces the burst of fsnotify events a single file
	// copy produces into one scan.
	DefaultDebounce = time.Second
)

var (
	// ErrScanInProgress is returned when a scan is requested while another
	// pass is still running. The trigger is dropped, not queued.
	ErrScanInProgress = errors.New("importer: scan already in progress")

	// ErrUnsupportedFormat marks files the importer cannot parse, such as
	// legacy binary .xls workbooks.
	ErrUnsupportedFormat = errors.New("importer: unsupported file format")
)

// Config carries the tunables for an Importer. Zero values fall back to the
// package defaults.
type Config struct {
	// Dir is the drop directory to scan and watch.
	Dir string

	FileTimeout  time.Duration
	PollInterval time.Duration
	Debounce     time.Duration
}

// Importer scans a directory of spreadsheets and upserts their rows into
// the store. At most one import pass runs at a time.
type Importer struct {
	store  store.Store
	logger *slog.Logger

	dir          string
	fileTimeout  time.Duration
	pollInterval time.Duration
	debounce     time.Duration

	handlers map[string]sheetHandler

	// busy enforces the single-pass rule without blocking triggers.
	busy atomic.Bool

	mu    sync.Mutex // guards state
	state map[string]FileState

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds an Importer over the given store and drop directory. The
// fingerprint ledger is loaded immediately so the first Scan skips files
// imported by a previous run.
func New(st store.Store, logger *slog.Logger, cfg Config) (*Importer, error) {
	if cfg.Dir == "" {
		return nil, errors.New("importer: drop directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = DefaultFileTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	imp := &Importer{
		store:        st,
		logger:       logger,
		dir:          cfg.Dir,
		fileTimeout:  cfg.FileTimeout,
		pollInterval: cfg.PollInterval,
		debounce:     cfg.Debounce,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	imp.handlers = imp.sheetHandlers()
	if err := checkHandlers(imp.handlers); err != nil {
		return nil, err
	}

	imp.state = loadState(cfg.Dir)
	return imp, nil
}

// eligible reports whether a directory entry looks like an importable
// spreadsheet. Office lock files ("~$...") and dotfiles are noise.
func eligible(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}

// Scan walks the drop directory once, importing every eligible file whose
// fingerprint has changed since it was last imported. If another pass is
// already running the call returns ErrScanInProgress and does nothing.
func (imp *Importer) Scan(ctx context.Context) error {
	if !imp.busy.CompareAndSwap(false, true) {
		imp.logger.Debug("import scan dropped, another pass is running")
		return ErrScanInProgress
	}
	defer imp.busy.Store(false)

	entries, err := os.ReadDir(imp.dir)
	if err != nil {
		return fmt.Errorf("read import dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && eligible(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		path := filepath.Join(imp.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			imp.logger.Warn("cannot stat import file",
				slog.String("file", name), slog.Any("error", err))
			continue
		}

		imp.mu.Lock()
		prev, seen := imp.state[path]
		imp.mu.Unlock()
		if seen && prev.Matches(info) {
			continue
		}

		if err := imp.ProcessFile(ctx, path); err != nil {
			if errors.Is(err, ErrUnsupportedFormat) {
				// Record the fingerprint anyway: a format we can never
				// parse must not be retried on every poll pass. A changed
				// fingerprint (e.g. the file re-saved as .xlsx under the
				// same name) picks it up again.
				imp.logger.Warn("skipping unsupported spreadsheet format",
					slog.String("file", name), slog.Any("error", err))
				imp.recordState(path, info)
				continue
			}
			imp.logger.Error("import file failed",
				slog.String("file", name), slog.Any("error", err))
			continue
		}

		imp.recordState(path, info)
	}
	return nil
}

// recordState fingerprints one processed file and persists the ledger.
func (imp *Importer) recordState(path string, info os.FileInfo) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	imp.state[path] = FileState{
		Path:    path,
		ModTime: info.ModTime().Unix(),
		Size:    info.Size(),
	}
	if err := saveState(imp.dir, imp.state); err != nil {
		imp.logger.Error("failed to persist import state",
			slog.Any("error", err))
	}
}

// ProcessFile parses one spreadsheet and routes each sheet to its handler.
// Row-level failures are logged and skipped; only file-level failures (the
// file cannot be opened or parsed at all) return an error.
func (imp *Importer) ProcessFile(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, imp.fileTimeout)
	defer cancel()

	start := time.Now()
	imp.logger.Info("importing file", slog.String("file", filepath.Base(path)))

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		err = imp.processWorkbook(ctx, path)
	case ".csv":
		err = imp.processCSV(ctx, path)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	imp.logger.Info("import complete",
		slog.String("file", filepath.Base(path)),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (imp *Importer) processWorkbook(ctx context.Context, path string) error {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	for _, sheet := range wb.GetSheetList() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rows, err := wb.GetRows(sheet)
		if err != nil {
			imp.logger.Warn("cannot read sheet",
				slog.String("sheet", sheet), slog.Any("error", err))
			continue
		}
		imp.processSheet(ctx, sheet, rows)
	}
	return nil
}

// processCSV treats the whole file as a single sheet named after the file,
// so "key personnel.csv" routes the same way a "Key Personnel" tab would.
func (imp *Importer) processCSV(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows are ragged in the wild

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	imp.processSheet(ctx, base, rows)
	return nil
}

// processSheet routes one sheet's rows to its handler. Unrecognized sheet
// names and sheets without a detectable header row are skipped with a log
// line rather than failing the file.
func (imp *Importer) processSheet(ctx context.Context, sheet string, rows [][]string) {
	handler, ok := imp.handlers[normalizeName(sheet)]
	if !ok {
		imp.logger.Debug("skipping unrecognized sheet", slog.String("sheet", sheet))
		return
	}

	headerIdx, header, ok := detectHeader(rows)
	if !ok {
		imp.logger.Warn("no header row found, skipping sheet",
			slog.String("sheet", sheet))
		return
	}

	cols := buildColumnIndex(header)
	processed, total := handler(ctx, cols, rows[headerIdx+1:])
	imp.logger.Info("sheet imported",
		slog.String("sheet", sheet),
		slog.Int("processed", processed),
		slog.Int("total", total))
}

// Busy reports whether an import pass is currently running.
func (imp *Importer) Busy() bool {
	return imp.busy.Load()
}

// State returns a snapshot of the fingerprint ledger, keyed by file path.
func (imp *Importer) State() map[string]FileState {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	out := make(map[string]FileState, len(imp.state))
	for k, v := range imp.state {
		out[k] = v
	}
	return out
}
