package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Start runs an initial scan of the drop directory and then watches it until
// Stop is called. Filesystem events are debounced so that one file copy
// (which fires a burst of writes) triggers a single scan; a poll ticker
// backstops filesystems where inotify is unreliable.
func (imp *Importer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(imp.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", imp.dir, err)
	}

	if err := imp.Scan(ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
		imp.logger.Error("initial import scan failed", slog.Any("error", err))
	}

	go imp.watchLoop(ctx, watcher)
	return nil
}

// Stop shuts the watcher down and waits for any in-flight pass to finish.
func (imp *Importer) Stop() {
	close(imp.stopCh)
	<-imp.doneCh
}

func (imp *Importer) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(imp.doneCh)
	defer watcher.Close()

	poll := time.NewTicker(imp.pollInterval)
	defer poll.Stop()

	// A nil channel never fires; the timer only exists after an event.
	var debounce *time.Timer
	var debounceCh <-chan time.Time

	scan := func() {
		if err := imp.Scan(ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
			imp.logger.Error("import scan failed", slog.Any("error", err))
		}
	}

	for {
		select {
		case <-imp.stopCh:
			return
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !eligible(filepath.Base(event.Name)) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(imp.debounce)
				debounceCh = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(imp.debounce)
			}

		case <-debounceCh:
			debounce = nil
			debounceCh = nil
			scan()

		case <-poll.C:
			scan()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			imp.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
