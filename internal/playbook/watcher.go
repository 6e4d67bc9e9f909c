package playbook

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/liyecom/adpilot/internal/logging"
)

// WatcherConfig holds configuration for the playbook directory watcher.
type WatcherConfig struct {
	// Dir is the playbook directory to watch
	Dir string

	// DebounceMillis coalesces multiple file change events within this
	// period into a single reload. Default: 500ms.
	DebounceMillis int
}

// Watcher watches a playbook directory for changes and swaps a fresh
// immutable Store into the Handle on each successful reload. Invalid
// documents during reload are logged; the previous store stays active.
type Watcher struct {
	config WatcherConfig
	handle *Handle
	logger *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	mu      sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a watcher that keeps handle up to date with the
// playbook directory contents.
func NewWatcher(config WatcherConfig, handle *Handle) (*Watcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("Dir cannot be empty")
	}
	if handle == nil {
		return nil, fmt.Errorf("handle cannot be nil")
	}
	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}
	return &Watcher{
		config:  config,
		handle:  handle,
		logger:  logging.GetLogger("playbook.watcher"),
		stopped: make(chan struct{}),
		ready:   make(chan struct{}),
	}, nil
}

// Start loads the directory once, swaps the store, and begins watching.
// Returns an error if the initial load fails; reload failures afterwards
// are logged and the previous store is kept.
func (w *Watcher) Start(ctx context.Context) error {
	store, err := LoadDir(w.config.Dir)
	if err != nil {
		return fmt.Errorf("failed to load initial playbooks: %w", err)
	}
	w.handle.Swap(store)

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for playbook watcher to initialize")
	}

	return nil
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.stopped
}

// signalReady closes the ready channel exactly once.
func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

// watchLoop is the main file watching loop.
func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.Dir); err != nil {
		w.logger.Error("failed to watch directory %s: %v", w.config.Dir, err)
		return
	}

	w.logger.Info("watching %s for playbook changes (debounce: %dms)",
		w.config.Dir, w.config.DebounceMillis)

	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("context cancelled, stopping")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isPlaybookFile(event.Name) {
				continue
			}
			// Write, Create, Rename, and Remove all potentially change the
			// effective playbook set (editors often rename into place)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error: %v", err)
		}
	}
}

// scheduleReload debounces reloads by resetting a timer on each event.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(
		time.Duration(w.config.DebounceMillis)*time.Millisecond,
		w.reload,
	)
}

// reload rebuilds the store from the directory and swaps it in.
// A failed load keeps the previous store active.
func (w *Watcher) reload() {
	store, err := LoadDir(w.config.Dir)
	if err != nil {
		w.logger.Error("reload failed (keeping previous playbooks): %v", err)
		return
	}
	w.handle.Swap(store)
	w.logger.Info("reloaded %d playbooks from %s", store.Len(), w.config.Dir)
}

func isPlaybookFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
