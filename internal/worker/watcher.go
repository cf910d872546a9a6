package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// DefaultDebounce is how long the manual directory must stay quiet before a rebuild
const DefaultDebounce = 2 * time.Second

// Rebuilder rebuilds the retrieval index from the manual corpus
type Rebuilder interface {
	Rebuild(ctx context.Context) (*domain.IndexStatus, error)
}

// IndexWatcher rebuilds the manual index when files under the manual
// directory change. Bursts of events are coalesced into one rebuild.
type IndexWatcher struct {
	index      Rebuilder
	root       string
	extensions map[string]struct{}
	debounce   time.Duration
	logger     *slog.Logger

	mu          sync.RWMutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	rebuilds    int
	lastRebuild *time.Time
	lastErr     error
}

// IndexWatcherConfig holds configuration for the watcher.
type IndexWatcherConfig struct {
	Index Rebuilder
	Root  string

	// Extensions limits which files trigger a rebuild; empty means any file
	Extensions []string

	Debounce time.Duration
	Logger   *slog.Logger
}

// NewIndexWatcher creates a watcher. It does nothing until Start.
func NewIndexWatcher(cfg IndexWatcherConfig) (*IndexWatcher, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("%w: index is required", domain.ErrInvalidInput)
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("%w: manual directory is required", domain.ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &IndexWatcher{
		index:      cfg.Index,
		root:       cfg.Root,
		extensions: exts,
		debounce:   debounce,
		logger:     logger.With("component", "index_watcher", "root", cfg.Root),
	}, nil
}

// Start watches the manual directory tree until Stop is called or ctx is cancelled.
func (w *IndexWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		fw.Close()
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	w.running = true
	w.stopCh = stop
	w.doneCh = done

	w.logger.Info("index watcher starting", "debounce", w.debounce)

	go func() {
		defer close(done)
		defer func() {
			w.mu.Lock()
			if w.doneCh == done {
				w.running = false
			}
			w.mu.Unlock()
		}()
		defer fw.Close()
		w.loop(ctx, fw, stop)
	}()
	return nil
}

// Stop stops watching and waits for an in-flight rebuild to finish.
func (w *IndexWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
	done := w.doneCh
	w.mu.Unlock()

	<-done

	w.logger.Info("index watcher stopped")
}

// Wait blocks until the watcher stops.
func (w *IndexWatcher) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (w *IndexWatcher) loop(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.handleEvent(fw, event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.rebuild(ctx)
		}
	}
}

// handleEvent starts watching new directories and reports whether the
// event touches a manual
func (w *IndexWatcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if _, ok := w.extensions[ext]; ok {
		return true
	}
	// A removed or renamed directory has no extension and may hold manuals
	return ext == "" && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename))
}

func (w *IndexWatcher) rebuild(ctx context.Context) {
	start := time.Now()
	status, err := w.index.Rebuild(ctx)
	finished := time.Now()

	w.mu.Lock()
	w.rebuilds++
	w.lastRebuild = &finished
	w.lastErr = err
	w.mu.Unlock()

	switch {
	case err == nil:
		w.logger.Info("manual index rebuilt",
			"chunks", status.Chunks,
			"documents", status.Documents,
			"duration", time.Since(start),
		)
	case errors.Is(err, domain.ErrRebuildInProgress):
		w.logger.Info("rebuild already in progress, skipping")
	case errors.Is(err, domain.ErrIndexEmpty):
		w.logger.Warn("manual directory holds no indexable text")
	case errors.Is(err, context.Canceled):
	default:
		w.logger.Error("manual index rebuild failed", "error", err)
	}
}

// addTree watches dir and every non-hidden directory below it
func (w *IndexWatcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Health describes the watcher state.
type Health struct {
	Running     bool       `json:"running"`
	Rebuilds    int        `json:"rebuilds"`
	LastRebuild *time.Time `json:"last_rebuild,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Health returns the health status of the watcher.
func (w *IndexWatcher) Health() Health {
	w.mu.RLock()
	defer w.mu.RUnlock()

	health := Health{
		Running:     w.running,
		Rebuilds:    w.rebuilds,
		LastRebuild: w.lastRebuild,
	}
	if w.lastErr != nil {
		health.Error = w.lastErr.Error()
	}
	return health
}
