// Package watch re-runs the checker when its inputs change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"checker/internal/logging"
)

// ChangeFunc is called once per settled batch of changes.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher watches a dump file and annotation sources. Editors often replace
// files by rename, so parent directories are watched and events filtered.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	files       map[string]bool // exact files
	roots       []string        // directories whose matching files count
	exts        []string
	dirs        []string
	onChange    ChangeFunc
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// New creates a watcher over paths. A file path is watched on its own; a
// directory is watched recursively for files with one of exts.
func New(paths []string, exts []string, debounce time.Duration, onChange ChangeFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	w := &Watcher{
		watcher:     fw,
		files:       make(map[string]bool),
		exts:        exts,
		onChange:    onChange,
		pending:     make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, p := range paths {
		if err := w.addPath(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.files[abs] = true
		w.addDir(filepath.Dir(abs))
		return nil
	}

	w.roots = append(w.roots, abs)
	return filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.addDir(p)
		}
		return nil
	})
}

func (w *Watcher) addDir(dir string) {
	if !slices.Contains(w.dirs, dir) {
		w.dirs = append(w.dirs, dir)
	}
}

// Start begins watching. It is non-blocking; events are handled on a
// goroutine until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	log := logging.Get(logging.CategoryWatch)
	for _, dir := range w.GetWatchedDirs() {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			if cerr := w.watcher.Close(); cerr != nil {
				log.Errorw("error closing watcher", "error", cerr)
			}
			return err
		}
		log.Debugw("watching directory", "dir", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for cleanup.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Errorw("error closing watcher", "error", err)
	}
	logging.Get(logging.CategoryWatch).Debug("watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryWatch)

	tick := max(w.debounceDur/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorw("watcher error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

// underRoot reports whether path lies inside a watched directory tree.
func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// relevant reports whether path is one of the watched inputs.
func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(w.exts, ext) {
		return false
	}
	return w.underRoot(path)
}

// addTree registers a directory created under a root, along with its
// subdirectories. Matching files already inside it are marked pending since
// their events predate the registration.
func (w *Watcher) addTree(dir string) {
	log := logging.Get(logging.CategoryWatch)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.relevant(p) {
				w.mu.Lock()
				w.pending[p] = time.Now()
				w.mu.Unlock()
			}
			return nil
		}
		w.mu.Lock()
		known := slices.Contains(w.dirs, p)
		w.mu.Unlock()
		if known {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		w.mu.Lock()
		w.addDir(p)
		w.mu.Unlock()
		log.Debugw("watching new directory", "dir", p)
		return nil
	})
	if err != nil {
		log.Errorw("failed to watch new directory", "dir", dir, "error", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(event.Name)
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.dirs = slices.DeleteFunc(w.dirs, func(d string) bool {
			return d == path && w.underRoot(d)
		})
		w.mu.Unlock()
	}
	if event.Has(fsnotify.Create) && w.underRoot(path) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.addTree(path)
			return
		}
	}
	if !w.relevant(path) {
		return
	}
	logging.Get(logging.CategoryWatch).Debugw("change", "op", event.Op.String(), "path", path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = path
	w.pending[path] = time.Now()
}

// processSettled fires onChange once every pending path has been quiet for
// the debounce window.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, t := range w.pending {
		if now.Sub(t) < w.debounceDur {
			w.mu.Unlock()
			return
		}
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.pending = make(map[string]time.Time)
	w.stats.Runs++
	w.mu.Unlock()

	w.onChange(ctx, paths)
}

// GetStats returns a copy of the watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// GetWatchedDirs returns the directories registered with fsnotify.
func (w *Watcher) GetWatchedDirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.dirs)
}
