package watchlist

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"candlehub/internal/logger"
)

// Watcher keeps an in-memory snapshot of the watchlist in sync with the
// file on disk, reloading on every write event. Subscribers receive the new
// symbol list on Updates; only the latest unconsumed update is retained.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	updates chan []string

	mu       sync.RWMutex
	snapshot *Watchlist
}

func Watch(path string) (*Watcher, error) {
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files, which would orphan a
	// watch on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     path,
		fsw:      fsw,
		updates:  make(chan []string, 1),
		snapshot: initial,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(w.path) {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			fresh, err := Load(w.path)
			if err != nil {
				logger.Warnf("watchlist: reload failed: %v", err)
				continue
			}
			w.mu.Lock()
			w.snapshot = fresh
			w.mu.Unlock()
			w.publish(fresh.Symbols)
			logger.Debugf("watchlist: reloaded %d symbols", len(fresh.Symbols))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnf("watchlist: watcher error: %v", err)
		}
	}
}

// publish replaces any pending update so a slow subscriber always sees the
// latest list, never a backlog.
func (w *Watcher) publish(symbols []string) {
	out := make([]string, len(symbols))
	copy(out, symbols)
	select {
	case <-w.updates:
	default:
	}
	w.updates <- out
}

// Updates delivers the symbol list after each reload.
func (w *Watcher) Updates() <-chan []string { return w.updates }

// Snapshot returns the current symbol list.
func (w *Watcher) Snapshot() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.snapshot.Symbols))
	copy(out, w.snapshot.Symbols)
	return out
}

func (w *Watcher) Close() error { return w.fsw.Close() }
