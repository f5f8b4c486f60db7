package config

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Profile whenever its backing file changes on disk
// (e.g. a mounted Kubernetes secret rotating), invoking a callback with
// the freshly parsed Profile so a long-lived Connection can pick up new
// credentials on its next Reopen.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Profile)

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewWatcher starts watching path and invokes onChange with each
// successfully reloaded Profile. Parse errors from a partially-written
// file are logged and skipped, not delivered to onChange.
func NewWatcher(path string, onChange func(*Profile)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		watcher:  fw,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			profile, err := Load(w.path)
			if err != nil {
				slog.Warn("config: reload failed", "path", w.path, "error", err)
				continue
			}
			w.onChange(profile)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watch error", "path", w.path, "error", err)
		case <-w.stopCh:
			return
		}
	}
}

// Close stops watching and releases the underlying inotify/kqueue handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	return w.watcher.Close()
}
