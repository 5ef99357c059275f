package app

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DocumentWatcher watches a document for modification and triggers a
// callback when it changes on disk. File system notifications wake it early;
// the poll interval catches changes on file systems that do not deliver them.
type DocumentWatcher struct {
	checkInterval time.Duration
	onChange      func(path string)

	mu       sync.Mutex
	path     string
	watched  string // directory registered with notify
	baseline time.Time
	notify   *fsnotify.Watcher
	stopCh   chan struct{}
	done     chan struct{}
}

// NewDocumentWatcher creates a watcher. Call Watch to choose the file.
func NewDocumentWatcher(checkInterval time.Duration, onChange func(path string)) *DocumentWatcher {
	return &DocumentWatcher{
		checkInterval: checkInterval,
		onChange:      onChange,
	}
}

// Watch switches to path and records its current modification time.
// Directories are watched by their newest page file.
func (w *DocumentWatcher) Watch(path string) {
	mod, err := modTime(path)
	if err != nil {
		log.Printf("Watcher: cannot stat %s: %v", path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.path = path
	w.baseline = mod
	w.registerLocked()
}

// registerLocked points the notify watcher at the directory holding the
// document. Editors often replace files instead of writing them in place,
// so a single file is watched through its parent.
func (w *DocumentWatcher) registerLocked() {
	if w.notify == nil || w.path == "" {
		return
	}
	dir := w.path
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	if dir == w.watched {
		return
	}
	if w.watched != "" {
		_ = w.notify.Remove(w.watched)
		w.watched = ""
	}
	if err := w.notify.Add(dir); err != nil {
		log.Printf("Watcher: cannot watch %s, polling only: %v", dir, err)
		return
	}
	w.watched = dir
}

// Start begins watching in a background goroutine.
func (w *DocumentWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Watcher: notifications unavailable, polling only: %v", err)
	}
	w.notify = notify
	w.registerLocked()

	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop(w.stopCh, w.done, notify)
}

// Stop stops the watcher goroutine and waits for it to exit.
func (w *DocumentWatcher) Stop() {
	w.mu.Lock()
	stopCh, done, notify := w.stopCh, w.done, w.notify
	w.stopCh, w.done, w.notify, w.watched = nil, nil, nil, ""
	w.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
	if notify != nil {
		notify.Close()
	}
}

func (w *DocumentWatcher) watchLoop(stopCh, done chan struct{}, notify *fsnotify.Watcher) {
	defer close(done)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if notify != nil {
		events, errs = notify.Events, notify.Errors
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			w.check()
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.check()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("Watcher: %v", err)
		}
	}
}

func (w *DocumentWatcher) check() {
	if path, ok := w.Check(); ok && w.onChange != nil {
		w.onChange(path)
	}
}

// Check reports whether the watched document changed since the last check
// and moves the baseline forward when it did.
func (w *DocumentWatcher) Check() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.path == "" {
		return "", false
	}
	mod, err := modTime(w.path)
	if err != nil || !mod.After(w.baseline) {
		return w.path, false
	}
	w.baseline = mod
	return w.path, true
}

// modTime returns the modification time of a file, or the newest entry of a directory.
func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if !info.IsDir() {
		return info.ModTime(), nil
	}

	newest := info.ModTime()
	entries, err := os.ReadDir(path)
	if err != nil {
		return newest, err
	}
	for _, e := range entries {
		fi, err := os.Stat(filepath.Join(path, e.Name()))
		if err == nil && fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	return newest, nil
}
