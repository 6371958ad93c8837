// Package activity tracks workspace file activity so recovery estimates
// reflect real progress, not just hook boundaries.
package activity

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a workspace directory tree and records the time of the
// most recent file event. It implements the executor's ActivitySource.
type Watcher struct {
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	lastEvent time.Time

	done chan struct{}
	once sync.Once
}

// NewWatcher creates a watcher over the workspace root and its existing
// subdirectories. Directories created after Start are picked up as their
// create events arrive.
func NewWatcher(workspacePath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:   fw,
		lastEvent: time.Now(),
		done:      make(chan struct{}),
	}

	err = filepath.WalkDir(workspacePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if addErr := fw.Add(path); addErr != nil {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("walk workspace: %w", err)
	}

	return w, nil
}

// Start begins consuming file events until Stop is called.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.mu.Lock()
			w.lastEvent = time.Now()
			w.mu.Unlock()

			// Watch directories as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watcher.Add(event.Name)
				}
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// LastEvent returns the time of the most recent observed file event.
func (w *Watcher) LastEvent() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastEvent
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
