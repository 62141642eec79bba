package notifier

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of write events from editors that save
// in multiple steps.
const reloadDebounce = 250 * time.Millisecond

// Watcher hot-reloads the channels file into a dispatcher on change.
type Watcher struct {
	path       string
	dispatcher *Dispatcher
	fsWatcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given channels file.
func NewWatcher(path string, d *Dispatcher) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	// Watch the directory rather than the file so that atomic
	// rename-over-save is observed.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:       path,
		dispatcher: d,
		fsWatcher:  fsWatcher,
	}, nil
}

// Run watches for changes until the context is cancelled. A failed reload
// keeps the previous channel set.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("notifier: watch error: %v", err)
		}
	}
}

// reload applies the current file contents to the dispatcher.
func (w *Watcher) reload() {
	configs, err := LoadChannelsFromFile(w.path)
	if err != nil {
		log.Printf("notifier: reload %s: %v", w.path, err)
		return
	}
	if err := Configure(w.dispatcher, configs); err != nil {
		log.Printf("notifier: reload %s: %v", w.path, err)
		return
	}
	log.Printf("notifier: reloaded %d channels from %s", len(configs), w.path)
}
