// Package watch reruns a callback when a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nosyt-lien/preql/internal/debug"
)

// Debounce is how long a file must stay quiet before the callback runs.
const Debounce = 500 * time.Millisecond

// Watcher watches one file.
type Watcher struct {
	file     string
	callback func() error
	watcher  *fsnotify.Watcher
	delay    time.Duration
	// OnError receives callback and watcher errors.
	OnError func(error)
}

// New creates a watcher for file. Its directory is watched, so editors that
// replace the file on save are seen too.
func New(file string, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		callback: callback,
		watcher:  watcher,
		delay:    Debounce,
		OnError:  func(err error) { debug.Warn("watch", "error", err) },
	}, nil
}

// Run calls the callback once, then again after every burst of changes,
// until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.callback(); err != nil {
		w.OnError(err)
	}

	timer := time.NewTimer(w.delay)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, err := filepath.Abs(event.Name); err != nil || p != w.file {
				continue
			}
			debug.Debug("file changed", "file", w.file, "op", event.Op.String())
			timer.Reset(w.delay)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.callback(); err != nil {
				w.OnError(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.OnError(err)

		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
