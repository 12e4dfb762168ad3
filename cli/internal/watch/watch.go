// Package watch reruns a callback when a model file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long the watcher waits after the last write before it
// runs the callback.
var Debounce = 300 * time.Millisecond

// Watcher watches one file. Editors that replace the file on save are
// handled by watching the parent directory.
type Watcher struct {
	file     string
	onChange func() error
	onError  func(error)
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for file. Callback errors and watch errors
// are passed to onError.
func NewWatcher(file string, onChange func() error, onError func(error)) (*Watcher, error) {
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

	return &Watcher{file: absPath, onChange: onChange, onError: onError, watcher: watcher}, nil
}

// Run calls onChange once, then again after every change to the file,
// until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.onChange(); err != nil {
		w.onError(err)
	}

	timer := time.NewTimer(Debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if path, err := filepath.Abs(event.Name); err == nil && path == w.file {
				timer.Reset(Debounce)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			if err := w.onChange(); err != nil {
				w.onError(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.onError(err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
