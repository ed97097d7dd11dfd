package supervisor

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settingsDebounce = 200 * time.Millisecond

// WatchSettings watches settingsPath's directory via fsnotify and calls
// onChange (debounced) whenever that file is created, written, or
// renamed into place — the common pattern for editors that replace a
// config file rather than writing it in place. It blocks until ctx is
// cancelled.
func WatchSettings(ctx context.Context, settingsPath string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(settingsPath)
	name := filepath.Base(settingsPath)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		pending bool
		timer   *time.Timer
	)

	fire := func() {
		mu.Lock()
		pending = false
		mu.Unlock()
		onChange()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			if !pending {
				pending = true
				timer = time.AfterFunc(settingsDebounce, fire)
			} else {
				timer.Reset(settingsDebounce)
			}
			mu.Unlock()

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
