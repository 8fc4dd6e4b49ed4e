package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/micro-nova/templog/internal/models"
)

// Watcher reports out-of-band changes to the credential file, for example a
// provisioning tool dropping wifi.json onto the device while it serves the
// configuration page.
type Watcher struct {
	store   Store
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the directory holding store's file and calls
// onChange with the freshly loaded credentials whenever the file is
// written, created or removed. The callback runs on the watcher goroutine.
func Watch(store Store, onChange func(models.Credentials)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path := store.Path()
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{store: store, watcher: fw, done: make(chan struct{})}
	go w.loop(path, onChange)
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(path string, onChange func(models.Credentials)) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			creds, err := w.store.Load()
			if err != nil {
				slog.Warn("config: failed to reload credentials", "err", err)
				continue
			}
			slog.Debug("config: credentials file changed", "op", event.Op.String(), "configured", creds.IsConfigured())
			onChange(creds)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}
