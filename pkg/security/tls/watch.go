package tls

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of filesystem events an ACME
// client produces when it rewrites both PEM files.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the secret bundle whenever either PEM file changes on
// disk. The parent directories are watched rather than the files, so
// renewal via write-to-temp-then-rename is picked up. Watch returns
// once the watcher is registered; it stops when ctx is cancelled.
func (r *Reloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dirs := map[string]bool{
		filepath.Dir(r.certFile): true,
		filepath.Dir(r.keyFile):  true,
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		reload := make(chan struct{}, 1)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !r.watchedFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})

			case <-reload:
				r.Reload()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if r.logger != nil {
					r.logger.Warn("certificate watcher error", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	if r.logger != nil {
		r.logger.Info("watching certificate files",
			"cert_file", r.certFile,
			"key_file", r.keyFile,
		)
	}
	return nil
}

func (r *Reloader) watchedFile(name string) bool {
	return filepath.Clean(name) == filepath.Clean(r.certFile) ||
		filepath.Clean(name) == filepath.Clean(r.keyFile)
}
