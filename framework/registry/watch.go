package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits for before rescanning.
const DefaultDebounce = 250 * time.Millisecond

// Watch rescans the registry whenever a manifest under one of its roots is
// created, written, renamed or removed. It blocks until ctx is done. onRescan,
// if non-nil, is called after every rescan.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration, onRescan func(Stats)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	for _, root := range r.Roots() {
		if err := r.watchTree(fsw, root); err != nil {
			return err
		}
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !r.excluded(filepath.Base(event.Name)) {
				_ = r.watchTree(fsw, event.Name)
			}
			if !r.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := r.Rescan(); err != nil {
				r.logger.Error("registry rescan failed", "error", err)
				continue
			}
			stats := r.Stats()
			r.logger.Info("registry rescanned", "types", stats.Types, "units", stats.Units)
			if onRescan != nil {
				onRescan(stats)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("registry watcher error", "error", err)
		}
	}
}

// watchTree adds dir and every non-excluded subdirectory to fsw.
func (r *Registry) watchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != dir && r.excluded(d.Name()) {
			return fs.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

func (r *Registry) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if r.excluded(name) || filepath.Ext(name) != ManifestExt {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
