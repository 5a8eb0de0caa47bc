package workout

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
)

// Watch reloads path into c whenever the file is written or recreated.
// A catalog that fails to load leaves c untouched; onReload, if set, is
// called after every attempt. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, c *Catalog, onReload func(error)) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("unable to expand catalog path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	// Editors often replace files on save, so watch the directory.
	if err := w.Add(filepath.Dir(expanded)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", filepath.Dir(expanded), err)
	}

	target := filepath.Clean(expanded)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			next, err := LoadCatalogFile(expanded)
			if err != nil {
				log.Warn("Could not reload workout catalog", "path", expanded, "err", err)
			} else {
				c.Replace(next)
				log.Info("Reloaded workout catalog", "path", expanded, "plans", next.Len())
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Catalog watcher error", "err", err)
		}
	}
}
