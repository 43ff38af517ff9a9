// Package watch reloads the dataset when export files in the data directory
// change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/importer"
)

// DefaultDebounce is how long the directory must stay quiet before a reload.
const DefaultDebounce = 2 * time.Second

// Reloader rebuilds the dataset; store.Store is one.
type Reloader interface {
	Reload(ctx context.Context) (*dataset.Dataset, error)
}

// Options tune a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   zerolog.Logger

	// OnReload, if set, is called after every reload attempt.
	OnReload func(*dataset.Dataset, error)
}

// Watcher monitors a data directory and triggers reloads.
type Watcher struct {
	dir      string
	reloader Reloader
	debounce time.Duration
	log      zerolog.Logger
	onReload func(*dataset.Dataset, error)
}

// New creates a Watcher for dir.
func New(dir string, reloader Reloader, opts Options) *Watcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		reloader: reloader,
		debounce: debounce,
		log:      opts.Logger,
		onReload: opts.OnReload,
	}
}

// Run watches until ctx is done. Bursts of events, such as a large file being
// copied in, collapse into one reload once the directory is quiet.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.log.Info().Str("dir", w.dir).Dur("debounce", w.debounce).Msg("watching data dir")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(evt) {
				continue
			}
			w.log.Debug().Str("file", evt.Name).Str("op", evt.Op.String()).Msg("data dir changed")
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			ds, err := w.reloader.Reload(ctx)
			if w.onReload != nil {
				w.onReload(ds, err)
			}
		}
	}
}

func relevant(evt fsnotify.Event) bool {
	if !evt.Op.Has(fsnotify.Create) && !evt.Op.Has(fsnotify.Write) &&
		!evt.Op.Has(fsnotify.Remove) && !evt.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(evt.Name)
	return !strings.HasPrefix(name, ".") && importer.IsDataFile(name)
}
