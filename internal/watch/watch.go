// Package watch re-runs a job whenever a file changes.
//
// Every run takes a fresh jobs.Ticket, so when the file changes again while
// an earlier run is still busy, the earlier run is superseded and its result
// discarded. The handler finds the ticket with jobs.FromContext.
package watch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eliasnau/imagetools/jobs"
)

// DefaultDebounce is how long the file must be quiet before a run starts.
const DefaultDebounce = 200 * time.Millisecond

// Handler processes the file once.
type Handler func(ctx context.Context) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for run failures and watcher errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the quiet period after a change.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithSequencer shares a sequencer between watchers.
func WithSequencer(seq *jobs.Sequencer) Option {
	return func(w *Watcher) {
		w.seq = seq
	}
}

// Watcher watches a single file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	seq      *jobs.Sequencer
}

// New creates a Watcher for path.
func New(path string, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.seq == nil {
		w.seq = jobs.NewSequencer(jobs.WithLogger(w.logger))
	}
	return w
}

// Run calls fn once right away and again after every change to the file,
// until ctx is done. It returns after all started runs have finished.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	// Editors often save by renaming over the file, so watch the directory.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch: add %q: %w", w.path, err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	start := func() {
		t := w.seq.Begin()
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.report(ctx, t, fn(jobs.NewContext(ctx, t)))
		}()
	}
	start()

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

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if w.logger != nil {
				w.logger.WarnContext(ctx, "file watcher error", "path", w.path, "error", err)
			}

		case <-pending:
			pending = nil
			start()
		}
	}
}

func (w *Watcher) report(ctx context.Context, t *jobs.Ticket, err error) {
	if w.logger == nil {
		return
	}
	switch {
	case err == nil:
	case stderrors.Is(err, jobs.ErrStale), stderrors.Is(err, context.Canceled):
		w.logger.DebugContext(ctx, "run discarded", "path", w.path, "job", t.ID)
	default:
		w.logger.ErrorContext(ctx, "run failed", "path", w.path, "job", t.ID, "error", err)
	}
}
