package worker

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events into one cache
// invalidation.
const debounceWindow = 500 * time.Millisecond

// WatchExternalChanges invalidates the worker's caches whenever the open
// database file is modified from outside the worker, e.g. by a maintenance
// tool run against the same account directory. The watch covers the file's
// directory so recreation (start-from-scratch by another build) is seen too.
// Returns a stop function that closes the watch and waits for its goroutine
// to exit; on error the returned function is nil.
func WatchExternalChanges(ctx context.Context, w *Worker, dbPath string, log *slog.Logger) (func(), error) {
	if log == nil {
		log = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var timer *time.Timer
		var timerC <-chan time.Time
		base := filepath.Base(dbPath)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
					timerC = timer.C
				} else {
					timer.Reset(debounceWindow)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				log.Info("database changed on disk, invalidating caches", "path", dbPath)
				// Buffered so the worker's reply never blocks; nobody reads it.
				w.submit(envelope{
					req:   Request{Op: OpInvalidateCaches},
					reply: make(chan Response, 1),
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("database watch error", "error", err)
			}
		}
	}()

	stop := func() {
		_ = watcher.Close()
		<-done
	}
	return stop, nil
}
