// Package watch observes the local input file and triggers a refresh when
// it changes. Editors and spreadsheet exports save in several steps, so
// event bursts collapse into a single trigger.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	appLog "freecal/internal/log"
)

const (
	debounceDelay      = 250 * time.Millisecond
	minTriggerInterval = 2 * time.Second
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Watcher invokes onChange when the watched file is written, created,
// renamed, or removed.
type Watcher struct {
	path     string
	onChange func()

	limiter *rate.Limiter

	timerMu sync.Mutex
	timer   *time.Timer
}

// New builds a watcher for path. onChange runs on a timer goroutine and
// must not block for long.
func New(path string, onChange func()) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		limiter:  rate.NewLimiter(rate.Every(minTriggerInterval), 1),
	}
}

// Run watches the file's directory until ctx is canceled. The watcher is
// recreated with backoff when it breaks; fsnotify can stop delivering
// events after certain editor save patterns.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	backoff := restartBackoffBase

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fw.Add(dir); err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			appLog.Error("input watch init failed", err, "dir", dir)
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = restartBackoffBase
		appLog.Debug("input watcher started", "dir", dir, "file", file)

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename; editors often replace the file via a
				// temp name and rename.
				if !strings.EqualFold(filepath.Base(ev.Name), file) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					w.debounce()
				}
			case werr, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if werr == nil {
					continue
				}
				appLog.Error("input watch error", werr, "dir", dir)
				if strings.Contains(strings.ToLower(werr.Error()), "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		appLog.Info("input watcher stopped; restarting", "dir", dir, "backoff", backoff.String())
		if !sleepCtx(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

// debounce schedules one trigger shortly in the future, replacing any
// pending one.
func (w *Watcher) debounce() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.trigger)
}

// trigger fires onChange, pushing the call out to the limiter's next slot
// when changes arrive faster than minTriggerInterval. No change is dropped,
// only deferred.
func (w *Watcher) trigger() {
	res := w.limiter.Reserve()
	if d := res.Delay(); d > 0 {
		res.Cancel()
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timer = time.AfterFunc(d, w.trigger)
		w.timerMu.Unlock()
		return
	}

	appLog.Info("input changed", "path", w.path)
	w.onChange()
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > restartBackoffMax {
		d = restartBackoffMax
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
