package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cycled/internal/logging"
)

// Watcher reloads the config file on change and hands the new Config to a
// callback. Rapid successive writes (editors save in bursts) are
// debounced.
type Watcher struct {
	path     string
	onChange func(Config)

	watcher     *fsnotify.Watcher
	debounceDur time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher builds a watcher for path. onChange runs on the watcher
// goroutine; keep it fast or hand off.
func NewWatcher(path string, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:        path,
		onChange:    onChange,
		watcher:     fsw,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the config file's directory. Watching the
// directory instead of the file survives editors that replace the file on
// save.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.watcher.Close()
		return err
	}

	go w.run()
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	log := logging.L(logging.CategoryConfig)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// Restart the debounce window.
			if timer == nil {
				timer = time.NewTimer(w.debounceDur)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounceDur)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			cfg, err := Load(w.path)
			if err != nil {
				log.Warnw("config reload failed", "path", w.path, "error", err)
				continue
			}
			log.Infow("config reloaded", "path", w.path)
			w.onChange(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnw("watch error", "error", err)

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
