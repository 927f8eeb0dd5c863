package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kiosk404/warden/pkg/logger"
	"github.com/kiosk404/warden/pkg/utils/safego"
)

// DefaultReloadDelay is how long the watcher waits after the last change
// before re-reading the configuration file.
const DefaultReloadDelay = 500 * time.Millisecond

// ConfigWatcher re-applies the MCP configuration file to a Manager when
// the file changes. The parent directory is watched so that editors which
// replace the file on save are handled.
type ConfigWatcher struct {
	path    string
	manager Manager
	delay   time.Duration

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu    sync.Mutex
	timer *time.Timer
	// reloaded is signaled after every reload attempt.
	reloaded chan error
}

// WatchConfig starts watching path and applies every change to manager.
func WatchConfig(path string, manager Manager, delay time.Duration) (*ConfigWatcher, error) {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", filepath.Dir(abs), err)
	}

	w := &ConfigWatcher{
		path:     abs,
		manager:  manager,
		delay:    delay,
		watcher:  watcher,
		closeCh:  make(chan struct{}),
		reloaded: make(chan error, 1),
	}
	w.wg.Add(1)
	safego.Go(context.Background(), func() {
		defer w.wg.Done()
		w.loop()
	})

	logger.Info("[MCP] watching %s for changes", abs)
	return w, nil
}

func (w *ConfigWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[MCP] config watcher error: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

func (w *ConfigWatcher) reload() {
	err := w.apply()
	if err != nil {
		logger.Warn("[MCP] reload of %s: %v", w.path, err)
	}
	select {
	case w.reloaded <- err:
	default:
	}
}

func (w *ConfigWatcher) apply() error {
	cfg, err := LoadMCPConfig(w.path)
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration, keeping the running servers: %w", errors.Join(errs...))
	}
	complete(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return w.manager.Apply(ctx, cfg)
}

// Close stops watching. Pending reloads are dropped.
func (w *ConfigWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		w.wg.Wait()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	return err
}
