// FILE: lixenwraith/runconfig/watch.go
package runconfig

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce duration to avoid rapid reloads (minimum 10ms)
	Debounce time.Duration

	// ReloadTimeout bounds a single rebuild
	ReloadTimeout time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      DefaultDebounce,
		ReloadTimeout: DefaultReloadTimeout,
		MaxWatchers:   DefaultMaxWatchers,
	}
}

// Event reports the outcome of a reload.
type Event struct {
	// Config is the rebuilt configuration, nil when Err is set
	Config *Config

	// Err is the load or validation failure; the previous configuration stays current
	Err error

	// Changed lists the dotted paths whose effective values differ, sorted
	Changed []string
}

// Touches reports whether any changed path equals prefix or is nested under it.
func (e Event) Touches(prefix string) bool {
	for _, path := range e.Changed {
		if path == prefix || strings.HasPrefix(path, prefix+".") {
			return true
		}
	}
	return false
}

// Watcher rebuilds a configuration when its file changes and publishes the
// result to subscribers. A failed rebuild keeps the last valid configuration.
type Watcher struct {
	builder *Builder
	opts    WatchOptions
	logger  zerolog.Logger
	fs      *fsnotify.Watcher

	mu          sync.RWMutex
	current     *Config
	subscribers map[int64]chan Event
	nextID      int64
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch builds the configuration and starts watching its directory.
// Configurations supplied as fragments have nothing on disk and cannot be watched.
func (b *Builder) Watch(opts WatchOptions) (*Watcher, error) {
	if b.fragments != nil {
		return nil, fmt.Errorf("%w: built from fragments", ErrNotWatchable)
	}

	if opts.Debounce < MinDebounce {
		opts.Debounce = MinDebounce
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}

	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Dir() == "" {
		return nil, fmt.Errorf("%w: no configuration directory", ErrNotWatchable)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, so the directory is watched rather than the file
	if err := fsw.Add(cfg.Dir()); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		builder:     b,
		opts:        opts,
		logger:      b.logger,
		fs:          fsw,
		current:     cfg,
		subscribers: make(map[int64]chan Event),
		ctx:         ctx,
		cancel:      cancel,
	}

	w.logger.Debug().
		Str("event", "config.watcher_started").
		Str("dir", cfg.Dir()).
		Msg("watching configuration directory")

	w.wg.Add(1)
	go w.watchLoop()

	return w, nil
}

// Current returns the last valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe returns a channel receiving reload events. The channel is closed
// by Close. Beyond MaxWatchers a closed channel is returned.
func (w *Watcher) Subscribe() <-chan Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || len(w.subscribers) >= w.opts.MaxWatchers {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, subscriberBuffer)
	w.nextID++
	w.subscribers[w.nextID] = ch
	return ch
}

// Close stops watching, waits for in-flight reloads and closes subscriber channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	for id, ch := range w.subscribers {
		close(ch)
		delete(w.subscribers, id)
	}
	w.mu.Unlock()

	w.logger.Debug().Str("event", "config.watcher_stopped").Msg("configuration watcher stopped")
	return err
}

// watchLoop is the main file watching loop
func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().
				Str("event", "config.file_changed").
				Str("op", event.Op.String()).
				Str("path", event.Name).
				Msg("configuration file changed")

			// Debounce: reset timer on each event
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("configuration watcher error")
			w.publish(Event{Err: err})
		}
	}
}

// relevant reports whether a filesystem event can affect the resolved configuration.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	name := filepath.Clean(event.Name)
	if file := w.Current().File(); file != "" && name == filepath.Clean(file) {
		return true
	}

	// Files that directory discovery could pick up
	base := filepath.Base(name)
	baseName := w.builder.discovery.baseName()
	for _, ext := range w.builder.discovery.Extensions {
		if base == baseName+ext {
			return true
		}
	}
	return false
}

// reload rebuilds the configuration and publishes the outcome.
func (w *Watcher) reload() {
	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	type result struct {
		cfg *Config
		err error
	}
	done := make(chan result, 1)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		cfg, err := w.builder.Build()
		done <- result{cfg, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			w.logger.Error().
				Err(res.err).
				Str("event", "config.reload_failed").
				Msg("configuration reload failed, keeping previous configuration")
			w.publish(Event{Err: res.err})
			return
		}

		w.mu.Lock()
		previous := w.current
		w.current = res.cfg
		w.mu.Unlock()

		changed := diffConfigs(previous, res.cfg)
		if len(changed) == 0 {
			return
		}

		w.logger.Info().
			Str("event", "config.reload_success").
			Strs("changed", changed).
			Msg("configuration reloaded")
		w.publish(Event{Config: res.cfg, Changed: changed})

	case <-ctx.Done():
		if w.ctx.Err() != nil {
			return
		}
		w.publish(Event{Err: fmt.Errorf("configuration reload timed out after %s", w.opts.ReloadTimeout)})
	}
}

// publish sends an event to every subscriber without blocking.
func (w *Watcher) publish(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is full, drop
		}
	}
}

// diffConfigs lists paths whose effective values differ between two configurations.
func diffConfigs(previous, next *Config) []string {
	oldValues := previous.snapshot()
	newValues := next.snapshot()

	changed := make(map[string]struct{})
	for path, newVal := range newValues {
		if oldVal, existed := oldValues[path]; !existed || !reflect.DeepEqual(oldVal, newVal) {
			changed[path] = struct{}{}
		}
	}
	for path := range oldValues {
		if _, exists := newValues[path]; !exists {
			changed[path] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(changed))
}

// snapshot flattens the effective configuration for comparison
func (c *Config) snapshot() map[string]any {
	nested, _ := toJSONValue(c.Effective()).(map[string]any)
	return flattenMap(nested, "")
}
