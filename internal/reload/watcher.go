// Package reload applies configuration changes to a running server. A
// Watcher polls the config file, and a Reloader validates the new file and
// hands module sections to the modules that support live reload.
package reload

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is used when WatcherConfig.PollInterval is zero.
const DefaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	Path         string
	PollInterval time.Duration
}

// Event reports that the watched file changed or a reload was requested.
type Event struct {
	Path string
	// Forced is set for events raised by Trigger, for example on SIGHUP.
	Forced bool
}

// fingerprint identifies one version of the file.
type fingerprint struct {
	modTime time.Time
	size    int64
}

// Watcher polls a file for modifications. Events are coalesced: at most
// one is pending at a time.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a watcher. Call Start to begin polling.
func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling. Only the first call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.poll(ctx)
	})
}

// Events returns the channel of change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Trigger queues a forced event unless one is already pending.
func (w *Watcher) Trigger() {
	w.emit(Event{Path: w.cfg.Path, Forced: true})
}

// Stop stops polling and waits for the goroutine to exit. Safe to call
// multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	default:
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	last, _ := w.stat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			current, ok := w.stat()
			if !ok || current == last {
				continue
			}
			last = current
			w.emit(Event{Path: w.cfg.Path})
		}
	}
}

// stat reports false while the file is missing, e.g. mid-rename by an editor.
func (w *Watcher) stat() (fingerprint, bool) {
	info, err := os.Stat(w.cfg.Path)
	if err != nil {
		return fingerprint{}, false
	}
	return fingerprint{modTime: info.ModTime(), size: info.Size()}, true
}
