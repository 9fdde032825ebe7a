// Package watcher reports changes other programs make to the open deck file.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// Watcher monitors a single file using fsnotify with settling.
//
// The file's directory is watched rather than the file itself so that
// editors which save by writing a new file and renaming it over the old one
// are still seen. Bursts of events are collapsed: an event fires once the
// file has stopped changing for the settle delay.
type Watcher struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	mu      sync.Mutex // protects target, dir and pending
	target  string
	dir     string
	pending *pendingEvent

	events   chan Event
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

var _ session.Watcher = (*Watcher)(nil)

// pendingEvent tracks a file that may still be changing
type pendingEvent struct {
	exists  bool
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher. Nothing is watched until Watch is called, and no
// events are delivered until Start runs.
func New(log *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger.OrDiscard(log),
		opts:    opts,
		watcher: fw,
		events:  make(chan Event, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Watch starts observing path, replacing any previously watched file.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dir != dir {
		w.removeLocked()
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to add watch: %w", err)
		}
		w.dir = dir
	}
	w.cancelLocked()
	w.target = abs

	w.logger.Debug("watching deck", "path", abs)
	return nil
}

// Unwatch stops observing the current file.
func (w *Watcher) Unwatch() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancelLocked()
	w.removeLocked()
	w.target = ""
	return nil
}

// Watching returns the watched path, or "".
func (w *Watcher) Watching() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

func (w *Watcher) removeLocked() {
	if w.dir == "" {
		return
	}
	if err := w.watcher.Remove(w.dir); err != nil {
		w.logger.Debug("failed to remove watch", "path", w.dir, "error", err)
	}
	w.dir = ""
}

// Start delivers events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-w.done:
	}
	return nil
}

// processEvents processes fsnotify events
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("dropped watcher error", "error", err)
			}
		}
	}
}

// handleFsnotifyEvent starts or restarts settling for the watched file.
// Every kind of operation settles the same way; the final stat decides
// between modified and removed.
func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.target == "" || filepath.Clean(event.Name) != w.target {
		return
	}
	w.startSettlingLocked()
}

func (w *Watcher) startSettlingLocked() {
	w.cancelLocked()

	pending := &pendingEvent{}
	if info, err := os.Stat(w.target); err == nil {
		pending.exists = true
		pending.size = info.Size()
		pending.modTime = info.ModTime()
	}

	target := w.target
	pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.checkSettled(target, pending)
	})
	w.pending = pending
}

// checkSettled emits an event when the file stayed unchanged for the
// settle delay, and restarts the timer otherwise.
func (w *Watcher) checkSettled(target string, pending *pendingEvent) {
	w.mu.Lock()
	if w.pending != pending || w.target != target {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(target)
	exists := err == nil
	if exists != pending.exists || (exists && (info.Size() != pending.size || !info.ModTime().Equal(pending.modTime))) {
		// Still changing
		pending.exists = exists
		if exists {
			pending.size = info.Size()
			pending.modTime = info.ModTime()
		}
		pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(target, pending)
		})
		w.mu.Unlock()
		return
	}
	w.pending = nil
	w.mu.Unlock()

	event := Event{Type: EventRemoved, Path: target}
	if exists {
		event = Event{Type: EventModified, Path: target, Size: info.Size(), ModTime: info.ModTime()}
	}
	w.logger.Info("deck changed on disk", "path", target, "type", event.Type.String())
	w.emitEvent(event)
}

func (w *Watcher) cancelLocked() {
	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}
}

// emitEvent sends an event to the events channel
func (w *Watcher) emitEvent(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// Events returns the channel for receiving settled events
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases resources. The event channels are
// not closed, since a settle timer may still be firing.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		w.cancelLocked()
		w.target = ""
		w.mu.Unlock()

		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
