package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/spellcardmanager/spellcards/internal/config"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/watcher"
)

// FileWatcherHandle wraps the file watcher with shutdown capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Close()
}

// ProvideFileWatcher provides the deck file watcher. Events are delivered
// on its channels; the consumer forwards them to the session on the
// session's goroutine.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	w, err := watcher.New(log.Logger, watcher.Options{SettleDelay: cfg.Watch.Settle})
	if err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	log.Debug("File watcher started", "settle", cfg.Watch.Settle)

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
