package cli

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/di/providers"
	"github.com/spellcardmanager/spellcards/internal/session"
	"github.com/spellcardmanager/spellcards/internal/watcher"
)

func (a *App) watchCommand() *Command {
	var once bool
	return &Command{
		Name:    "watch",
		Summary: "Reload the deck whenever another program changes it.",
		Usage:   "spelldeck watch [--once]",
		Flags: func() *pflag.FlagSet {
			once = false
			fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			fs.BoolVar(&once, "once", false, "Exit after the first change")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 0, "spelldeck watch"); err != nil {
				return err
			}
			return a.readDeck(ctx, func(s *session.Session) error {
				return a.watch(ctx, s, once)
			})
		},
	}
}

// watch forwards settled file events to the session until ctx ends. A
// modified deck is reloaded when it has no unsaved changes.
func (a *App) watch(ctx context.Context, s *session.Session, once bool) error {
	w, err := do.Invoke[*providers.FileWatcherHandle](a.injector)
	if err != nil {
		return err
	}

	var reloadErr error
	sub := s.ExternalChanged().Subscribe(func(ch session.ExternalChange) {
		switch {
		case ch.Removed:
			fmt.Fprintf(a.Out, "%s was removed\n", ch.Path)
		case s.IsDirty():
			fmt.Fprintf(a.Out, "%s changed on disk; keeping unsaved changes\n", ch.Path)
		default:
			if reloadErr = s.Reload(ctx); reloadErr != nil {
				return
			}
			fmt.Fprintf(a.Out, "reloaded %s: %d spells, %d tags\n",
				ch.Path, s.Deck().Cards().Len(), s.Deck().Tags().Len())
		}
	})
	defer sub.Close()

	fmt.Fprintf(a.Out, "watching %s\n", s.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-w.Events():
			s.NotifyExternalChange(session.ExternalChange{
				Path:    event.Path,
				Removed: event.Type == watcher.EventRemoved,
			})
			if reloadErr != nil {
				return reloadErr
			}
			if once {
				return nil
			}
		case err := <-w.Errors():
			a.log.Warn("file watcher error", "error", err)
		}
	}
}
