package providers

import (
	"github.com/muesli/termenv"
	"github.com/samber/do/v2"

	"github.com/spellcardmanager/spellcards/internal/config"
	"github.com/spellcardmanager/spellcards/internal/deckfile"
	"github.com/spellcardmanager/spellcards/internal/fileservice"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/render"
	"github.com/spellcardmanager/spellcards/internal/session"
	"github.com/spellcardmanager/spellcards/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the badger store of recent decks and snapshots.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Data.StatePath()
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Debug("State database opened", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideFileService provides the OS file service.
func ProvideFileService(i do.Injector) (*fileservice.Service, error) {
	inv := do.MustInvoke[*Invocation](i)
	return fileservice.New(inv.Chooser), nil
}

// ProvideRenderer provides the terminal Markdown renderer.
func ProvideRenderer(i do.Injector) (render.Terminal, error) {
	cfg := do.MustInvoke[*config.Config](i)

	profile := termenv.EnvColorProfile()
	if cfg.Logger.NoColor {
		profile = termenv.Ascii
	}
	return render.NewTerminal(profile), nil
}

// SessionHandle wraps the session with shutdown capability.
type SessionHandle struct {
	*session.Session
}

// Shutdown implements do.Shutdownable.
func (h *SessionHandle) Shutdown() error {
	return h.Close()
}

// ProvideSession provides the document session, wired to the file
// service, renderer, history store and file watcher.
func ProvideSession(i do.Injector) (*SessionHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	inv := do.MustInvoke[*Invocation](i)
	files := do.MustInvoke[*fileservice.Service](i)
	renderer := do.MustInvoke[render.Terminal](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	watcherHandle := do.MustInvoke[*FileWatcherHandle](i)

	format, err := deckfile.ParseFormat(cfg.Deck.Format)
	if err != nil {
		return nil, err
	}

	s := session.NewSession(session.Options{
		Files:    files,
		Prompter: inv.Prompter,
		Renderer: renderer,
		History:  storeHandle.Store,
		Watcher:  watcherHandle.Watcher,
		Logger:   log.Logger,
		Format:   format,
		Pretty:   cfg.Deck.Pretty,
	})

	return &SessionHandle{Session: s}, nil
}
