// Package session implements the document flows around the current deck:
// new, open, save, save as and the unsaved-changes prompts, plus the title
// and dirty state derived from them.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spellcardmanager/spellcards/internal/deckfile"
	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/reactive"
)

// UntitledName is the title of a deck that has never been saved.
const UntitledName = "New Deck"

// ExternalChange reports that another program touched the current file.
type ExternalChange struct {
	Path    string
	Removed bool
}

// Options configures a Session. Files is required; the rest are optional.
type Options struct {
	Files    FileService
	Prompter Prompter
	Renderer Renderer
	History  History
	Watcher  Watcher
	Logger   *slog.Logger

	// Format is used when saving to a path without an extension.
	Format deckfile.Format
	// Pretty indents JSON output.
	Pretty bool
}

// Session owns the current deck and its file.
//
// A Session is not safe for concurrent use: call it from the goroutine that
// owns the deck. Open reads and decodes on a worker goroutine and applies the
// result on the caller's.
type Session struct {
	files    FileService
	prompter Prompter
	renderer Renderer
	history  History
	watcher  Watcher
	logger   *slog.Logger
	format   deckfile.Format
	pretty   bool

	deck    *domain.Deck
	path    string
	dirty   bool
	deckSub reactive.Subscription

	deckReplaced   reactive.Signal[*domain.Deck]
	dirtyChanged   reactive.Signal[bool]
	externalChange reactive.Signal[ExternalChange]
}

// NewSession creates a session holding an empty, untitled deck.
func NewSession(opts Options) *Session {
	s := &Session{
		files:    opts.Files,
		prompter: opts.Prompter,
		renderer: opts.Renderer,
		history:  opts.History,
		watcher:  opts.Watcher,
		logger:   logger.OrDiscard(opts.Logger),
		format:   opts.Format,
		pretty:   opts.Pretty,
	}
	s.replace(domain.NewDeck(), "")
	return s
}

// Deck returns the current deck.
func (s *Session) Deck() *domain.Deck { return s.deck }

// Path returns the current file path, or "" for an unsaved deck.
func (s *Session) Path() string { return s.path }

// IsDirty reports whether the deck changed since it was created, opened or saved.
func (s *Session) IsDirty() bool { return s.dirty }

// DeckReplaced fires after New, Open or Reload installs a different deck.
// Views built on the previous deck should be discarded.
func (s *Session) DeckReplaced() *reactive.Signal[*domain.Deck] { return &s.deckReplaced }

// DirtyChanged fires when the dirty flag flips.
func (s *Session) DirtyChanged() *reactive.Signal[bool] { return &s.dirtyChanged }

// ExternalChanged fires when NotifyExternalChange reports a change to the current file.
func (s *Session) ExternalChanged() *reactive.Signal[ExternalChange] { return &s.externalChange }

// Title is the file's base name, or UntitledName, prefixed with "*" when dirty.
func (s *Session) Title() string {
	title := UntitledName
	if s.path != "" {
		title = filepath.Base(s.path)
	}
	if s.dirty {
		title = "*" + title
	}
	return title
}

// New replaces the deck with an empty one after offering to save changes.
func (s *Session) New(ctx context.Context) error {
	if err := s.AskAndSaveIfDirty(ctx); err != nil {
		return err
	}
	s.unwatch()
	s.replace(domain.NewDeck(), "")
	return nil
}

// Open asks for a file and loads it, after offering to save changes.
func (s *Session) Open(ctx context.Context) error {
	if err := s.AskAndSaveIfDirty(ctx); err != nil {
		return err
	}
	file, err := s.files.OpenDeckFile(ctx)
	if err != nil {
		return err
	}
	return s.load(ctx, file)
}

// OpenPath loads the deck at path, after offering to save changes.
func (s *Session) OpenPath(ctx context.Context, path string) error {
	if err := s.AskAndSaveIfDirty(ctx); err != nil {
		return err
	}
	file, err := s.files.TryGetFile(ctx, path)
	if err != nil {
		return err
	}
	return s.load(ctx, file)
}

// Reload discards unsaved changes and reads the current file again.
func (s *Session) Reload(ctx context.Context) error {
	if s.path == "" {
		return errors.NotFound("deck has not been saved")
	}
	file, err := s.files.TryGetFile(ctx, s.path)
	if err != nil {
		return err
	}
	return s.load(ctx, file)
}

// Save writes the deck to its current file, or asks for one when it has none.
func (s *Session) Save(ctx context.Context) error {
	return s.save(ctx, s.path)
}

// SaveAs asks for a file and writes the deck to it.
func (s *Session) SaveAs(ctx context.Context) error {
	return s.save(ctx, "")
}

// AskAndSaveIfDirty offers to save unsaved changes. Declining is not an
// error; a cancelled save-as dialog or a failed save is.
func (s *Session) AskAndSaveIfDirty(ctx context.Context) error {
	if !s.dirty || s.prompter == nil {
		return nil
	}

	answer, err := s.prompter.Warning(ctx, "Save", s.unsavedMessage(), ButtonsYesNo)
	if err != nil {
		return err
	}
	if answer != AnswerYes {
		return nil
	}
	return s.save(ctx, s.path)
}

// CheckCanClose reports whether the application may close. With unsaved
// changes the user chooses to save, discard or cancel; when the save fails
// they are asked whether to quit anyway.
func (s *Session) CheckCanClose(ctx context.Context) (bool, error) {
	if !s.dirty || s.prompter == nil {
		return true, nil
	}

	answer, err := s.prompter.Warning(ctx, "Save", s.unsavedMessage(), ButtonsYesNoCancel)
	if err != nil {
		return false, err
	}

	switch answer {
	case AnswerYes:
		err := s.save(ctx, s.path)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, errors.ErrCancelled) {
			return false, nil
		}
		confirm, perr := s.prompter.Error(ctx, "Error",
			fmt.Sprintf("There was an error saving the file:\n%v\nWould you like to quit anyway?", err),
			ButtonsYesNo)
		if perr != nil {
			return false, perr
		}
		return confirm == AnswerYes, nil
	case AnswerNo:
		return true, nil
	default:
		return false, nil
	}
}

// RenderDescription renders card's description with the configured
// renderer. Without one the raw Markdown is returned.
func (s *Session) RenderDescription(card *domain.SpellCard) (string, error) {
	if s.renderer == nil {
		return card.Description(), nil
	}
	return s.renderer.Render(card.Description())
}

// NotifyExternalChange records that another program changed or removed
// the current file. Changes to other paths are ignored.
func (s *Session) NotifyExternalChange(ch ExternalChange) {
	if s.path == "" || filepath.Clean(ch.Path) != filepath.Clean(s.path) {
		return
	}
	s.logger.Info("deck changed on disk",
		"path", ch.Path,
		"removed", ch.Removed,
		"dirty", s.dirty,
	)
	s.externalChange.Emit(ch)
}

// Close stops watching the current file.
func (s *Session) Close() error {
	s.unwatch()
	if s.deckSub != nil {
		s.deckSub.Close()
	}
	return nil
}

func (s *Session) unsavedMessage() string {
	if s.path == "" {
		return "You have unsaved changes. Would you like to save them?"
	}
	return fmt.Sprintf("%s has unsaved changes. Would you like to save them?", filepath.Base(s.path))
}

type loadResult struct {
	deck *domain.Deck
	err  error
}

// load reads and decodes file on a worker goroutine, then installs the deck
// on the calling goroutine.
func (s *Session) load(ctx context.Context, file File) error {
	done := make(chan loadResult, 1)
	go func() {
		deck, err := readDeck(ctx, file)
		done <- loadResult{deck: deck, err: err}
	}()

	var res loadResult
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CodeCancelled, "open deck")
	case res = <-done:
	}
	if res.err != nil {
		s.logger.Warn("failed to open deck", "path", file.Path(), "error", res.err)
		return res.err
	}

	s.unwatch()
	s.replace(res.deck, file.Path())
	s.logger.Info("deck opened",
		"path", file.Path(),
		"tags", res.deck.Tags().Len(),
		"cards", res.deck.Cards().Len(),
	)

	s.recordOpened(ctx)
	s.watch()
	return nil
}

func readDeck(ctx context.Context, file File) (*domain.Deck, error) {
	rc, err := file.OpenRead(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return deckfile.Read(rc)
}

func (s *Session) save(ctx context.Context, path string) error {
	// 1. Resolve the target file.
	var (
		file File
		err  error
	)
	if path == "" {
		file, err = s.files.SaveDeckFileAs(ctx)
	} else {
		file, err = s.files.TryGetFile(ctx, path)
	}
	if err != nil {
		return err
	}

	// 2. Encode fully before touching the file.
	format := deckfile.FormatForPathOr(file.Name(), s.format)
	var buf bytes.Buffer
	if err := deckfile.Write(&buf, s.deck, format, deckfile.WriteOptions{Pretty: s.pretty}); err != nil {
		return err
	}

	// 3. Write, keeping our own write from looking like an external change.
	s.unwatch()
	if err := writeFile(ctx, file, buf.Bytes()); err != nil {
		s.watch()
		return err
	}

	s.path = file.Path()
	s.setDirty(false)
	s.logger.Info("deck saved",
		"path", s.path,
		"format", format.String(),
		"bytes", buf.Len(),
	)

	// 4. Best-effort bookkeeping.
	s.recordOpened(ctx)
	if s.history != nil {
		if err := s.history.SaveSnapshot(ctx, s.path, buf.Bytes()); err != nil {
			s.logger.Warn("failed to store deck snapshot", "path", s.path, "error", err)
		}
	}
	s.watch()
	return nil
}

func writeFile(ctx context.Context, file File, data []byte) error {
	wc, err := file.OpenWrite(ctx)
	if err != nil {
		return err
	}
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		_ = wc.Close()
		return errors.Wrapf(err, errors.CodeIO, "write %s", file.Name())
	}
	if err := wc.Close(); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "close %s", file.Name())
	}
	return nil
}

func (s *Session) recordOpened(ctx context.Context) {
	if s.history == nil || s.path == "" {
		return
	}
	if err := s.history.RecordOpened(ctx, s.path); err != nil {
		s.logger.Warn("failed to record recent deck", "path", s.path, "error", err)
	}
}

func (s *Session) watch() {
	if s.watcher == nil || s.path == "" {
		return
	}
	if err := s.watcher.Watch(s.path); err != nil {
		s.logger.Warn("failed to watch deck", "path", s.path, "error", err)
	}
}

func (s *Session) unwatch() {
	if s.watcher == nil {
		return
	}
	if err := s.watcher.Unwatch(); err != nil {
		s.logger.Debug("failed to stop watching deck", "error", err)
	}
}

// replace installs deck as the current deck with a clean dirty flag.
func (s *Session) replace(deck *domain.Deck, path string) {
	if s.deckSub != nil {
		s.deckSub.Close()
	}
	s.deck = deck
	s.path = path
	s.deckSub = deck.Changes().Subscribe(func(domain.DeckChange) {
		s.setDirty(true)
	})
	s.setDirty(false)
	s.deckReplaced.Emit(deck)
}

func (s *Session) setDirty(dirty bool) {
	if s.dirty == dirty {
		return
	}
	s.dirty = dirty
	s.dirtyChanged.Emit(dirty)
}
