package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/reactive"
	"github.com/spellcardmanager/spellcards/internal/session"
	"github.com/spellcardmanager/spellcards/internal/view"
)

func (a *App) shellCommand() *Command {
	return &Command{
		Name:    "shell",
		Summary: "Edit a deck interactively; changes are kept until you save.",
		Usage:   "spelldeck shell",
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 0, "spelldeck shell"); err != nil {
				return err
			}
			s, err := a.session()
			if err != nil {
				return err
			}
			if a.deckPath != "" {
				if err := s.OpenPath(ctx, a.deckPath); err != nil && !errors.Is(err, errors.ErrNotFound) {
					return err
				}
			}
			return a.shell(ctx, s)
		},
	}
}

// shell reads commands until quit or end of input. Besides the regular
// commands it understands new, open, save, save-as, reload, status, filter
// and quit.
func (a *App) shell(ctx context.Context, s *session.Session) error {
	a.live = true
	defer func() { a.live = false }()

	filter := a.newFilterView(s)
	defer filter.close()

	root := a.Root()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprintf(a.Out, "%s> ", s.Title())

		in, ok := a.readLine(ctx, s, filter)
		if !ok {
			return nil
		}
		line, readErr := in.line, in.err
		args, err := splitArgs(line)
		switch {
		case err != nil:
			fmt.Fprintf(a.Out, "error: %v\n", err)
			continue
		case len(args) == 0 && readErr != nil:
			fmt.Fprintln(a.Out)
			return a.quitShell(ctx, s, readErr == io.EOF)
		case len(args) == 0:
			continue
		}

		quit, err := a.shellLine(ctx, s, root, filter, args)
		switch {
		case quit:
			return nil
		case errors.Is(err, errors.ErrCancelled):
			fmt.Fprintln(a.Out, "cancelled")
		case err != nil:
			fmt.Fprintf(a.Out, "error: %v\n", err)
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// readLine waits for the next input line. Filters that settle meanwhile are
// applied here, on the goroutine that owns the deck. It reports false when
// ctx is done.
func (a *App) readLine(ctx context.Context, s *session.Session, filter *filterView) (lineResult, bool) {
	lines := make(chan lineResult, 1)
	go func() {
		line, err := a.in.ReadString('\n')
		lines <- lineResult{line: line, err: err}
	}()

	for {
		select {
		case in := <-lines:
			return in, true
		case <-filter.ready():
			fmt.Fprintln(a.Out)
			filter.apply()
			fmt.Fprintf(a.Out, "%s> ", s.Title())
		case <-ctx.Done():
			return lineResult{}, false
		}
	}
}

// shellLine runs one command. It reports true when the shell should exit.
func (a *App) shellLine(ctx context.Context, s *session.Session, root *Command, filter *filterView, args []string) (bool, error) {
	switch args[0] {
	case "quit", "exit":
		ok, err := s.CheckCanClose(ctx)
		return ok, err
	case "new":
		return false, s.New(ctx)
	case "open":
		if len(args) != 2 {
			return false, errors.Validation("usage: open PATH")
		}
		return false, s.OpenPath(ctx, args[1])
	case "save":
		return false, s.Save(ctx)
	case "save-as":
		if len(args) != 2 {
			return false, errors.Validation("usage: save-as PATH")
		}
		a.paths.Save = args[1]
		return false, s.SaveAs(ctx)
	case "reload":
		return false, s.Reload(ctx)
	case "status":
		fmt.Fprintf(a.Out, "%s  %d spells, %d tags\n", s.Title(), s.Deck().Cards().Len(), s.Deck().Tags().Len())
		return false, nil
	case "filter":
		filter.set(strings.Join(args[1:], " "))
		return false, nil
	case "shell", "watch":
		return false, errors.Validationf("%s is not available in the shell", args[0])
	}
	return false, root.Execute(ctx, a.Out, args)
}

// filterView is the shell's search-as-you-type listing. Each filter command
// restarts the quiet period and the list prints once input settles.
type filterView struct {
	a        *App
	s        *session.Session
	view     *view.CardView
	replaced reactive.Subscription
}

func (a *App) newFilterView(s *session.Session) *filterView {
	f := &filterView{a: a, s: s}
	f.replaced = s.DeckReplaced().Subscribe(func(*domain.Deck) { f.reset() })
	return f
}

func (f *filterView) set(term string) {
	if f.view == nil {
		f.view = view.NewCardView(f.s.Deck(), nil,
			view.WithDebounce(f.a.cfg.View.SearchDebounce, nil))
	}
	filter := view.DefaultSearchFilter()
	filter.Term = term
	f.view.SetFilter(filter)
	if f.a.cfg.View.SearchDebounce <= 0 {
		f.print()
	}
}

// ready is nil, and so never selected, until a filter has been set.
func (f *filterView) ready() <-chan struct{} {
	if f.view == nil {
		return nil
	}
	return f.view.FilterReady()
}

func (f *filterView) apply() {
	f.view.FlushFilter()
	f.print()
}

func (f *filterView) print() {
	items := f.view.Items()
	for _, c := range items {
		fmt.Fprintf(f.a.Out, "%s %s\n", f.a.styles.star(c.IsFavorite()), f.a.styles.name.Render(c.Name()))
	}
	fmt.Fprintf(f.a.Out, "%d of %d spells match %q\n", len(items), f.s.Deck().Cards().Len(), f.view.Filter().Term)
}

func (f *filterView) reset() {
	if f.view != nil {
		f.view.Close()
		f.view = nil
	}
}

func (f *filterView) close() {
	f.replaced.Close()
	f.reset()
}

// quitShell handles end of input: the user may still save, but the shell
// exits either way.
func (a *App) quitShell(ctx context.Context, s *session.Session, eof bool) error {
	ok, err := s.CheckCanClose(ctx)
	if err != nil {
		return err
	}
	if !ok && eof {
		fmt.Fprintln(a.Out, "unsaved changes discarded")
	}
	return nil
}

// splitArgs splits a shell line into words. Single and double quotes group
// words and a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 || escaped {
		return nil, errors.Validation("unterminated quote or escape")
	}
	if inWord {
		args = append(args, word.String())
	}
	return args, nil
}
