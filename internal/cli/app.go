// Package cli implements the spelldeck command line: one-shot commands that
// open a deck file, act on it and save it, and an interactive shell that
// keeps one session open across commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/config"
	"github.com/spellcardmanager/spellcards/internal/di"
	"github.com/spellcardmanager/spellcards/internal/di/providers"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/fileservice"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// DeckEnv names the environment variable that supplies a default --deck.
const DeckEnv = "SPELLDECK_DECK"

// App is one invocation of the command line.
type App struct {
	Out     io.Writer
	Err     io.Writer
	Version string

	in       *bufio.Reader
	flags    *config.Flags
	deckPath string
	paths    fileservice.FixedPaths

	injector *do.RootScope
	cfg      *config.Config
	log      *logger.Logger
	styles   styles

	// live is set while the shell runs. Commands then act on the open
	// session and leave saving to the user.
	live bool
}

// New creates an App reading answers from in.
func New(in io.Reader, out, errw io.Writer, version string) *App {
	return &App{
		Out:     out,
		Err:     errw,
		Version: version,
		in:      bufio.NewReader(in),
	}
}

// Main runs args and returns the process exit status.
func (a *App) Main(ctx context.Context, args []string) int {
	err := a.Run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errors.ErrCancelled):
		fmt.Fprintln(a.Err, "cancelled")
	default:
		fmt.Fprintf(a.Err, "error: %v\n", err)
	}
	return errors.ExitStatus(err)
}

// Run parses the global flags, builds the service container and
// dispatches the command.
func (a *App) Run(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("spelldeck", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	a.flags = config.RegisterFlags(fs)
	fs.StringVarP(&a.deckPath, "deck", "d", os.Getenv(DeckEnv), "Deck file to work on (env "+DeckEnv+")")
	err := fs.Parse(args)
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		return errors.Validationf("spelldeck: %v", err)
	}

	root := a.Root()
	rest := fs.Args()
	if err != nil || len(rest) == 0 || isHelpFlag(rest[0]) {
		root.PrintHelp(a.Out)
		fmt.Fprintf(a.Out, "\nGlobal flags:\n%s", fs.FlagUsages())
		return nil
	}

	a.paths = fileservice.FixedPaths{Open: a.deckPath, Save: a.deckPath}
	a.injector = di.NewContainer(providers.Invocation{
		Flags:    a.flags,
		Stderr:   a.Err,
		Chooser:  &a.paths,
		Prompter: newLinePrompter(a.in, a.Out),
	})
	defer a.shutdown()

	if err := di.Bootstrap(a.injector); err != nil {
		return err
	}
	a.cfg = do.MustInvoke[*config.Config](a.injector)
	a.log = do.MustInvoke[*logger.Logger](a.injector)
	a.styles = newStyles(a.Out, a.cfg.Logger.NoColor)

	return root.Execute(ctx, a.Out, rest)
}

func (a *App) shutdown() {
	if err := a.injector.Shutdown(); err != nil {
		if a.log != nil {
			a.log.Error("Shutdown error", "error", err)
		}
	}
}

// Root builds the command tree.
func (a *App) Root() *Command {
	return &Command{
		Name:    "spelldeck",
		Summary: "Manage decks of spell cards.",
		Subcommands: []*Command{
			a.listCommand(),
			a.showCommand(),
			a.tagsCommand(),
			a.tagCommand(),
			a.cardCommand(),
			a.searchCommand(),
			a.convertCommand(),
			a.recentCommand(),
			a.recoverCommand(),
			a.watchCommand(),
			a.shellCommand(),
			a.versionCommand(),
		},
	}
}

// session returns the container's session.
func (a *App) session() (*session.Session, error) {
	h, err := do.Invoke[*providers.SessionHandle](a.injector)
	if err != nil {
		return nil, err
	}
	return h.Session, nil
}

// readDeck runs fn on the deck named by --deck. In the shell it runs on the
// open deck instead.
func (a *App) readDeck(ctx context.Context, fn func(*session.Session) error) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if !a.live {
		if a.deckPath == "" {
			return errors.Validation("no deck given: use --deck or " + DeckEnv)
		}
		if err := s.OpenPath(ctx, a.deckPath); err != nil {
			return err
		}
	}
	return fn(s)
}

// editDeck runs fn on the deck named by --deck and saves it when fn changed
// anything. A missing file starts a new deck that is saved to that path. In
// the shell the changes stay unsaved.
func (a *App) editDeck(ctx context.Context, fn func(*session.Session) error) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if a.live {
		return fn(s)
	}

	if a.deckPath == "" {
		return errors.Validation("no deck given: use --deck or " + DeckEnv)
	}
	err = s.OpenPath(ctx, a.deckPath)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		a.log.Info("creating new deck", "path", a.deckPath)
	case err != nil:
		return err
	}

	if err := fn(s); err != nil {
		return err
	}
	if !s.IsDirty() {
		return nil
	}
	return s.Save(ctx)
}

func (a *App) versionCommand() *Command {
	return &Command{
		Name:    "version",
		Summary: "Print the version.",
		Run: func(context.Context, []string) error {
			fmt.Fprintf(a.Out, "spelldeck %s\n", a.Version)
			return nil
		},
	}
}
