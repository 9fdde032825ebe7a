package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/deckfile"
	"github.com/spellcardmanager/spellcards/internal/di/providers"
	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/fileservice"
)

func (a *App) convertCommand() *Command {
	return &Command{
		Name:    "convert",
		Summary: "Read a deck and write it in the format of the output's extension.",
		Usage:   "spelldeck convert IN OUT",
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "spelldeck convert IN OUT"); err != nil {
				return err
			}
			s, err := a.session()
			if err != nil {
				return err
			}
			if err := s.OpenPath(ctx, args[0]); err != nil {
				return err
			}

			a.paths.Save = args[1]
			if err := s.SaveAs(ctx); err != nil {
				return err
			}
			format := deckfile.FormatForPathOr(s.Path(), a.defaultFormat())
			fmt.Fprintf(a.Out, "wrote %s (%s, %d spells, %d tags)\n",
				s.Path(), format, s.Deck().Cards().Len(), s.Deck().Tags().Len())
			return nil
		},
	}
}

func (a *App) defaultFormat() deckfile.Format {
	format, err := deckfile.ParseFormat(a.cfg.Deck.Format)
	if err != nil {
		return deckfile.FormatJSON
	}
	return format
}

func (a *App) recentCommand() *Command {
	var (
		limit  int
		forget string
	)
	return &Command{
		Name:    "recent",
		Summary: "List recently opened decks.",
		Usage:   "spelldeck recent [--limit N] [--forget PATH]",
		Flags: func() *pflag.FlagSet {
			limit, forget = 0, ""
			fs := pflag.NewFlagSet("recent", pflag.ContinueOnError)
			fs.IntVarP(&limit, "limit", "n", 0, "Number of decks to list (default: RECENT_LIMIT)")
			fs.StringVar(&forget, "forget", "", "Remove PATH from the list and drop its snapshot")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 0, "spelldeck recent"); err != nil {
				return err
			}
			db, err := do.Invoke[*providers.StoreHandle](a.injector)
			if err != nil {
				return err
			}
			if forget != "" {
				return db.Forget(ctx, forget)
			}

			if limit <= 0 {
				limit = a.cfg.History.RecentLimit
			}
			recent, err := db.Recent(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.Out, 2, 0, 2, ' ', 0)
			for _, r := range recent {
				path := r.Path
				if _, err := os.Stat(path); err != nil {
					path += " " + a.styles.faint.Render("(missing)")
				}
				fmt.Fprintf(tw, "%s\t%dx\t%s\n", r.OpenedAt.Local().Format(time.DateTime), r.OpenCount, path)
			}
			return tw.Flush()
		},
	}
}

func (a *App) recoverCommand() *Command {
	return &Command{
		Name:    "recover",
		Summary: "Write the last saved snapshot of a deck to a new file.",
		Usage:   "spelldeck recover PATH OUT",
		Run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "spelldeck recover PATH OUT"); err != nil {
				return err
			}
			db, err := do.Invoke[*providers.StoreHandle](a.injector)
			if err != nil {
				return err
			}
			snap, err := db.Snapshot(ctx, args[0])
			if err != nil {
				return err
			}

			// 1. Decode, so a damaged snapshot is reported rather than copied.
			deck, err := deckfile.Read(bytes.NewReader(snap.Data))
			if err != nil {
				return err
			}

			// 2. Re-encode in the output's format.
			out := args[1]
			format := deckfile.FormatForPathOr(out, a.defaultFormat())
			var buf bytes.Buffer
			if err := deckfile.Write(&buf, deck, format, deckfile.WriteOptions{Pretty: a.cfg.Deck.Pretty}); err != nil {
				return err
			}

			// 3. Write through the file service so the output is replaced atomically.
			files := fileservice.New(fileservice.FixedPaths{Save: out})
			file, err := files.SaveDeckFileAs(ctx)
			if err != nil {
				return err
			}
			w, err := file.OpenWrite(ctx)
			if err != nil {
				return err
			}
			if _, err := w.Write(buf.Bytes()); err != nil {
				_ = w.Close()
				return errors.Wrapf(err, errors.CodeIO, "write %s", filepath.Base(out))
			}
			if err := w.Close(); err != nil {
				return errors.Wrapf(err, errors.CodeIO, "close %s", filepath.Base(out))
			}

			fmt.Fprintf(a.Out, "recovered %s saved %s to %s\n",
				snap.Path, snap.SavedAt.Local().Format(time.DateTime), file.Path())
			return nil
		},
	}
}
