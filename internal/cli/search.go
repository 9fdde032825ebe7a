package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/spellcardmanager/spellcards/internal/di/providers"
	"github.com/spellcardmanager/spellcards/internal/search"
	"github.com/spellcardmanager/spellcards/internal/session"
)

func (a *App) searchCommand() *Command {
	var params search.Params
	return &Command{
		Name:    "search",
		Summary: "Ranked full-text search over names, descriptions, attributes and tags.",
		Usage:   "spelldeck search QUERY... [--tag NAME]... [--level N] [--favorites] [flags]",
		Flags: func() *pflag.FlagSet {
			params = search.DefaultParams()
			fs := pflag.NewFlagSet("search", pflag.ContinueOnError)
			fs.StringArrayVarP(&params.Tags, "tag", "t", nil, "Only spells carrying this tag (repeatable)")
			fs.StringVarP(&params.Level, "level", "l", "", "Only spells of this level")
			fs.BoolVar(&params.FavoritesOnly, "favorites", false, "Only favourites")
			fs.IntVarP(&params.Limit, "limit", "n", params.Limit, "Maximum number of results")
			fs.IntVar(&params.Offset, "offset", 0, "Number of results to skip")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			params.Query = strings.Join(args, " ")
			return a.readDeck(ctx, func(s *session.Session) error {
				index, err := do.Invoke[*providers.SearchIndexHandle](a.injector)
				if err != nil {
					return err
				}
				result, err := index.Search(ctx, params)
				if err != nil {
					return err
				}
				a.printResult(result)
				return nil
			})
		},
	}
}

func (a *App) printResult(result *search.Result) {
	for _, hit := range result.Hits {
		line := fmt.Sprintf("%s %s  %s", a.styles.star(hit.Favorite), a.styles.name.Render(hit.Name),
			a.styles.faint.Render(fmt.Sprintf("level %s  score %.2f", hit.Level, hit.Score)))
		fmt.Fprintln(a.Out, line)

		fields := make([]string, 0, len(hit.Highlights))
		for field := range hit.Highlights {
			fields = append(fields, field)
		}
		slices.Sort(fields)
		for _, field := range fields {
			fmt.Fprintf(a.Out, "    %s: %s\n", field, a.styles.highlight(hit.Highlights[field]))
		}
	}
	fmt.Fprintln(a.Out, a.styles.faint.Render(fmt.Sprintf("%d matches in %dms", result.Total, result.TookMs)))
}
