package cli

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/spellcardmanager/spellcards/internal/color"
	"github.com/spellcardmanager/spellcards/internal/domain"
)

// styles renders command output. Without colour, tag chips fall back to
// brackets so they stay readable.
type styles struct {
	renderer *lipgloss.Renderer
	noColor  bool

	heading  lipgloss.Style
	name     lipgloss.Style
	faint    lipgloss.Style
	favorite lipgloss.Style
	mark     lipgloss.Style
}

func newStyles(w io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		renderer: r,
		noColor:  noColor,
		heading:  r.NewStyle().Bold(true).Underline(true),
		name:     r.NewStyle().Bold(true),
		faint:    r.NewStyle().Faint(true),
		favorite: r.NewStyle().Foreground(lipgloss.Color("#f5c518")),
		mark:     r.NewStyle().Bold(true).Reverse(true),
	}
}

// chip renders a tag in its own colour.
func (s styles) chip(t *domain.Tag) string {
	if s.noColor {
		return "[" + t.Name() + "]"
	}
	bg := t.Color()
	return s.renderer.NewStyle().
		Background(lipgloss.Color(rgbHex(bg))).
		Foreground(lipgloss.Color(rgbHex(bg.TextOnColor()))).
		Padding(0, 1).
		Render(t.Name())
}

func (s styles) chips(tags []*domain.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = s.chip(t)
	}
	return strings.Join(parts, " ")
}

// star marks favourites.
func (s styles) star(favorite bool) string {
	if !favorite {
		return " "
	}
	if s.noColor {
		return "*"
	}
	return s.favorite.Render("★")
}

// highlight turns a Bleve fragment's <mark> spans into styled text.
func (s styles) highlight(fragment string) string {
	var b strings.Builder
	for {
		start := strings.Index(fragment, "<mark>")
		if start < 0 {
			break
		}
		end := strings.Index(fragment[start:], "</mark>")
		if end < 0 {
			break
		}
		end += start
		b.WriteString(html.UnescapeString(fragment[:start]))
		marked := html.UnescapeString(fragment[start+len("<mark>") : end])
		if s.noColor {
			b.WriteString("*" + marked + "*")
		} else {
			b.WriteString(s.mark.Render(marked))
		}
		fragment = fragment[end+len("</mark>"):]
	}
	b.WriteString(html.UnescapeString(fragment))
	return b.String()
}

// rgbHex drops the alpha channel, which terminals cannot show.
func rgbHex(c color.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
