package render

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/spellcardmanager/spellcards/internal/session"
)

// Terminal renders descriptions as styled text for a terminal.
type Terminal struct {
	profile termenv.Profile
}

var _ session.Renderer = Terminal{}

// NewTerminal returns a terminal renderer for the given colour profile.
// termenv.Ascii produces plain text.
func NewTerminal(profile termenv.Profile) Terminal {
	return Terminal{profile: profile}
}

// Render converts markdown to styled terminal text.
func (t Terminal) Render(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	src := []byte(source)
	doc := markdown().Parser().Parse(text.NewReader(src))

	lr := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(t.profile))
	lr.SetColorProfile(t.profile)

	w := &terminalWriter{source: src, lip: lr}
	if err := ast.Walk(doc, w.walk); err != nil {
		return "", err
	}
	return strings.TrimRight(w.out.String(), "\n"), nil
}

type listState struct {
	ordered bool
	next    int
	tight   bool
}

type terminalWriter struct {
	source []byte
	lip    *lipgloss.Renderer

	out    strings.Builder
	inline strings.Builder

	prefixes      []string
	pendingBullet string
	lists         []listState

	bold, italic, strike, code int
}

func (w *terminalWriter) style() lipgloss.Style {
	s := w.lip.NewStyle()
	if w.bold > 0 {
		s = s.Bold(true)
	}
	if w.italic > 0 {
		s = s.Italic(true)
	}
	if w.strike > 0 {
		s = s.Strikethrough(true)
	}
	if w.code > 0 {
		s = s.Faint(true)
	}
	return s
}

func (w *terminalWriter) writeInline(s string) {
	if s != "" {
		w.inline.WriteString(w.style().Render(s))
	}
}

func (w *terminalWriter) prefix() string {
	return strings.Join(w.prefixes, "")
}

func (w *terminalWriter) ensureNewline() {
	s := w.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		w.out.WriteString("\n")
	}
}

func (w *terminalWriter) ensureBlankLine() {
	w.ensureNewline()
	s := w.out.String()
	if s != "" && !strings.HasSuffix(s, "\n\n") {
		w.out.WriteString("\n")
	}
}

func (w *terminalWriter) inTightList() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

// writeLines emits content with the line prefix, using the pending list
// bullet for the first line.
func (w *terminalWriter) writeLines(content string) {
	prefix := w.prefix()
	for i, line := range strings.Split(content, "\n") {
		if i == 0 && w.pendingBullet != "" {
			w.out.WriteString(w.pendingBullet)
			w.pendingBullet = ""
		} else {
			w.out.WriteString(prefix)
		}
		w.out.WriteString(line)
		w.out.WriteString("\n")
	}
}

func (w *terminalWriter) flushBlock() {
	content := strings.TrimRight(w.inline.String(), " \n")
	w.inline.Reset()
	if content == "" {
		return
	}
	w.writeLines(content)
	if !w.inTightList() {
		w.ensureBlankLine()
	}
}

// inlineOf renders node's children without disturbing the block in progress.
func (w *terminalWriter) inlineOf(node ast.Node) string {
	saved := w.inline.String()
	w.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		_ = ast.Walk(child, w.walk)
	}
	result := w.inline.String()
	w.inline.Reset()
	w.inline.WriteString(saved)
	return result
}

func (w *terminalWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			w.inline.Reset()
		} else {
			w.flushBlock()
		}

	case ast.KindHeading:
		if entering {
			w.inline.Reset()
			w.bold++
		} else {
			w.bold--
			w.ensureBlankLine()
			w.flushBlock()
			w.ensureBlankLine()
		}

	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			w.codeBlock(node)
		}
		return ast.WalkSkipChildren, nil

	case ast.KindBlockquote:
		if entering {
			w.prefixes = append(w.prefixes, "│ ")
		} else {
			w.prefixes = w.prefixes[:len(w.prefixes)-1]
			w.ensureBlankLine()
		}

	case ast.KindList:
		list := node.(*ast.List)
		if entering {
			w.lists = append(w.lists, listState{ordered: list.IsOrdered(), next: list.Start, tight: list.IsTight})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if !w.inTightList() {
				w.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			w.enterListItem()
		} else {
			w.prefixes = w.prefixes[:len(w.prefixes)-1]
		}

	case ast.KindThematicBreak:
		if entering {
			w.ensureBlankLine()
			w.writeLines(strings.Repeat("─", 20))
			w.ensureBlankLine()
		}

	case ast.KindHTMLBlock, ast.KindRawHTML:
		return ast.WalkSkipChildren, nil

	case ast.KindText:
		if entering {
			t := node.(*ast.Text)
			w.writeInline(string(t.Segment.Value(w.source)))
			switch {
			case t.HardLineBreak():
				w.inline.WriteString("\n")
			case t.SoftLineBreak():
				w.inline.WriteString(" ")
			}
		}

	case ast.KindString:
		if entering {
			w.writeInline(string(node.(*ast.String).Value))
		}

	case ast.KindEmphasis:
		counter := &w.italic
		if node.(*ast.Emphasis).Level >= 2 {
			counter = &w.bold
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case ast.KindCodeSpan:
		if entering {
			w.code++
		} else {
			w.code--
		}

	case ast.KindLink:
		if !entering {
			link := node.(*ast.Link)
			w.code++
			w.writeInline(" <" + string(link.Destination) + ">")
			w.code--
		}

	case ast.KindAutoLink:
		if entering {
			w.writeInline(string(node.(*ast.AutoLink).URL(w.source)))
		}

	case extast.KindStrikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				w.inline.WriteString("[x] ")
			} else {
				w.inline.WriteString("[ ] ")
			}
		}

	case extast.KindTable:
		if entering {
			w.table(node)
		}
		return ast.WalkSkipChildren, nil

	case extast.KindDefinitionTerm:
		if entering {
			w.inline.Reset()
			w.bold++
		} else {
			w.bold--
			content := w.inline.String()
			w.inline.Reset()
			if content != "" {
				w.writeLines(content)
			}
		}

	case extast.KindDefinitionDescription:
		if entering {
			w.prefixes = append(w.prefixes, "  ")
		} else {
			w.prefixes = w.prefixes[:len(w.prefixes)-1]
		}
	}

	return ast.WalkContinue, nil
}

func (w *terminalWriter) enterListItem() {
	top := &w.lists[len(w.lists)-1]
	bullet := "• "
	if top.ordered {
		bullet = strconv.Itoa(top.next) + ". "
		top.next++
	}
	w.ensureNewline()
	w.pendingBullet = w.prefix() + bullet
	w.prefixes = append(w.prefixes, strings.Repeat(" ", utf8.RuneCountInString(bullet)))
}

func (w *terminalWriter) codeBlock(node ast.Node) {
	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(w.source))
	}

	faint := w.lip.NewStyle().Faint(true)
	w.ensureBlankLine()
	for _, line := range strings.Split(strings.TrimRight(code.String(), "\n"), "\n") {
		w.writeLines("  " + faint.Render(line))
	}
	w.ensureBlankLine()
}

func (w *terminalWriter) table(node ast.Node) {
	var rows [][]string
	header := -1
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		if row.Kind() == extast.KindTableHeader {
			header = len(rows)
		}
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(w.inlineOf(cell)))
		}
		rows = append(rows, cells)
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	w.ensureBlankLine()
	for r, row := range rows {
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		w.writeLines(strings.TrimRight(strings.Join(parts, " │ "), " "))
		if r == header {
			seps := make([]string, len(widths))
			for i, width := range widths {
				seps[i] = strings.Repeat("─", width)
			}
			w.writeLines(strings.Join(seps, "─┼─"))
		}
	}
	w.ensureBlankLine()
}
