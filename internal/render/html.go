// Package render turns card descriptions written in Markdown into HTML or
// styled terminal text. Both renderers understand pipe tables,
// strikethrough, task lists and definition lists. Raw HTML in a
// description is never passed through.
package render

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// The goldmark instance is safe to share; parsing creates per-call state.
var (
	markdownOnce     sync.Once
	markdownInstance goldmark.Markdown
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.DefinitionList,
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		)
	})
	return markdownInstance
}

// HTML renders descriptions as HTML fragments.
type HTML struct{}

var _ session.Renderer = HTML{}

// NewHTML returns an HTML renderer.
func NewHTML() HTML { return HTML{} }

// Render converts markdown to an HTML fragment. Raw HTML blocks and inline
// tags are replaced with an "omitted" comment.
func (HTML) Render(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(source), &buf); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "render markdown")
	}
	return buf.String(), nil
}
