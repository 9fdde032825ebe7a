package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spellcardmanager/spellcards/internal/session"
)

// linePrompter asks questions on the terminal and reads one-line answers.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

var _ session.Prompter = (*linePrompter)(nil)

func newLinePrompter(in *bufio.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: in, out: out}
}

func (p *linePrompter) Message(ctx context.Context, title, text string, buttons session.Buttons) (session.Answer, error) {
	return p.ask(ctx, "", title, text, buttons)
}

func (p *linePrompter) Warning(ctx context.Context, title, text string, buttons session.Buttons) (session.Answer, error) {
	return p.ask(ctx, "warning: ", title, text, buttons)
}

func (p *linePrompter) Error(ctx context.Context, title, text string, buttons session.Buttons) (session.Answer, error) {
	return p.ask(ctx, "error: ", title, text, buttons)
}

// ask prints the question and reads an answer. End of input and an empty
// line pick the safe choice: cancel when offered, otherwise no.
func (p *linePrompter) ask(ctx context.Context, prefix, title, text string, buttons session.Buttons) (session.Answer, error) {
	if err := ctx.Err(); err != nil {
		return session.AnswerNone, err
	}

	fmt.Fprintf(p.out, "%s%s: %s", prefix, title, text)
	switch buttons {
	case session.ButtonsOK:
		fmt.Fprintln(p.out)
		return session.AnswerOK, nil
	case session.ButtonsYesNo:
		fmt.Fprint(p.out, " [y/N] ")
	default:
		fmt.Fprint(p.out, " [y/n/C] ")
	}

	fallback := session.AnswerNo
	if buttons == session.ButtonsYesNoCancel {
		fallback = session.AnswerCancel
	}

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return fallback, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return session.AnswerYes, nil
	case "n", "no":
		return session.AnswerNo, nil
	default:
		return fallback, nil
	}
}
