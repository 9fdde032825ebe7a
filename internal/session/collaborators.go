package session

import (
	"context"
	"io"
)

// Buttons selects the answers a prompt offers.
type Buttons int

const (
	ButtonsOK Buttons = iota
	ButtonsYesNo
	ButtonsYesNoCancel
)

// Answer is the user's reply to a prompt. AnswerNone means the prompt was
// dismissed without choosing.
type Answer int

const (
	AnswerNone Answer = iota
	AnswerOK
	AnswerYes
	AnswerNo
	AnswerCancel
)

// String returns the string representation of the answer.
func (a Answer) String() string {
	switch a {
	case AnswerOK:
		return "ok"
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	case AnswerCancel:
		return "cancel"
	default:
		return "none"
	}
}

// Prompter asks the user a question. The three variants differ only in
// presentation.
type Prompter interface {
	Message(ctx context.Context, title, text string, buttons Buttons) (Answer, error)
	Warning(ctx context.Context, title, text string, buttons Buttons) (Answer, error)
	Error(ctx context.Context, title, text string, buttons Buttons) (Answer, error)
}

// File is a handle to a deck file chosen by the user or resolved from a path.
type File interface {
	// Name is the base name, used to pick the format.
	Name() string
	// Path is the full path, remembered as the session's current file.
	Path() string
	OpenRead(ctx context.Context) (io.ReadCloser, error)
	// OpenWrite truncates or creates the file.
	OpenWrite(ctx context.Context) (io.WriteCloser, error)
}

// FileService supplies deck files. Dialog methods return an error with code
// CANCELLED when the user backs out.
type FileService interface {
	OpenDeckFile(ctx context.Context) (File, error)
	SaveDeckFileAs(ctx context.Context) (File, error)
	// TryGetFile resolves a known path. Missing paths and directories are NOT_FOUND.
	TryGetFile(ctx context.Context, path string) (File, error)
}

// Renderer turns a Markdown description into its display form.
type Renderer interface {
	Render(markdown string) (string, error)
}

// History remembers opened decks and the bytes last saved to each.
type History interface {
	RecordOpened(ctx context.Context, path string) error
	SaveSnapshot(ctx context.Context, path string, data []byte) error
}

// Watcher observes the current deck file for changes made by other programs.
type Watcher interface {
	Watch(path string) error
	Unwatch() error
}
