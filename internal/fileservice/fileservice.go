// Package fileservice supplies deck files from the local file system.
package fileservice

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// PathChooser stands in for the open and save-as dialogs. Returning "" means
// the user backed out.
type PathChooser interface {
	ChooseOpen(ctx context.Context) (string, error)
	ChooseSave(ctx context.Context) (string, error)
}

// FixedPaths is a PathChooser that always answers with the same paths.
// An empty field behaves like a cancelled dialog.
type FixedPaths struct {
	Open string
	Save string
}

// ChooseOpen returns p.Open.
func (p FixedPaths) ChooseOpen(context.Context) (string, error) { return p.Open, nil }

// ChooseSave returns p.Save.
func (p FixedPaths) ChooseSave(context.Context) (string, error) { return p.Save, nil }

// Service implements session.FileService on the OS file system.
type Service struct {
	chooser PathChooser
}

var _ session.FileService = (*Service)(nil)

// New creates a Service. A nil chooser cancels every dialog.
func New(chooser PathChooser) *Service {
	if chooser == nil {
		chooser = FixedPaths{}
	}
	return &Service{chooser: chooser}
}

// OpenDeckFile asks the chooser for an existing deck file.
func (s *Service) OpenDeckFile(ctx context.Context) (session.File, error) {
	path, err := s.chooser.ChooseOpen(ctx)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.Cancelled("open cancelled")
	}
	return s.TryGetFile(ctx, path)
}

// SaveDeckFileAs asks the chooser for a destination. The file need not exist,
// but its directory must.
func (s *Service) SaveDeckFileAs(ctx context.Context) (session.File, error) {
	path, err := s.chooser.ChooseSave(ctx)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.Cancelled("save cancelled")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "resolve %s", path)
	}
	info, err := os.Stat(filepath.Dir(abs))
	if err != nil || !info.IsDir() {
		return nil, errors.NotFoundf("directory %s does not exist", filepath.Dir(abs))
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, errors.Validationf("%s is a directory", abs)
	}
	return &File{path: abs}, nil
}

// TryGetFile resolves path to an existing regular file.
func (s *Service) TryGetFile(ctx context.Context, path string) (session.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "resolve file")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "resolve %s", path)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, errors.NotFoundf("%s does not exist", path)
	case err != nil:
		return nil, errors.Wrapf(err, errors.CodeIO, "stat %s", path)
	case info.IsDir():
		return nil, errors.NotFoundf("%s is a directory", path)
	}
	return &File{path: abs}, nil
}

// File is a deck file on disk.
type File struct {
	path string
}

// NewFile returns a File for path without checking that it exists.
func NewFile(path string) *File {
	return &File{path: path}
}

// Name returns the base name.
func (f *File) Name() string { return filepath.Base(f.path) }

// Path returns the full path.
func (f *File) Path() string { return f.path }

// OpenRead opens the file for reading.
func (f *File) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "open file")
	}
	rf, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NotFoundf("%s does not exist", f.path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "open %s", f.Name())
	}
	return rf, nil
}

// OpenWrite returns a writer that replaces the file when closed. Data goes
// to a temporary file next to it first, so a failed write leaves the
// original intact.
func (f *File) OpenWrite(ctx context.Context) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "open file")
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+f.Name()+".*.tmp")
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "create %s", f.Name())
	}
	return &atomicWriter{tmp: tmp, dest: f.path}, nil
}

type atomicWriter struct {
	tmp    *os.File
	dest   string
	failed bool
	closed bool
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	n, err := w.tmp.Write(p)
	if err != nil {
		w.failed = true
	}
	return n, err
}

func (w *atomicWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer os.Remove(w.tmp.Name()) // no-op after a successful rename

	if err := w.tmp.Sync(); err != nil {
		w.tmp.Close()
		return err
	}
	if err := w.tmp.Close(); err != nil {
		return err
	}
	if w.failed {
		return errors.IO("write failed, original kept")
	}
	return os.Rename(w.tmp.Name(), w.dest)
}
