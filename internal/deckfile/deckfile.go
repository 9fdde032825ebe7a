// Package deckfile reads and writes deck files.
//
// A deck is stored either as UTF-8 JSON text or as a compressed envelope
// around that same text. The JSON preserves shared tag references: each
// object carries a "$id" and repeated tag instances are written as
// {"$ref": "<id>"}, so a tag shared by several cards loads back as a single
// instance.
//
// Uncompressed:
//
//	{"$id":"1","Tags":[{"$id":"2","Id":"tag-…","Name":"Combat","Color":"#ff0000"}],
//	 "Cards":[{"$id":"3","Name":"Fireball","Description":"","Attributes":[{"Key":"Level","Value":"3"}],
//	           "Tags":[{"$ref":"2"}],"IsFavorite":false}]}
//
// Compressed (".scdeck"):
//
//	offset 0..7   00 'D' 'E' 'C' 'K' 'v' 01 00   magic, version 1, reserved 0
//	offset 8..15  int64 little-endian            uncompressed JSON length
//	offset 16..   raw deflate stream of the JSON
package deckfile

import (
	"bufio"
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
)

// Format selects the on-disk representation of a deck.
type Format int

const (
	// FormatJSON is plain UTF-8 JSON text.
	FormatJSON Format = iota
	// FormatCompressed is the DECKv1 envelope around deflated JSON.
	FormatCompressed
)

// File extensions for the two formats.
const (
	ExtJSON       = ".json"
	ExtCompressed = ".scdeck"
)

// String returns the configuration name of the format.
func (f Format) String() string {
	if f == FormatCompressed {
		return "scdeck"
	}
	return "json"
}

// Extension returns the conventional file extension for the format.
func (f Format) Extension() string {
	if f == FormatCompressed {
		return ExtCompressed
	}
	return ExtJSON
}

// ParseFormat parses "json" or "scdeck" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "scdeck":
		return FormatCompressed, nil
	default:
		return FormatJSON, errors.Validationf("unknown deck format %q", s)
	}
}

// FormatForPath picks the format from the file extension: ".scdeck" is
// compressed, anything else is JSON.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ExtCompressed) {
		return FormatCompressed
	}
	return FormatJSON
}

// FormatForPathOr is FormatForPath, except that a path with no extension
// uses fallback.
func FormatForPathOr(path string, fallback Format) Format {
	if filepath.Ext(path) == "" {
		return fallback
	}
	return FormatForPath(path)
}

// WriteOptions tunes Write.
type WriteOptions struct {
	// Pretty indents JSON output. The compressed format always embeds compact JSON.
	Pretty bool
}

// Write encodes d to w in format f.
func Write(w io.Writer, d *domain.Deck, f Format, opts WriteOptions) error {
	if f == FormatCompressed {
		return WriteCompressed(w, d)
	}
	if opts.Pretty {
		return writeJSON(w, d, true)
	}
	return WriteUncompressed(w, d)
}

// Read decodes a deck in either format. A leading zero byte selects the
// compressed envelope; JSON text never starts with one. A UTF-8 byte order
// mark before JSON text is skipped.
func Read(r io.Reader) (*domain.Deck, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(1)
	if err != nil {
		if err == io.EOF {
			return nil, errors.InvalidFormat("empty deck file")
		}
		return nil, errors.Wrap(err, errors.CodeIO, "read deck")
	}

	if head[0] == magic[0] {
		return ReadCompressed(br)
	}

	if bom, _ := br.Peek(3); bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return FromJSONReader(br)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
