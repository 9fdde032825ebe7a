package deckfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/spellcardmanager/spellcards/internal/domain"
	"github.com/spellcardmanager/spellcards/internal/errors"
)

// magic is the 8-byte envelope prefix: a zero byte, "DECKv", version 1 and
// a reserved zero byte.
var magic = [8]byte{0x00, 'D', 'E', 'C', 'K', 'v', 0x01, 0x00}

const (
	headerSize      = 16
	envelopeVersion = 0x01
)

// WriteCompressed writes d to w as the DECKv1 envelope: magic, the length
// of the compact JSON as int64 little-endian, then the JSON as raw deflate.
func WriteCompressed(w io.Writer, d *domain.Deck) error {
	payload, err := ToJSON(d)
	if err != nil {
		return err
	}

	var header [headerSize]byte
	copy(header[:], magic[:])
	binary.LittleEndian.PutUint64(header[8:], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write deck header")
	}

	fw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create deflate writer")
	}
	if _, err := fw.Write(payload); err != nil {
		return errors.Wrap(err, errors.CodeIO, "write deck payload")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "flush deck payload")
	}
	return nil
}

// ReadCompressed reads a DECKv1 envelope and decodes the embedded JSON.
func ReadCompressed(r io.Reader) (*domain.Deck, error) {
	payload, err := ReadCompressedJSON(r)
	if err != nil {
		return nil, err
	}
	return FromJSON(payload)
}

// ReadCompressedJSON validates a DECKv1 envelope and returns the inflated
// JSON text. The header must match exactly and the inflated payload must be
// exactly as long as the header says.
func ReadCompressedJSON(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.InvalidFormat("truncated deck header")
		}
		return nil, errors.Wrap(err, errors.CodeIO, "read deck header")
	}

	if !bytes.Equal(header[:6], magic[:6]) {
		return nil, errors.InvalidFormat("not a compressed deck")
	}
	if header[6] != envelopeVersion {
		return nil, errors.InvalidFormatf("unsupported deck version %d", header[6])
	}
	if header[7] != 0 {
		return nil, errors.InvalidFormatf("reserved header byte is %d, want 0", header[7])
	}

	length := int64(binary.LittleEndian.Uint64(header[8:]))
	if length < 0 {
		return nil, errors.InvalidFormatf("invalid payload length %d", length)
	}

	fr := flate.NewReader(r)
	defer fr.Close()

	payload, err := io.ReadAll(io.LimitReader(fr, length+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "inflate deck payload")
	}
	if int64(len(payload)) != length {
		return nil, errors.InvalidFormatf("payload is %d bytes, header says %d", len(payload), length)
	}
	return payload, nil
}
