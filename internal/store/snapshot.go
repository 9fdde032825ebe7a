package store

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/spellcardmanager/spellcards/internal/errors"
)

const (
	snapshotMetaPrefix = "snapshot:meta:"
	snapshotDataPrefix = "snapshot:data:"
)

// Snapshot is the last content saved to a deck file.
type Snapshot struct {
	Path    string    `json:"path"`
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`
	Data    []byte    `json:"-"`
}

// SaveSnapshot stores data as the latest saved content of path, replacing
// any earlier snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, path string, data []byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	path = normalizePath(path)
	meta := Snapshot{Path: path, SavedAt: time.Now(), Size: len(data)}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := set(txn, []byte(snapshotMetaPrefix+path), &meta); err != nil {
			return err
		}
		return txn.Set([]byte(snapshotDataPrefix+path), data)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "save deck snapshot")
	}

	s.logger.Debug("deck snapshot saved", "path", path, "bytes", len(data))
	return nil
}

// Snapshot returns the latest snapshot of path.
func (s *Store) Snapshot(ctx context.Context, path string) (*Snapshot, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	path = normalizePath(path)
	metaKey := buildKey(snapshotMetaPrefix, path)
	defer releaseKey(metaKey)
	dataKey := buildKey(snapshotDataPrefix, path)
	defer releaseKey(dataKey)

	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		if err := get(txn, metaKey, &snap); err != nil {
			return err
		}
		item, err := txn.Get(dataKey)
		if err != nil {
			return err
		}
		snap.Data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NotFoundf("no snapshot of %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "read deck snapshot")
	}
	return &snap, nil
}
