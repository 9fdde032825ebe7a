package store

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/spellcardmanager/spellcards/internal/errors"
)

const recentPrefix = "recent:"

// RecentDeck is an entry of the recently opened list.
type RecentDeck struct {
	Path      string    `json:"path"`
	OpenedAt  time.Time `json:"opened_at"`
	OpenCount int       `json:"open_count"`
}

// RecordOpened moves path to the top of the recent list.
func (s *Store) RecordOpened(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	path = normalizePath(path)
	key := []byte(recentPrefix + path)

	err := s.db.Update(func(txn *badger.Txn) error {
		var entry RecentDeck
		if err := get(txn, key, &entry); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry.Path = path
		entry.OpenedAt = time.Now()
		entry.OpenCount++
		return set(txn, key, &entry)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "record recent deck")
	}
	return nil
}

// Recent returns up to limit entries, most recently opened first. A limit
// of zero or less returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]RecentDeck, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	var entries []RecentDeck
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recentPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry RecentDeck
			if err := get(txn, it.Item().KeyCopy(nil), &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "list recent decks")
	}

	slices.SortFunc(entries, func(a, b RecentDeck) int {
		if c := b.OpenedAt.Compare(a.OpenedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Forget removes path from the recent list and drops its snapshot.
func (s *Store) Forget(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	path = normalizePath(path)

	err := s.db.Update(func(txn *badger.Txn) error {
		// Pending writes keep their key slices until commit, so these are
		// not pooled.
		for _, prefix := range []string{recentPrefix, snapshotMetaPrefix, snapshotDataPrefix} {
			if err := txn.Delete([]byte(prefix + path)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "forget deck")
	}
	s.logger.Info("forgot deck", "path", path)
	return nil
}
