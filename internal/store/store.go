// Package store keeps local application state in a Badger database: the
// list of recently opened decks and the bytes last saved to each, which
// lets a deck be recovered after its file was damaged or deleted.
package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/spellcardmanager/spellcards/internal/errors"
	"github.com/spellcardmanager/spellcards/internal/logger"
	"github.com/spellcardmanager/spellcards/internal/session"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ session.History = (*Store)(nil)

// New opens (or creates) the database in the directory at path.
func New(path string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Snapshots are recovery data; sync them
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	return open(opts, log)
}

// NewInMemory opens a database that lives only as long as the Store.
func NewInMemory(log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, log)
}

func open(opts badger.Options, log *slog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to open badger db")
	}

	s := &Store{db: db, logger: logger.OrDiscard(log)}
	s.logger.Info("state database opened", "path", opts.Dir, "in_memory", opts.InMemory)
	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Debug("closing state database")
	return s.db.Close()
}

// Helper methods for database operations.

// get decodes the JSON value at key into dest. A missing key is
// badger.ErrKeyNotFound.
func get(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// set stores value as JSON at key.
func set(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// normalizePath makes equivalent spellings of a deck path share one key.
func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeCancelled, "state database")
	}
	return nil
}
