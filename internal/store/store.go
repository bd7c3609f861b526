package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// maxTxnAttempts bounds retries of a transaction that lost an optimistic
// concurrency race.
const maxTxnAttempts = 25

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Topics   *Entity[domain.Topic]
	Replies  *Entity[domain.Reply]
	Profiles *Entity[domain.Profile]
}

// Options configures how the database is opened.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// New opens the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	return Open(Options{Path: path, Logger: logger})
}

// Open opens a store with the given options.
func Open(o Options) (*Store, error) {
	opts := badger.DefaultOptions(o.Path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = !o.InMemory
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: o.Logger,
	}
	s.initTopics()
	s.initReplies()
	s.initProfiles()

	if o.Logger != nil {
		o.Logger.Info("Badger database opened successfully", "path", o.Path, "in_memory", o.InMemory)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping verifies the database answers a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	return s.view(ctx, func(*badger.Txn) error { return nil })
}

// RunGC runs one round of value log garbage collection.
// badger.ErrNoRewrite means there was nothing to reclaim.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// update runs fn in a read-write transaction, retrying when Badger reports
// a conflict with a concurrent transaction. fn must be safe to re-run.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= maxTxnAttempts {
			return fmt.Errorf("transaction retries exhausted: %w", err)
		}

		// Jittered backoff spreads competing writers apart
		delay := 500*time.Microsecond + rand.N(time.Duration(attempt)*2*time.Millisecond)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// view runs fn in a read-only transaction after checking ctx.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// getJSON reads key inside txn into dest. Missing keys return ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get key: %w", err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON marshals value and writes it at key inside txn.
func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// scanKeys returns every key under prefix. Values are not fetched.
func scanKeys(ctx context.Context, txn *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}
