package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const idempotencyPrefix = "idem:"

// DefaultIdempotencyTTL is how long a client idempotency key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// Idempotency scopes a client-supplied key to one caller and one kind of
// create. A zero Key disables the check.
type Idempotency struct {
	Scope    string
	CallerID string
	Key      string
	TTL      time.Duration
}

func (i Idempotency) storageKey() []byte {
	return []byte(idempotencyPrefix + i.Scope + ":" + i.CallerID + ":" + i.Key)
}

// checkIdempotency returns *ReplayError when the key was already used.
func checkIdempotency(txn *badger.Txn, i Idempotency) error {
	if i.Key == "" {
		return nil
	}
	item, err := txn.Get(i.storageKey())
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check idempotency key: %w", err)
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	return &ReplayError{ID: string(id)}
}

// recordIdempotency remembers which entity the key produced.
func recordIdempotency(txn *badger.Txn, i Idempotency, entityID string) error {
	if i.Key == "" {
		return nil
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return txn.SetEntry(badger.NewEntry(i.storageKey(), []byte(entityID)).WithTTL(ttl))
}
