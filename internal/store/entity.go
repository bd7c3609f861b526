package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for any domain type.
// Every operation has a txn-scoped form so callers can compose several
// entities into one transaction.
type Entity[T any] struct {
	store   *Store
	prefix  string
	idOf    func(*T) string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
// Unique indexes reject a second entity with the same key.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string
	unique          bool
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string, idOf func(*T) string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		idOf:    idOf,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a non-unique secondary index. keyGen values must be unique
// per entity (typically "<group>:<sortkey>:<id>") so they can be prefix-scanned.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

// WithUniqueIndex adds a unique secondary index with lookup transformation,
// enabling case-insensitive lookups.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
		unique:          true,
	})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// getTxn reads an entity inside txn.
func (e *Entity[T]) getTxn(txn *badger.Txn, id string) (*T, error) {
	var entity T
	if err := getJSON(txn, e.key(id), &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// putTxn writes entity inside txn, replacing old's index keys.
// old is nil for creates.
func (e *Entity[T]) putTxn(txn *badger.Txn, entity, old *T) error {
	id := e.idOf(entity)

	oldKeys := make(map[string]struct{})
	if old != nil {
		for _, idx := range e.indexes {
			for _, v := range idx.keyGen(old) {
				k := e.indexKey(idx.name, v)
				oldKeys[string(k)] = struct{}{}
				if err := txn.Delete(k); err != nil {
					return fmt.Errorf("failed to delete old index key: %w", err)
				}
			}
		}
	}

	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			k := e.indexKey(idx.name, v)
			if _, reused := oldKeys[string(k)]; idx.unique && !reused {
				_, err := txn.Get(k)
				if err == nil {
					return fmt.Errorf("index %s conflict on key %s: %w", idx.name, v, ErrAlreadyExists)
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("failed to check index key: %w", err)
				}
			}
			if err := txn.Set(k, []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	return setJSON(txn, e.key(id), entity)
}

// createTxn inserts entity inside txn. Returns ErrAlreadyExists on an ID
// or unique index collision.
func (e *Entity[T]) createTxn(txn *badger.Txn, entity *T) error {
	_, err := txn.Get(e.key(e.idOf(entity)))
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to check existing key: %w", err)
	}
	return e.putTxn(txn, entity, nil)
}

// deleteTxn removes an entity and its index keys inside txn.
func (e *Entity[T]) deleteTxn(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Delete(e.indexKey(idx.name, v)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	if err := txn.Delete(e.key(e.idOf(entity))); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// scanIndexTxn returns the IDs stored under index name whose values start
// with valuePrefix, in key order.
func (e *Entity[T]) scanIndexTxn(txn *badger.Txn, name, valuePrefix string) ([]string, error) {
	prefix := e.indexKey(name, valuePrefix)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Create creates a new entity.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, entity *T) error {
	return e.store.update(ctx, func(txn *badger.Txn) error {
		return e.createTxn(txn, entity)
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	var entity *T
	err := e.store.view(ctx, func(txn *badger.Txn) error {
		var err error
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetMany retrieves entities by ID in the given order, skipping missing ones.
func (e *Entity[T]) GetMany(ctx context.Context, ids []string) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	err := e.store.view(ctx, func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			entity, err := e.getTxn(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIndex retrieves an entity by unique secondary index.
// If the index has a lookup transform, it is applied to value first.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var entity *T
	err := e.store.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entity, err = e.getTxn(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// Mutate applies fn to the stored entity and writes the result in the same
// transaction. Concurrent mutations of one entity never lose updates: the
// loser of a conflict re-reads and re-applies fn. An error from fn aborts
// without writing.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var result *T
	err := e.store.update(ctx, func(txn *badger.Txn) error {
		current, err := e.getTxn(txn, id)
		if err != nil {
			return err
		}
		old := *current
		if err := fn(current); err != nil {
			return err
		}
		if err := e.putTxn(txn, current, &old); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	return e.store.update(ctx, func(txn *badger.Txn) error {
		entity, err := e.getTxn(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return e.deleteTxn(txn, entity)
	})
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys
				key := string(it.Item().Key())
				if strings.HasPrefix(key[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}
