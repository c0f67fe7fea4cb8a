package kv

import (
	"context"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

// BadgerStore is using badger, namespaces are length-prefixed
// into flat keys
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore initializing badger store
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &BadgerStore{db: db}, nil
}

// OpenBadgerStore opens (or creates) a badger database within a directory
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger database %s", dir)
	}

	return NewBadgerStore(db)
}

type badgerTx struct {
	txn *badger.Txn
}

func (t badgerTx) Get(ns string, key []byte) ([]byte, error) {
	if err := validate(ns, key); err != nil {
		return nil, err
	}

	item, err := t.txn.Get(PrefixedKey(ns, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to get badger item")
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to copy badger value")
	}

	return value, nil
}

func (t badgerTx) Put(ns string, key, value []byte) error {
	if err := validatePut(ns, key, value); err != nil {
		return err
	}

	if err := t.txn.Set(PrefixedKey(ns, key), copyBytes(value)); err != nil {
		return errors.Wrap(err, "failed to set badger item")
	}

	return nil
}

func (t badgerTx) Delete(ns string, key []byte) error {
	if err := validate(ns, key); err != nil {
		return err
	}

	if err := t.txn.Delete(PrefixedKey(ns, key)); err != nil {
		return errors.Wrap(err, "failed to delete badger item")
	}

	return nil
}

// View runs a read-only badger transaction
func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		return fn(badgerTx{txn})
	})
}

// Update runs a read-write badger transaction, committed only if fn succeeds;
// transactions are optimistic, so fn is re-run after a conflicting commit
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(badgerTx{txn})
		})

		if err != badger.ErrConflict {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return ErrConflict
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
