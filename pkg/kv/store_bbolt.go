package kv

import (
	"context"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// BoltStore is using bbolt (previously known as BoltDB),
// every namespace is a separate bucket
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore initializing bbolt store
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &BoltStore{db: db}, nil
}

// OpenBoltStore opens (or creates) a bbolt database file
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bbolt database %s", path)
	}

	return NewBoltStore(db)
}

type boltTx struct {
	tx *bbolt.Tx
}

func (t boltTx) Get(ns string, key []byte) ([]byte, error) {
	if err := validate(ns, key); err != nil {
		return nil, err
	}

	b := t.tx.Bucket([]byte(ns))
	if b == nil {
		return nil, nil
	}

	// bbolt values are only valid for the life of the transaction
	return copyBytes(b.Get(key)), nil
}

func (t boltTx) Put(ns string, key, value []byte) error {
	if err := validatePut(ns, key, value); err != nil {
		return err
	}

	b, err := t.tx.CreateBucketIfNotExists([]byte(ns))
	if err != nil {
		return errors.Wrapf(err, "failed to create bucket %s", ns)
	}

	if err = b.Put(key, value); err != nil {
		return errors.Wrapf(err, "failed to put key into bucket %s", ns)
	}

	return nil
}

func (t boltTx) Delete(ns string, key []byte) error {
	if err := validate(ns, key); err != nil {
		return err
	}

	b := t.tx.Bucket([]byte(ns))
	if b == nil {
		return nil
	}

	if err := b.Delete(key); err != nil {
		return errors.Wrapf(err, "failed to delete key from bucket %s", ns)
	}

	return nil
}

// View runs a read-only bbolt transaction
func (s *BoltStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx})
	})
}

// Update runs a read-write bbolt transaction, bbolt rolls back
// automatically whenever fn returns an error
func (s *BoltStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx})
	})
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
