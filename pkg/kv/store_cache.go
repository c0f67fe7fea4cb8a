package kv

import (
	"context"
	"sync"

	"github.com/allegro/bigcache"
)

// CachedStore is a read-through cache in front of another store;
// it's only valid as long as nothing but this store writes
// into the cached namespaces
type CachedStore struct {
	backend Store
	cache   *bigcache.BigCache
	sync.RWMutex
}

// NewCachedStore wraps a given store with a bigcache instance
func NewCachedStore(backend Store, cache *bigcache.BigCache) (*CachedStore, error) {
	if backend == nil || cache == nil {
		return nil, ErrNilDB
	}

	return &CachedStore{
		backend: backend,
		cache:   cache,
	}, nil
}

type cachedViewTx struct {
	store *CachedStore
	tx    Tx
}

func (t cachedViewTx) Get(ns string, key []byte) ([]byte, error) {
	if err := validate(ns, key); err != nil {
		return nil, err
	}

	ck := string(PrefixedKey(ns, key))

	// any cache error is treated as a miss
	if v, err := t.store.cache.Get(ck); err == nil {
		return copyBytes(v), nil
	}

	v, err := t.tx.Get(ns, key)
	if err != nil {
		return nil, err
	}

	if v != nil {
		_ = t.store.cache.Set(ck, copyBytes(v))
	}

	return v, nil
}

func (t cachedViewTx) Put(ns string, key, value []byte) error {
	return ErrReadOnly
}

func (t cachedViewTx) Delete(ns string, key []byte) error {
	return ErrReadOnly
}

// cachedUpdateTx reads straight from the backend transaction
// and records what has been written
type cachedUpdateTx struct {
	tx      Tx
	written *changeset
}

func (t cachedUpdateTx) Get(ns string, key []byte) ([]byte, error) {
	return t.tx.Get(ns, key)
}

func (t cachedUpdateTx) Put(ns string, key, value []byte) error {
	if err := t.tx.Put(ns, key, value); err != nil {
		return err
	}

	t.written.put(ns, key, value)

	return nil
}

func (t cachedUpdateTx) Delete(ns string, key []byte) error {
	if err := t.tx.Delete(ns, key); err != nil {
		return err
	}

	t.written.delete(ns, key)

	return nil
}

// View serves reads from cache whenever possible
func (s *CachedStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.RLock()
	defer s.RUnlock()

	return s.backend.View(ctx, func(tx Tx) error {
		return fn(cachedViewTx{store: s, tx: tx})
	})
}

// Update writes through to the backend and refreshes cached entries
// only after a successful commit
func (s *CachedStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.Lock()
	defer s.Unlock()

	var written *changeset

	err := s.backend.Update(ctx, func(tx Tx) error {
		// only the last attempt counts if the backend re-runs fn
		written = newChangeset()
		return fn(cachedUpdateTx{tx: tx, written: written})
	})

	if err != nil || written == nil {
		return err
	}

	for _, c := range written.changes() {
		ck := string(PrefixedKey(c.ns, c.key))

		if c.value == nil {
			_ = s.cache.Delete(ck)
			continue
		}

		if err := s.cache.Set(ck, c.value); err != nil {
			// dropping a stale entry is enough to stay correct
			_ = s.cache.Delete(ck)
		}
	}

	return nil
}

// Close closes both cache and backend
func (s *CachedStore) Close() error {
	if err := s.cache.Close(); err != nil {
		return err
	}

	return s.backend.Close()
}
