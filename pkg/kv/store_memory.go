package kv

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in memory, mostly for testing
// and ephemeral setups
type MemoryStore struct {
	data map[string]map[string][]byte
	sync.RWMutex
}

// NewMemoryStore returns an initialized in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string][]byte),
	}
}

type memoryTx struct {
	store    *MemoryStore
	staged   *changeset
	writable bool
	closed   bool
}

func (tx *memoryTx) Get(ns string, key []byte) ([]byte, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}

	if err := validate(ns, key); err != nil {
		return nil, err
	}

	if tx.staged != nil {
		if v, found := tx.staged.lookup(ns, key); found {
			return copyBytes(v), nil
		}
	}

	bucket, ok := tx.store.data[ns]
	if !ok {
		return nil, nil
	}

	return copyBytes(bucket[string(key)]), nil
}

func (tx *memoryTx) Put(ns string, key, value []byte) error {
	if tx.closed {
		return ErrTxClosed
	}

	if !tx.writable {
		return ErrReadOnly
	}

	if err := validatePut(ns, key, value); err != nil {
		return err
	}

	tx.staged.put(ns, key, value)

	return nil
}

func (tx *memoryTx) Delete(ns string, key []byte) error {
	if tx.closed {
		return ErrTxClosed
	}

	if !tx.writable {
		return ErrReadOnly
	}

	if err := validate(ns, key); err != nil {
		return err
	}

	tx.staged.delete(ns, key)

	return nil
}

// View runs a read-only transaction
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.RLock()
	defer s.RUnlock()

	tx := &memoryTx{store: s}
	defer func() { tx.closed = true }()

	return fn(tx)
}

// Update runs a read-write transaction; staged writes are applied
// only if fn succeeds
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	tx := &memoryTx{
		store:    s,
		staged:   newChangeset(),
		writable: true,
	}

	defer func() { tx.closed = true }()

	if err := fn(tx); err != nil {
		return err
	}

	for _, c := range tx.staged.changes() {
		if c.value == nil {
			if bucket, ok := s.data[c.ns]; ok {
				delete(bucket, string(c.key))
			}

			continue
		}

		bucket, ok := s.data[c.ns]
		if !ok {
			bucket = make(map[string][]byte)
			s.data[c.ns] = bucket
		}

		bucket[string(c.key)] = c.value
	}

	return nil
}

// Close does nothing
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of keys within a namespace
func (s *MemoryStore) Len(ns string) int {
	s.RLock()
	defer s.RUnlock()

	return len(s.data[ns])
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append([]byte{}, b...)
}
