package kv

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
)

// errors
var (
	ErrNilDB           = errors.New("database is nil")
	ErrEmptyNamespace  = errors.New("empty namespace")
	ErrEmptyKey        = errors.New("empty key")
	ErrNilValue        = errors.New("value is nil")
	ErrTxClosed        = errors.New("transaction is closed")
	ErrReadOnly        = errors.New("transaction is read-only")
	ErrNamespaceLength = errors.New("namespace is too long")
	ErrConflict        = errors.New("transaction conflict, retries exhausted")
)

// maxConflictRetries limits how many times an optimistic Update
// is re-run after a conflicting concurrent commit; fn passed to
// Update must therefore be safe to run more than once
const maxConflictRetries = 64

// Store is a transactional, namespaced key/value storage contract;
// every write within a single Update either lands entirely or not at all
type Store interface {
	// View runs fn within a read-only transaction
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn within a read-write transaction, which is committed
	// only if fn returns nil; fn may be re-run if the backend detects
	// a conflicting concurrent write
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx is a single storage transaction
type Tx interface {
	// Get returns nil value and nil error if the key is absent
	Get(ns string, key []byte) ([]byte, error)
	Put(ns string, key, value []byte) error
	Delete(ns string, key []byte) error
}

// PrefixedKey composes a flat storage key out of a namespace and a key;
// namespace length prefix keeps distinct namespaces from ever colliding
func PrefixedKey(ns string, key []byte) []byte {
	buf := make([]byte, 2+len(ns)+len(key))
	binary.BigEndian.PutUint16(buf, uint16(len(ns)))
	copy(buf[2:], ns)
	copy(buf[2+len(ns):], key)

	return buf
}

func validate(ns string, key []byte) error {
	if ns == "" {
		return ErrEmptyNamespace
	}

	if len(ns) > 0xFFFF {
		return ErrNamespaceLength
	}

	if len(key) == 0 {
		return ErrEmptyKey
	}

	return nil
}

func validatePut(ns string, key, value []byte) error {
	if err := validate(ns, key); err != nil {
		return err
	}

	if value == nil {
		return ErrNilValue
	}

	return nil
}

// change is a single staged write, nil value means deletion
type change struct {
	ns    string
	key   []byte
	value []byte
}

// changeset stages writes of a transaction, keeping only
// the last write per key in the original order
type changeset struct {
	order []string
	items map[string]change
}

func newChangeset() *changeset {
	return &changeset{
		order: make([]string, 0),
		items: make(map[string]change),
	}
}

func (cs *changeset) put(ns string, key, value []byte) {
	k := string(PrefixedKey(ns, key))
	if _, ok := cs.items[k]; !ok {
		cs.order = append(cs.order, k)
	}

	cs.items[k] = change{
		ns:    ns,
		key:   append([]byte(nil), key...),
		value: append([]byte{}, value...),
	}
}

func (cs *changeset) delete(ns string, key []byte) {
	k := string(PrefixedKey(ns, key))
	if _, ok := cs.items[k]; !ok {
		cs.order = append(cs.order, k)
	}

	cs.items[k] = change{
		ns:  ns,
		key: append([]byte(nil), key...),
	}
}

// lookup returns a staged value; found is false if the key wasn't touched
func (cs *changeset) lookup(ns string, key []byte) (value []byte, found bool) {
	c, ok := cs.items[string(PrefixedKey(ns, key))]
	if !ok {
		return nil, false
	}

	return c.value, true
}

func (cs *changeset) changes() []change {
	result := make([]change, 0, len(cs.order))
	for _, k := range cs.order {
		result = append(result, cs.items[k])
	}

	return result
}
