package kv

import (
	"context"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

// RedisStore is using redis; every key read by an Update is WATCHed and
// its staged writes are flushed within a single MULTI/EXEC, which fails
// and gets retried if any watched key has changed meanwhile
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore initializing redis store, every key is prefixed
// with a given prefix
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilDB
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *RedisStore) key(ns string, key []byte) string {
	return s.prefix + string(PrefixedKey(ns, key))
}

type redisTx struct {
	store  *RedisStore
	client *redis.Client

	// set only within Update
	watch  *redis.Tx
	staged *changeset
}

func (t *redisTx) Get(ns string, key []byte) ([]byte, error) {
	if err := validate(ns, key); err != nil {
		return nil, err
	}

	if t.staged != nil {
		if v, found := t.staged.lookup(ns, key); found {
			return copyBytes(v), nil
		}
	}

	k := t.store.key(ns, key)

	var cmd *redis.StringCmd

	if t.watch != nil {
		if err := t.watch.Watch(k).Err(); err != nil {
			return nil, errors.Wrap(err, "failed to watch redis key")
		}

		cmd = t.watch.Get(k)
	} else {
		cmd = t.client.Get(k)
	}

	value, err := cmd.Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to get redis key")
	}

	return value, nil
}

func (t *redisTx) Put(ns string, key, value []byte) error {
	if t.watch == nil {
		return ErrReadOnly
	}

	if err := validatePut(ns, key, value); err != nil {
		return err
	}

	t.staged.put(ns, key, value)

	return nil
}

func (t *redisTx) Delete(ns string, key []byte) error {
	if t.watch == nil {
		return ErrReadOnly
	}

	if err := validate(ns, key); err != nil {
		return err
	}

	t.staged.delete(ns, key)

	return nil
}

// View runs fn reading directly from redis
func (s *RedisStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(&redisTx{store: s, client: s.client.WithContext(ctx)})
}

// Update runs fn and flushes its staged writes atomically,
// re-running fn whenever a watched key changes before EXEC
func (s *RedisStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	client := s.client.WithContext(ctx)

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := client.Watch(func(watch *redis.Tx) error {
			return s.update(watch, fn)
		})

		if err != redis.TxFailedErr {
			return err
		}
	}

	return ErrConflict
}

func (s *RedisStore) update(watch *redis.Tx, fn func(tx Tx) error) error {
	tx := &redisTx{
		store:  s,
		watch:  watch,
		staged: newChangeset(),
	}

	if err := fn(tx); err != nil {
		return err
	}

	changes := tx.staged.changes()
	if len(changes) == 0 {
		return nil
	}

	_, err := watch.TxPipelined(func(pipe redis.Pipeliner) error {
		for _, c := range changes {
			if c.value == nil {
				pipe.Del(s.key(c.ns, c.key))
				continue
			}

			pipe.Set(s.key(c.ns, c.key), c.value, 0)
		}

		return nil
	})

	switch err {
	case nil:
		return nil
	case redis.TxFailedErr:
		return err
	}

	return errors.Wrap(err, "failed to execute redis transaction")
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
