package role_test

import (
	"context"
	"testing"

	"github.com/agubarev/rolegate/pkg/kv"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errInjected = errors.New("injected storage failure")

// faultyStore fails the n-th write (or any read, if failReads is set)
// of every Update
type faultyStore struct {
	kv.Store
	failOnWrite int
	failReads   bool
}

type faultyTx struct {
	kv.Tx
	store  *faultyStore
	writes int
}

func (tx *faultyTx) Get(ns string, key []byte) ([]byte, error) {
	if tx.store.failReads {
		return nil, errInjected
	}

	return tx.Tx.Get(ns, key)
}

func (tx *faultyTx) write() error {
	tx.writes++
	if tx.writes == tx.store.failOnWrite {
		return errInjected
	}

	return nil
}

func (tx *faultyTx) Put(ns string, key, value []byte) error {
	if err := tx.write(); err != nil {
		return err
	}

	return tx.Tx.Put(ns, key, value)
}

func (tx *faultyTx) Delete(ns string, key []byte) error {
	if err := tx.write(); err != nil {
		return err
	}

	return tx.Tx.Delete(ns, key)
}

func (s *faultyStore) View(ctx context.Context, fn func(tx kv.Tx) error) error {
	return s.Store.View(ctx, func(tx kv.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

func (s *faultyStore) Update(ctx context.Context, fn func(tx kv.Tx) error) error {
	return s.Store.Update(ctx, func(tx kv.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

func TestRegistryPartialFailureLeavesNoTrace(t *testing.T) {
	for _, f := range storeFactories {
		f := f

		t.Run(f.name, func(t *testing.T) {
			a := assert.New(t)
			ctx := context.Background()

			backend, cleanup, err := f.open()
			if !a.NoError(err) {
				return
			}

			defer cleanup()

			fs := &faultyStore{Store: backend}
			r := registryForTesting(t, fs)

			a.NoError(r.Set(ctx, role.Owner, "alice"))
			a.NoError(r.Set(ctx, role.ActivePool, "alice"))

			// reassignment writes three entries, failing each one in turn
			for n := 1; n <= 3; n++ {
				fs.failOnWrite = n

				err := r.Set(ctx, role.Owner, "bob")
				a.Error(err)
				a.True(role.IsStorageError(err))
				a.False(role.IsUnauthorized(err))
				a.Equal(errInjected, errors.Cause(err))

				fs.failOnWrite = 0

				got, ok, err := r.Get(ctx, role.Owner)
				a.NoError(err)
				a.True(ok)
				a.Equal(role.Account("alice"), got)

				aliceRoles, err := r.RolesOf(ctx, "alice")
				a.NoError(err)
				a.Equal([]role.Role{role.ActivePool, role.Owner}, aliceRoles)

				bobRoles, err := r.RolesOf(ctx, "bob")
				a.NoError(err)
				a.Empty(bobRoles)

				a.NoError(r.Verify(ctx))
			}

			// deleting writes two entries
			for n := 1; n <= 2; n++ {
				fs.failOnWrite = n
				a.Error(r.Delete(ctx, role.Owner))
				fs.failOnWrite = 0

				has, err := r.HasRole(ctx, role.Owner, "alice")
				a.NoError(err)
				a.True(has)

				a.NoError(r.Verify(ctx))
			}
		})
	}
}

func TestRegistryReadFailure(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	fs := &faultyStore{Store: kv.NewMemoryStore()}
	r := registryForTesting(t, fs)

	a.NoError(r.Set(ctx, role.Owner, "alice"))

	fs.failReads = true

	has, err := r.HasRole(ctx, role.Owner, "alice")
	a.False(has)
	a.True(role.IsStorageError(err))

	err = r.AssertRole(ctx, role.Owner, "alice")
	a.True(role.IsStorageError(err))
	a.False(role.IsUnauthorized(err))

	err = r.AssertAnyRole(ctx, []role.Role{role.ActivePool, role.Owner}, "alice")
	a.True(role.IsStorageError(err))

	_, err = r.RolesOf(ctx, "alice")
	a.True(role.IsStorageError(err))

	a.True(role.IsStorageError(r.Set(ctx, role.Owner, "bob")))
	a.True(role.IsStorageError(r.Delete(ctx, role.Owner)))

	fs.failReads = false

	got, ok, err := r.Get(ctx, role.Owner)
	a.NoError(err)
	a.True(ok)
	a.Equal(role.Account("alice"), got)
}

func TestRegistryCorruptedData(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	s := kv.NewMemoryStore()
	r := registryForTesting(t, s)

	a.NoError(s.Update(ctx, func(tx kv.Tx) error {
		return tx.Put(testNamespace, []byte(role.Owner.Key()), []byte("{garbage"))
	}))

	_, _, err := r.Get(ctx, role.Owner)
	a.True(role.IsStorageError(err))

	a.NoError(s.Update(ctx, func(tx kv.Tx) error {
		return tx.Put(testIndexNamespace, []byte("alice"), []byte(`["janitor"]`))
	}))

	_, err = r.RolesOf(ctx, "alice")
	a.True(role.IsStorageError(err))
}

func TestRegistryVerifyDetectsDivergence(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	s := kv.NewMemoryStore()
	r := registryForTesting(t, s)

	a.NoError(r.Set(ctx, role.Owner, "alice"))
	a.NoError(r.Set(ctx, role.ActivePool, "alice"))

	// dropping owner from the index behind the registry's back
	a.NoError(s.Update(ctx, func(tx kv.Tx) error {
		return tx.Put(testIndexNamespace, []byte("alice"), []byte(`["active_pool","stability_pool"]`))
	}))

	err := r.Verify(ctx)
	a.Error(err)

	var inconsistency *role.InconsistencyError
	a.True(errors.As(err, &inconsistency))
	a.Len(inconsistency.Items, 2)
	a.Equal("owner", inconsistency.Items[0].Role)
	a.Equal("stability_pool", inconsistency.Items[1].Role)
}
