package role_test

import (
	"testing"

	"github.com/agubarev/rolegate/pkg/kv"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	testNamespace      = "roles"
	testIndexNamespace = "roles__by_account"
)

type storeFactory struct {
	name string
	open func() (kv.Store, func(), error)
}

var storeFactories = []storeFactory{
	{
		name: "memory",
		open: func() (kv.Store, func(), error) {
			return kv.NewMemoryStore(), func() {}, nil
		},
	},
	{
		name: "bolt",
		open: func() (kv.Store, func(), error) {
			return kv.BoltStoreForTesting()
		},
	},
	{
		name: "badger",
		open: func() (kv.Store, func(), error) {
			return kv.BadgerStoreForTesting()
		},
	},
}

func registryForTesting(t *testing.T, s kv.Store) *role.Registry {
	a := assert.New(t)

	r, err := role.NewRegistry(s, testNamespace, testIndexNamespace)
	a.NoError(err)
	a.NotNil(r)
	a.NoError(r.SetLogger(zap.NewNop()))

	return r
}

// forEachStore runs a test against a fresh registry for every local backend
func forEachStore(t *testing.T, fn func(t *testing.T, r *role.Registry)) {
	for _, f := range storeFactories {
		f := f

		t.Run(f.name, func(t *testing.T) {
			s, cleanup, err := f.open()
			if !assert.NoError(t, err) {
				return
			}

			defer cleanup()

			fn(t, registryForTesting(t, s))
		})
	}
}
