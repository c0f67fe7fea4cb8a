package core_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/agubarev/rolegate/internal/config"
	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/agubarev/rolegate/pkg/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewCore(t *testing.T) {
	a := assert.New(t)

	cfg, err := config.Load(config.New())
	a.NoError(err)

	cfg.Backend = "cassandra"
	c, err := core.NewCore(cfg)
	a.Error(err)
	a.Equal(config.ErrUnknownBackend, errors.Cause(err))
	a.Nil(c)

	// not initialized yet
	cfg.Backend = config.BackendMemory
	c, err = core.NewCore(cfg)
	a.NoError(err)
	a.NotNil(c)
	a.Equal(core.ErrNilStore, c.Validate())
	a.Panics(func() { c.Registry() })

	var nilCore *core.Core
	a.Equal(core.ErrNilCore, nilCore.Validate())
}

func TestCoreMemory(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	c, err := core.CoreForTesting()
	a.NoError(err)
	a.NotNil(c)
	a.NoError(c.Validate())
	a.Equal(core.ErrAlreadyInitiated, c.Init(ctx))

	r := c.Registry()
	a.NoError(r.Set(ctx, role.Owner, "0xabc"))

	grantee, ok, err := r.Get(ctx, role.Owner)
	a.NoError(err)
	a.True(ok)
	a.Equal(role.Account("0xabc"), grantee)

	a.NoError(c.Close())
	a.Equal(core.ErrNilStore, c.Validate())

	// closing twice is harmless
	a.NoError(c.Close())
}

func TestCorePersistenceBolt(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	path := filepath.Join(os.TempDir(), fmt.Sprintf("rolegate-core-%s.bolt", util.NewULID()))
	defer os.Remove(path)

	cfg, err := config.Load(config.New())
	a.NoError(err)
	cfg.Bolt.Path = path
	cfg.Cache.Enabled = true
	cfg.Cache.Shards = 8

	open := func() *core.Core {
		c, err := core.NewCore(cfg)
		a.NoError(err)
		a.NoError(c.SetLogger(zap.NewNop()))
		a.NoError(c.Init(ctx))
		return c
	}

	c := open()
	a.NoError(c.Registry().Set(ctx, role.TroveManager, "0xdef"))
	a.NoError(c.Registry().Set(ctx, role.StabilityPool, "0xdef"))
	a.NoError(c.Close())

	// reopening the same file
	c = open()
	defer c.Close()

	roles, err := c.Registry().RolesOf(ctx, "0xdef")
	a.NoError(err)
	a.Equal([]role.Role{role.TroveManager, role.StabilityPool}, roles)
	a.NoError(c.Registry().Verify(ctx))
}
