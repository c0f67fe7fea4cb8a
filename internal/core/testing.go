package core

import (
	"context"

	"github.com/agubarev/rolegate/internal/config"
	"go.uber.org/zap"
)

// CoreForTesting returns a fully initialized in-memory core for testing
func CoreForTesting() (*Core, error) {
	cfg, err := config.Load(config.New())
	if err != nil {
		return nil, err
	}

	cfg.Backend = config.BackendMemory

	c, err := NewCore(cfg)
	if err != nil {
		return nil, err
	}

	if err = c.SetLogger(zap.NewNop()); err != nil {
		return nil, err
	}

	if err = c.Init(context.Background()); err != nil {
		return nil, err
	}

	return c, nil
}
