package main

import (
	"fmt"

	"mixdown/internal/config"
	"mixdown/internal/queue"
)

// commandContext lazily loads configuration and the job store so commands
// that need neither (config init, presets) stay cheap.
type commandContext struct {
	configFlag *string

	cfg   *config.Config
	store *queue.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureStore() (*queue.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	c.store = store
	return store, nil
}

func (c *commandContext) close() {
	if c.store != nil {
		c.store.Close()
		c.store = nil
	}
}
