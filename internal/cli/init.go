package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/julianstephens/agenda/internal/config"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized agenda storage at: %s\n", ctx.Store.GetConfigPath())

	if ctx.ConfigPath == "" {
		return nil
	}
	if _, err := os.Stat(ctx.ConfigPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	cfg := ctx.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Save(ctx.ConfigPath, cfg); err != nil {
		return err
	}
	ctx.printf("Wrote default settings to: %s\n", ctx.ConfigPath)
	return nil
}
