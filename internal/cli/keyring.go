package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/julianstephens/agenda/internal/keyring"
)

// KeyringSetCmd stores a PostgreSQL connection string in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string, without a password."`
}

func (c *KeyringSetCmd) Run(ctx *Context) error {
	if err := ctx.Vault.SetConnectionString(c.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string: %w", err)
	}

	ctx.printf("✓ Connection string stored in OS keyring\n")
	ctx.printf("  agenda will use it when --db is not given\n")
	return nil
}

type KeyringDeleteCmd struct{}

func (c *KeyringDeleteCmd) Run(ctx *Context) error {
	err := ctx.Vault.Delete()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring")
	}
	if err != nil {
		return err
	}

	ctx.printf("✓ Connection string deleted from OS keyring\n")
	return nil
}

type KeyringStatusCmd struct{}

func (c *KeyringStatusCmd) Run(ctx *Context) error {
	if !ctx.Vault.Available() {
		ctx.printf("❌ OS keyring is not available on this system\n")
		return keyring.ErrUnavailable
	}
	ctx.printf("✓ OS keyring is available\n")

	connStr, err := ctx.Vault.ConnectionString()
	switch {
	case err == nil:
		ctx.printf("✓ Connection string is stored in keyring: %s\n", maskPassword(connStr))
	case errors.Is(err, keyring.ErrNotFound):
		ctx.printf("ℹ No connection string stored in keyring\n")
	default:
		return err
	}
	return nil
}

// maskPassword hides a password in a URL or key=value connection string
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil || u.User == nil {
			return connStr
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
			return strings.Replace(u.String(), "%2A%2A%2A%2A", "****", 1)
		}
		return connStr
	}

	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
