// Package keyring keeps the PostgreSQL connection string in the OS keyring
// so that it never lands in a config file or shell history.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/storage/postgres"
)

var (
	// ErrNotFound is returned when nothing is stored for the account
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrUnavailable wraps failures of the OS keyring itself
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Vault addresses one keyring entry
type Vault struct {
	Service string
	Account string
}

// Default is the entry the CLI uses
func Default() Vault {
	return Vault{Service: constants.AppName, Account: constants.DefaultKeyringUser}
}

// ConnectionString returns the stored DSN
func (v Vault) ConnectionString() (string, error) {
	connStr, err := keyring.Get(v.Service, v.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return connStr, nil
}

// SetConnectionString validates connStr and stores it. Password-bearing
// DSNs are refused; authentication belongs in .pgpass or PGPASSWORD.
func (v Vault) SetConnectionString(connStr string) error {
	if connStr == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := postgres.ValidateConnString(connStr); err != nil {
		return err
	}
	if err := keyring.Set(v.Service, v.Account, connStr); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func (v Vault) Delete() error {
	err := keyring.Delete(v.Service, v.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Available tries a keyring read; a miss still means it works
func (v Vault) Available() bool {
	_, err := keyring.Get(v.Service, "availability-check")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
