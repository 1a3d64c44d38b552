package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/keyring"
	"github.com/julianstephens/agenda/internal/lock"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/storage/postgres"
	"github.com/julianstephens/agenda/internal/storage/sqlite"
	"github.com/julianstephens/agenda/internal/utils"
)

type Context struct {
	Store      storage.Provider
	Manager    *manager.Manager
	Config     *config.Config
	ConfigPath string
	Vault      keyring.Vault
	Out        io.Writer
	// LockDir holds the writer lockfile; empty disables locking
	LockDir string
	// Yes answers every prompt with yes
	Yes bool
	Now func() time.Time
}

func (ctx *Context) out() io.Writer {
	if ctx.Out == nil {
		return os.Stdout
	}
	return ctx.Out
}

func (ctx *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(ctx.out(), format, args...)
}

func (ctx *Context) location() *time.Location {
	if ctx.Config == nil {
		return time.Local
	}
	return ctx.Config.Location()
}

func (ctx *Context) now() time.Time {
	if ctx.Now != nil {
		return ctx.Now().In(ctx.location())
	}
	return time.Now().In(ctx.location())
}

// parseDate accepts YYYY-MM-DD, "today" or "tomorrow" in the configured zone
func (ctx *Context) parseDate(s string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return utils.DateOnly(ctx.now()), nil
	case "tomorrow":
		return utils.DateOnly(ctx.now()).AddDate(0, 0, 1), nil
	}
	return utils.ParseDateArg(s, ctx.location())
}

// mutate runs fn while holding the writer lock
func (ctx *Context) mutate(fn func() error) error {
	if ctx.LockDir == "" {
		return fn()
	}

	l, err := lock.Acquire(ctx.LockDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("Failed to release writer lock", "error", err)
		}
	}()
	return fn()
}

// confirm asks a yes/no question. --yes skips the prompt.
func (ctx *Context) confirm(title, description string) (bool, error) {
	if ctx.Yes {
		return true, nil
	}

	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ResolveTarget picks the store location: an explicit path or connection
// string wins, then a DSN saved in the OS keyring, then the default path.
func ResolveTarget(target string, vault keyring.Vault) (string, error) {
	if target != "" {
		return expandHome(target)
	}

	connStr, err := vault.ConnectionString()
	switch {
	case err == nil:
		logger.Debug("Using connection string from keyring")
		return connStr, nil
	case errors.Is(err, keyring.ErrNotFound):
	default:
		logger.Debug("Keyring lookup failed", "error", err)
	}

	return expandHome(constants.DefaultConfigPath)
}

// NewProvider opens the store behind target: a PostgreSQL connection
// string, a .json document or otherwise a SQLite file.
func NewProvider(target string) (storage.Provider, error) {
	if postgres.IsConnString(target) {
		if err := postgres.ValidateConnString(target); err != nil {
			return nil, err
		}
		return postgres.New(target), nil
	}
	if strings.EqualFold(filepath.Ext(target), ".json") {
		return storage.NewJSONStore(target), nil
	}
	return sqlite.NewStore(target), nil
}

// DataDir is where the lockfile, config and backups live for target.
// PostgreSQL targets fall back to the default config directory.
func DataDir(target string) (string, error) {
	if postgres.IsConnString(target) {
		p, err := expandHome(constants.DefaultConfigPath)
		if err != nil {
			return "", err
		}
		return filepath.Dir(p), nil
	}
	return filepath.Dir(target), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	var weekdays []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		wd, ok := dayMap[part]
		if !ok {
			// 0=Sunday .. 6=Saturday
			num, err := strconv.Atoi(part)
			if err != nil || num < 0 || num > 6 {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
			wd = time.Weekday(num)
		}
		if !seen[wd] {
			seen[wd] = true
			weekdays = append(weekdays, wd)
		}
	}
	return weekdays, nil
}

func formatWeekdays(days []time.Weekday) string {
	names := make([]string, len(days))
	for i, wd := range days {
		names[i] = wd.String()[:3]
	}
	return strings.Join(names, ",")
}
