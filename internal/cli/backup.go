package cli

import (
	"fmt"

	"github.com/julianstephens/agenda/internal/backup"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/storage/sqlite"
)

// backups returns the snapshot manager for the SQLite store in use
func (ctx *Context) backups() (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for SQLite databases")
	}

	var opts []backup.Option
	if ctx.Config != nil {
		opts = append(opts, backup.WithRetention(ctx.Config.BackupRetention))
	}
	if ctx.Now != nil {
		opts = append(opts, backup.WithClock(ctx.Now))
	}
	return backup.NewManager(ctx.Store.GetConfigPath(), opts...), nil
}

// PerformAutomaticBackup snapshots the database on interactive startup.
// Failures are logged and never block the caller.
func (ctx *Context) PerformAutomaticBackup() {
	mgr, err := ctx.backups()
	if err != nil {
		return
	}
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}

	var b backup.Backup
	err = ctx.mutate(func() error {
		b, err = mgr.Create()
		return err
	})
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	ctx.printf("✓ Backup created: %s\n", b.Name)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}

	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.printf("No backups found.\n")
		ctx.printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	ctx.printf("Available backups (%d total):\n\n", len(backups))
	for _, b := range backups {
		sizeKB := float64(b.Size) / 1024.0
		ctx.printf("  %s  %s  (%.1f KB)\n", b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.Name, sizeKB)
	}
	ctx.printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}

	path, err := mgr.Resolve(c.BackupFile)
	if err != nil {
		return err
	}

	ok, err := ctx.confirm(
		"Replace the current database with this backup?",
		fmt.Sprintf("Restore from %s. The current database is backed up first.", path),
	)
	if err != nil {
		return err
	}
	if !ok {
		ctx.printf("Restore cancelled.\n")
		return nil
	}

	return ctx.mutate(func() error {
		// The open connection would keep serving the old file
		if err := ctx.Store.Close(); err != nil {
			logger.Warn("Failed to close database before restore", "error", err)
		}

		previous, err := mgr.Restore(path)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		if previous != nil {
			ctx.printf("Previous database saved as %s\n", previous.Name)
		}
		ctx.printf("✓ Database restored successfully!\n")
		ctx.printf("Restart any running agenda processes to use the restored database.\n")
		return nil
	})
}
