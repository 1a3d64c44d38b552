package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/storage/postgres"
	"github.com/julianstephens/agenda/internal/storage/sqlite"
	"github.com/julianstephens/agenda/internal/utils"
	"github.com/julianstephens/agenda/internal/validation"
)

// auditDays is how far ahead doctor looks for overlapping schedules
const auditDays = 30

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.printf("Running diagnostics...\n\n")

	hasError := false
	check := func(name string, warnOnly bool, fn func() error) bool {
		err := fn()
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", name)
			return true
		case warnOnly:
			ctx.printf("⚠ %s: WARNING\n   %v\n", name, err)
		default:
			ctx.printf("❌ %s: FAIL\n   Error: %v\n", name, err)
			hasError = true
		}
		return false
	}

	dbReachable := check("Database reachable", false, func() error { return checkDBReachable(ctx) })
	if dbReachable {
		failures, warnings, err := audit(ctx)
		check("Data validation", false, func() error {
			if err != nil {
				return err
			}
			return joinFindings(failures)
		})
		if err == nil {
			check("Housekeeping", true, func() error { return joinFindings(warnings) })
		}
	} else {
		ctx.printf("⊘ Data validation: SKIPPED (database not reachable)\n")
	}
	if _, ok := ctx.Store.(*sqlite.Store); ok {
		check("Backups present", true, func() error { return checkBackupsPresent(ctx) })
	}
	check("Keyring", true, func() error {
		if !ctx.Vault.Available() {
			return errors.New("OS keyring is not available; PostgreSQL targets must be passed with --db")
		}
		return nil
	})
	if check("Log file", true, func() error {
		if logger.Path() == "" {
			return errors.New("logging is not initialized")
		}
		return nil
	}) {
		ctx.printf("   %s\n", logger.Path())
	}
	check("Clock/timezone", false, func() error { return checkClockTimezone(ctx) })

	ctx.printf("\n")
	if hasError {
		ctx.printf("Diagnostics completed with errors.\n")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.printf("All diagnostics passed!\n")
	return nil
}

func checkDBReachable(ctx *Context) error {
	switch st := ctx.Store.(type) {
	case *sqlite.Store:
		if db := st.GetDB(); db != nil {
			var one int
			if err := db.QueryRow("SELECT 1").Scan(&one); err != nil {
				return fmt.Errorf("failed to query database: %w", err)
			}
		}
	case *postgres.Store:
		if db := st.GetDB(); db != nil {
			if err := db.Ping(); err != nil {
				return fmt.Errorf("failed to reach database: %w", err)
			}
		}
	}
	_, err := ctx.Store.List()
	return err
}

// audit runs the validator once and splits its findings into errors and
// housekeeping warnings.
func audit(ctx *Context) (failures, warnings []string, err error) {
	all, err := ctx.Store.List()
	if err != nil {
		return nil, nil, err
	}
	from := utils.DateOnly(ctx.now())
	result := validation.New().ValidateSchedules(all, from, from.AddDate(0, 0, auditDays-1))
	for _, c := range result.Conflicts {
		switch c.Type {
		case validation.ConflictInvalidDefinition, validation.ConflictOverlapping:
			failures = append(failures, c.Description)
		default:
			warnings = append(warnings, c.Description)
		}
	}
	return failures, warnings, nil
}

func joinFindings(findings []string) error {
	if len(findings) == 0 {
		return nil
	}
	return errors.New(strings.Join(findings, "\n   "))
}

func checkBackupsPresent(ctx *Context) error {
	mgr, err := ctx.backups()
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'agenda backup create'")
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := ctx.now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Config != nil && !utils.ValidateTimezone(ctx.Config.Timezone) {
		return fmt.Errorf("unknown timezone %q", ctx.Config.Timezone)
	}
	return nil
}
