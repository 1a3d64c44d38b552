package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/agenda/internal/cli"
	"github.com/julianstephens/agenda/internal/config"
	"github.com/julianstephens/agenda/internal/constants"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/keyring"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/manager"
)

var CLI struct {
	Version    kong.VersionFlag
	DB         string `name:"db" help:"SQLite file, .json file or PostgreSQL connection string. Credentials must NOT be embedded in a connection string; use .pgpass, PGPASSWORD or the OS keyring." env:"AGENDA_DB"`
	ConfigFile string `name:"config" help:"Settings file (default: config.yaml next to the database)." type:"path" env:"AGENDA_CONFIG"`
	Debug      bool   `help:"Log debug output to stderr." env:"AGENDA_DEBUG"`
	Yes        bool   `short:"y" help:"Answer yes to every prompt."`

	Init   cli.InitCmd   `cmd:"" help:"Initialize agenda storage."`
	Doctor cli.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Tui    cli.TuiCmd    `cmd:"" help:"Launch the interactive day view." default:"1"`

	Add    cli.AddCmd    `cmd:"" help:"Add a schedule, resolving conflicts by priority."`
	Edit   cli.EditCmd   `cmd:"" help:"Edit a schedule."`
	Delete cli.DeleteCmd `cmd:"" help:"Delete a schedule and all of its occurrences."`
	Show   cli.ShowCmd   `cmd:"" help:"Show one schedule."`
	List   cli.ListCmd   `cmd:"" help:"List every schedule definition."`

	Day      cli.DayCmd      `cmd:"" help:"Show the schedules of a day."`
	Summary  cli.SummaryCmd  `cmd:"" help:"Print the plain-text summary of a day."`
	Free     cli.FreeCmd     `cmd:"" help:"List the free time left in a day."`
	Upcoming cli.UpcomingCmd `cmd:"" help:"List occurrences over the coming days."`
	Stats    cli.StatsCmd    `cmd:"" help:"Show schedule statistics."`
	Export   cli.ExportCmd   `cmd:"" help:"Export schedules as iCalendar."`

	Request cli.RequestCmd `cmd:"" help:"File a schedule for confirmation."`
	Suggest cli.SuggestCmd `cmd:"" help:"Suggest an impromptu schedule unless an equivalent one exists."`
	Pending cli.PendingCmd `cmd:"" help:"List schedules awaiting confirmation."`
	Confirm cli.ConfirmCmd `cmd:"" help:"Confirm a pending schedule."`
	Reject  cli.RejectCmd  `cmd:"" help:"Reject a pending schedule."`

	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage SQLite database backups."`
	Keyring struct {
		Set    cli.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Delete cli.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status cli.KeyringStatusCmd `cmd:"" help:"Check the OS keyring."`
	} `cmd:"" help:"Manage the connection string kept in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Priority-aware personal schedule manager"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	vault := keyring.Default()
	target, err := cli.ResolveTarget(CLI.DB, vault)
	if err != nil {
		apperrors.Fatal(err)
	}
	dataDir, err := cli.DataDir(target)
	if err != nil {
		apperrors.Fatal(err)
	}

	configPath := CLI.ConfigFile
	if configPath == "" {
		configPath = filepath.Join(dataDir, config.FileName)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		apperrors.Fatal(err)
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, LogDir: cfg.LogDir, ConfigDir: dataDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store, err := cli.NewProvider(target)
	if err != nil {
		apperrors.Fatal(err)
	}

	// init creates the store and keyring commands never touch it
	command := ctx.Command()
	if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "keyring") {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }
	mgr := manager.New(store,
		manager.WithClock(now),
		manager.WithHorizonDays(cfg.HorizonDays),
		manager.WithSimilarityJudge(manager.TitleJudge{}),
	)

	appCtx := &cli.Context{
		Store:      store,
		Manager:    mgr,
		Config:     cfg,
		ConfigPath: configPath,
		Vault:      vault,
		Out:        os.Stdout,
		LockDir:    dataDir,
		Yes:        CLI.Yes,
		Now:        now,
	}

	if err := ctx.Run(appCtx); err != nil {
		logger.Debug("Command failed", "command", command)
		apperrors.Fatal(err)
	}
}
