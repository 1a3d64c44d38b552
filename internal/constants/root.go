package constants

import "time"

const (
	AppName            = "agenda"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/agenda/agenda.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Summary bucket boundaries, minutes from midnight
	MorningEndMin   = 12 * 60
	AfternoonEndMin = 18 * 60

	// DefaultHorizonDays bounds how far a recurring candidate is expanded
	// when checking it for conflicts.
	DefaultHorizonDays = 90

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "agenda-"
	BackupFileSuffix = ".db"

	// Writer lock constants
	LockfileName   = "agenda.lock"
	LockRetryDelay = 100 * time.Millisecond
	LockMaxRetries = 20

	// MetadataSource records where a schedule came from (cli, suggestion, ...)
	MetadataSource = "source"
)
