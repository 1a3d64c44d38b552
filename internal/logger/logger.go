// Package logger is the process-wide structured log. Every helper is a
// no-op until Init has run, so packages may log unconditionally.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the active log file inside the log directory
const FileName = "agenda.log"

var (
	// Logger is nil until Init
	Logger *log.Logger
	path   string
)

type Config struct {
	Debug bool
	// LogDir overrides <ConfigDir>/logs
	LogDir    string
	ConfigDir string
}

func (c Config) dir() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(c.ConfigDir, "logs")
}

// Init opens the rotated log file. Debug mode also mirrors to stderr and
// records the caller.
func Init(cfg Config) error {
	dir := cfg.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path = filepath.Join(dir, FileName)

	var w io.Writer = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // MB
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	level := log.InfoLevel
	if cfg.Debug {
		w = io.MultiWriter(os.Stderr, w)
		level = log.DebugLevel
	}

	Logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "agenda",
		ReportTimestamp: true,
		ReportCaller:    cfg.Debug,
	})
	return nil
}

// Path is the active log file, empty before Init
func Path() string {
	return path
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
