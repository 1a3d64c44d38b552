// Package lock serializes writers sharing one agenda store. A lockfile
// holds "<pid>|<executable>" of the holder; a lock whose process is gone
// is stale and gets taken over.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
)

// ErrLocked is returned when another live process holds the lock
var ErrLocked = errors.New("another agenda process is writing to the store")

var (
	findProcessFunc = ps.FindProcess
	currentPID      = os.Getpid
	retryDelay      = constants.LockRetryDelay
	maxRetries      = constants.LockMaxRetries
)

type Lock struct {
	path string
}

// Acquire takes the writer lock in dir, waiting briefly for a live holder
// to release it.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, constants.LockfileName)

	for attempt := 0; ; attempt++ {
		err := create(path)
		if err == nil {
			logger.Debug("Writer lock acquired", "path", path)
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		holder, alive := checkHolder(path)
		if !alive {
			logger.Warn("Removing stale writer lock", "path", path, "pid", holder)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
			}
			continue
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
		}
		time.Sleep(retryDelay)
	}
}

func create(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	pid := currentPID()
	exe := ""
	if p, err := findProcessFunc(pid); err == nil && p != nil {
		exe = p.Executable()
	}
	if _, err := fmt.Fprintf(f, "%d|%s", pid, exe); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// checkHolder reads the lockfile and reports whether its process still runs.
// A malformed file, or a pid reused by a different executable, is stale.
func checkHolder(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		// Released between our create and this read
		return 0, false
	}

	parts := strings.SplitN(strings.TrimSpace(string(content)), "|", 2)
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return 0, false
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return pid, false
	}
	if len(parts) == 2 && parts[1] != "" && process.Executable() != parts[1] {
		return pid, false
	}
	return pid, true
}

// Release removes the lockfile. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release writer lock: %w", err)
	}
	return nil
}
