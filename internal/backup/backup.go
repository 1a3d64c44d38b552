package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
)

const stampFormat = "20060102-150405"

// Backup describes one snapshot of the SQLite database
type Backup struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Size      int64
}

// Manager takes, lists, prunes and restores snapshots of a SQLite
// database. The database should not be open for writing during Restore.
type Manager struct {
	dbPath string
	dir    string
	keep   int
	now    func() time.Time
}

type Option func(*Manager)

// WithDir overrides the default <db dir>/backups location
func WithDir(dir string) Option {
	return func(m *Manager) { m.dir = dir }
}

// WithRetention sets how many snapshots Create keeps
func WithRetention(keep int) Option {
	return func(m *Manager) {
		if keep > 0 {
			m.keep = keep
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		keep:   constants.MaxBackups,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots the database and prunes the oldest snapshots beyond
// the retention limit.
func (m *Manager) Create() (Backup, error) {
	b, err := m.create()
	if err != nil {
		return Backup{}, err
	}
	if err := m.prune(); err != nil {
		logger.Warn("Failed to prune old backups", "dir", m.dir, "error", err)
	}
	return b, nil
}

func (m *Manager) create() (Backup, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return Backup{}, fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return Backup{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	path, err := m.nextPath()
	if err != nil {
		return Backup{}, err
	}
	if err := snapshot(m.dbPath, path); err != nil {
		return Backup{}, fmt.Errorf("failed to back up database: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Backup{}, err
	}
	b, _ := parseName(filepath.Base(path))
	b.Path = path
	b.Size = info.Size()

	logger.Info("Backup created", "path", path, "size", b.Size)
	return b, nil
}

// nextPath names a snapshot after the current time, adding a counter when
// several are taken within the same second.
func (m *Manager) nextPath() (string, error) {
	stamp := m.now().UTC().Format(stampFormat)
	name := constants.BackupFilePrefix + stamp + constants.BackupFileSuffix

	for n := 1; n <= 100; n++ {
		path := filepath.Join(m.dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		name = fmt.Sprintf("%s%s-%d%s", constants.BackupFilePrefix, stamp, n, constants.BackupFileSuffix)
	}
	return "", fmt.Errorf("failed to generate unique backup filename")
}

// parseName extracts the timestamp from "agenda-YYYYMMDD-HHMMSS[-N].db"
func parseName(name string) (Backup, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return Backup{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)

	parts := strings.Split(stamp, "-")
	seq := 0
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return Backup{}, false
		}
		seq = n
		stamp = parts[0] + "-" + parts[1]
	}

	ts, err := time.Parse(stampFormat, stamp)
	if err != nil {
		return Backup{}, false
	}
	// Counter suffixes sort after the plain name of the same second
	return Backup{Name: name, CreatedAt: ts.Add(time.Duration(seq) * time.Nanosecond)}, true
}

// List returns the snapshots in the backup directory, newest first
func (m *Manager) List() ([]Backup, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return []Backup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := make([]Backup, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		b.Path = filepath.Join(m.dir, entry.Name())
		b.Size = info.Size()
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

func (m *Manager) prune() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for _, b := range backups[min(m.keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", b.Name, err)
		}
		logger.Debug("Backup pruned", "path", b.Path)
	}
	return nil
}

// Resolve finds a snapshot by file name or path
func (m *Manager) Resolve(ref string) (string, error) {
	path := ref
	if !strings.ContainsRune(ref, os.PathSeparator) {
		path = filepath.Join(m.dir, ref)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("backup file does not exist: %s", ref)
	}
	return path, nil
}

// Restore replaces the database with the snapshot ref. The current
// database, if any, is snapshotted first and that snapshot is returned.
func (m *Manager) Restore(ref string) (*Backup, error) {
	path, err := m.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := verify(path); err != nil {
		return nil, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous *Backup
	if _, err := os.Stat(m.dbPath); err == nil {
		b, err := m.create()
		if err != nil {
			return nil, fmt.Errorf("failed to back up current database before restore: %w", err)
		}
		previous = &b
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return nil, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logger.Warn("Failed to remove temporary restore file", "path", tmp, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to restore database: %w", err)
	}

	logger.Info("Backup restored", "from", path, "db", m.dbPath)
	return previous, nil
}

// snapshot writes a consistent copy of src to dst with VACUUM INTO,
// falling back to a plain copy.
func snapshot(src, dst string) error {
	db, err := sql.Open("sqlite", "file:"+src+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}

	if _, err := db.Exec("VACUUM INTO ?", dst); err != nil {
		logger.Debug("VACUUM INTO failed, copying file", "error", err)
		db.Close()
		return copyFile(src, dst)
	}
	return nil
}

// verify checks that path is a SQLite database holding the schedules table
func verify(path string) error {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schedules'").Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no schedules table")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return err
	}
	return out.Sync()
}
