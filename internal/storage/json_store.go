package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/julianstephens/agenda/internal/models"
)

// JSONStore keeps the whole document in one JSON file, rewritten after
// every mutation.
type JSONStore struct {
	path string
	mu   sync.Mutex
	doc  *document
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.doc = newDocument()
	return s.save()
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'agenda init' first")
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	doc.ensureMaps()
	s.doc = doc

	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}

	return nil
}

// mutate runs fn against the loaded document and writes it out on success.
// A failed write restores the previous in-memory state.
func (s *JSONStore) mutate(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}

	snapshot := s.doc.clone()
	if err := fn(documentStore{s.doc}); err != nil {
		s.doc = snapshot
		return err
	}
	if err := s.save(); err != nil {
		s.doc = snapshot
		return err
	}
	return nil
}

func (s *JSONStore) read(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}
	return fn(documentStore{s.doc})
}

func (s *JSONStore) Save(schedule models.Schedule) error {
	return s.mutate(func(tx Store) error { return tx.Save(schedule) })
}

func (s *JSONStore) Delete(id string) error {
	return s.mutate(func(tx Store) error { return tx.Delete(id) })
}

func (s *JSONStore) AddException(ex models.Exception) error {
	return s.mutate(func(tx Store) error { return tx.AddException(ex) })
}

func (s *JSONStore) Get(id string) (models.Schedule, error) {
	var out models.Schedule
	err := s.read(func(tx Store) error {
		var err error
		out, err = tx.Get(id)
		return err
	})
	return out, err
}

func (s *JSONStore) ListByDateRange(start, end time.Time) ([]models.Schedule, error) {
	var out []models.Schedule
	err := s.read(func(tx Store) error {
		var err error
		out, err = tx.ListByDateRange(start, end)
		return err
	})
	return out, err
}

func (s *JSONStore) List() ([]models.Schedule, error) {
	var out []models.Schedule
	err := s.read(func(tx Store) error {
		var err error
		out, err = tx.List()
		return err
	})
	return out, err
}

// WithTx applies fn in memory and writes the file once at the end
func (s *JSONStore) WithTx(fn func(Store) error) error {
	return s.mutate(fn)
}
