package storage

import (
	"sync"
	"time"

	"github.com/julianstephens/agenda/internal/models"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent
// use; transactions snapshot the whole state and restore it on error.
type MemoryStore struct {
	mu  sync.Mutex
	doc *document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: newDocument()}
}

func (s *MemoryStore) Init() error  { return nil }
func (s *MemoryStore) Load() error  { return nil }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetConfigPath() string {
	return "memory"
}

func (s *MemoryStore) Save(schedule models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentStore{s.doc}.Save(schedule)
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentStore{s.doc}.Delete(id)
}

func (s *MemoryStore) Get(id string) (models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentStore{s.doc}.Get(id)
}

func (s *MemoryStore) ListByDateRange(start, end time.Time) ([]models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentStore{s.doc}.ListByDateRange(start, end)
}

func (s *MemoryStore) List() ([]models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentStore{s.doc}.List()
}

func (s *MemoryStore) AddException(ex models.Exception) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return documentStore{s.doc}.AddException(ex)
}

// WithTx holds the store lock for the duration of fn
func (s *MemoryStore) WithTx(fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.doc.clone()
	if err := fn(documentStore{s.doc}); err != nil {
		s.doc = snapshot
		return err
	}
	return nil
}
