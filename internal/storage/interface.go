package storage

import (
	"errors"
	"time"

	"github.com/julianstephens/agenda/internal/models"
)

// ErrNotFound is returned (wrapped) when a schedule id is unknown
var ErrNotFound = errors.New("not found")

// Store persists schedule definitions and their exception records.
// Schedules returned by Get, List and ListByDateRange carry their
// Exceptions; Save ignores that field.
type Store interface {
	Save(models.Schedule) error
	Delete(id string) error
	Get(id string) (models.Schedule, error)
	// ListByDateRange returns every definition, in any state, that could
	// apply on some date in [start, end].
	ListByDateRange(start, end time.Time) ([]models.Schedule, error)
	List() ([]models.Schedule, error)
	AddException(models.Exception) error
}

// Transactor is implemented by stores that can run several operations
// atomically. fn gets a Store bound to the transaction; returning an
// error rolls everything back.
type Transactor interface {
	WithTx(fn func(Store) error) error
}

type Lifecycle interface {
	Init() error
	Load() error
	Close() error
}

// Provider is what the host opens: a Store with a lifecycle
type Provider interface {
	Store
	Lifecycle

	// Utils
	GetConfigPath() string
}
