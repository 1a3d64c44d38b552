package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/agenda/internal/models"
)

// document is the state shared by the in-memory and JSON stores
type document struct {
	Version    int                           `json:"version"`
	Schedules  map[string]models.Schedule    `json:"schedules"`
	Exceptions map[string][]models.Exception `json:"exceptions"`
}

func newDocument() *document {
	return &document{
		Version:    1,
		Schedules:  make(map[string]models.Schedule),
		Exceptions: make(map[string][]models.Exception),
	}
}

func (d *document) ensureMaps() {
	if d.Schedules == nil {
		d.Schedules = make(map[string]models.Schedule)
	}
	if d.Exceptions == nil {
		d.Exceptions = make(map[string][]models.Exception)
	}
}

func (d *document) clone() *document {
	c := &document{
		Version:    d.Version,
		Schedules:  make(map[string]models.Schedule, len(d.Schedules)),
		Exceptions: make(map[string][]models.Exception, len(d.Exceptions)),
	}
	for id, s := range d.Schedules {
		c.Schedules[id] = s.Clone()
	}
	for id, exs := range d.Exceptions {
		c.Exceptions[id] = append([]models.Exception(nil), exs...)
	}
	return c
}

// withExceptions returns a copy of the stored schedule with its exception
// dates filled in
func (d *document) withExceptions(s models.Schedule) models.Schedule {
	out := s.Clone()
	out.Exceptions = nil
	for _, ex := range d.Exceptions[s.ID] {
		out.Exceptions = append(out.Exceptions, ex.Date)
	}
	if len(out.Exceptions) > 0 {
		out.Exceptions = SortExceptionDates(out.Exceptions)
	}
	return out
}

// documentStore implements Store directly on a document. Callers handle
// locking and persistence.
type documentStore struct {
	doc *document
}

func (s documentStore) Save(schedule models.Schedule) error {
	stored := schedule.Clone()
	stored.Exceptions = nil
	s.doc.Schedules[schedule.ID] = stored
	return nil
}

func (s documentStore) Delete(id string) error {
	if _, ok := s.doc.Schedules[id]; !ok {
		return fmt.Errorf("%w: schedule %s", ErrNotFound, id)
	}
	delete(s.doc.Schedules, id)
	delete(s.doc.Exceptions, id)
	return nil
}

func (s documentStore) Get(id string) (models.Schedule, error) {
	schedule, ok := s.doc.Schedules[id]
	if !ok {
		return models.Schedule{}, fmt.Errorf("%w: schedule %s", ErrNotFound, id)
	}
	return s.doc.withExceptions(schedule), nil
}

func (s documentStore) ListByDateRange(start, end time.Time) ([]models.Schedule, error) {
	from, to := RangeBounds(start, end)
	out := make([]models.Schedule, 0)
	for _, schedule := range s.doc.Schedules {
		if CouldApplyWithin(schedule, from, to) {
			out = append(out, s.doc.withExceptions(schedule))
		}
	}
	sortByID(out)
	return out, nil
}

func (s documentStore) List() ([]models.Schedule, error) {
	out := make([]models.Schedule, 0, len(s.doc.Schedules))
	for _, schedule := range s.doc.Schedules {
		out = append(out, s.doc.withExceptions(schedule))
	}
	sortByID(out)
	return out, nil
}

func (s documentStore) AddException(ex models.Exception) error {
	if _, ok := s.doc.Schedules[ex.ScheduleID]; !ok {
		return fmt.Errorf("%w: schedule %s", ErrNotFound, ex.ScheduleID)
	}
	for _, existing := range s.doc.Exceptions[ex.ScheduleID] {
		if existing.Date == ex.Date {
			return nil
		}
	}
	s.doc.Exceptions[ex.ScheduleID] = append(s.doc.Exceptions[ex.ScheduleID], ex)
	return nil
}

func sortByID(list []models.Schedule) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
}
