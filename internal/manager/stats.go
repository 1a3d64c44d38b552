package manager

import (
	"time"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/recurrence"
	"github.com/julianstephens/agenda/internal/utils"
)

// Stats counts stored definitions; a recurring schedule counts once
type Stats struct {
	Total      int                              `json:"total"`
	ByType     map[models.ScheduleType]int      `json:"by_type"`
	ByPriority map[models.Priority]int          `json:"by_priority"`
	ByState    map[models.ConfirmationState]int `json:"by_state"`
	Exceptions int                              `json:"exceptions"`
}

func (m *Manager) Statistics() (Stats, error) {
	all, err := m.store.List()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByType:     make(map[models.ScheduleType]int),
		ByPriority: make(map[models.Priority]int),
		ByState:    make(map[models.ConfirmationState]int),
	}
	for _, s := range all {
		stats.Total++
		stats.ByType[s.Type]++
		stats.ByPriority[s.Priority]++
		stats.ByState[s.State]++
		stats.Exceptions += len(s.Exceptions)
	}
	return stats, nil
}

// Occurrence is one schedule active on one date
type Occurrence struct {
	Date     string // YYYY-MM-DD format
	Schedule models.Schedule
}

// Occurrences expands confirmed schedules over [from, to], ordered by date
// then start time.
func (m *Manager) Occurrences(from, to time.Time) ([]Occurrence, error) {
	start, end := utils.DateOnly(from), utils.DateOnly(to)
	candidates, err := m.store.ListByDateRange(start, end)
	if err != nil {
		return nil, err
	}

	byDate := recurrence.ByDate(candidates, start, end)

	out := make([]Occurrence, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := utils.FormatDate(d)
		for _, s := range byDate[key] {
			out = append(out, Occurrence{Date: key, Schedule: s})
		}
	}
	return out, nil
}
