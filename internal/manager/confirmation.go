package manager

import (
	"sort"

	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
)

// RequestConfirmation validates in and stores it as pending. Pending
// schedules skip the conflict check and stay out of date queries until
// confirmed.
func (m *Manager) RequestConfirmation(in models.ScheduleInput) (models.Schedule, error) {
	s, err := models.NewSchedule(m.newID(), in, m.now())
	if err != nil {
		return models.Schedule{}, err
	}
	s.State = models.StatePending

	if err := m.store.Save(s); err != nil {
		return models.Schedule{}, err
	}

	logger.Info("Schedule awaiting confirmation", "id", s.ID, "title", s.Title, "date", s.Date)
	return s, nil
}

// Confirm runs the full conflict check as if the pending schedule were
// being added, then marks it confirmed.
func (m *Manager) Confirm(id string, opts ...AddOption) (models.Schedule, error) {
	o := collectAddOptions(opts)

	var confirmed models.Schedule
	err := m.withTx(func(st storage.Store) error {
		s, err := st.Get(id)
		if err != nil {
			return notFound(id, err)
		}
		if s.IsConfirmed() {
			return apperrors.Invalid("state", "schedule %s is already confirmed", id)
		}

		s.State = models.StateConfirmed
		s.UpdatedAt = m.now()
		if err := m.commit(st, s, o); err != nil {
			return err
		}
		confirmed = s
		return nil
	})
	if err != nil {
		return models.Schedule{}, err
	}

	logger.Info("Schedule confirmed", "id", confirmed.ID, "title", confirmed.Title, "date", confirmed.Date)
	return confirmed, nil
}

// Reject deletes a pending schedule
func (m *Manager) Reject(id string) error {
	err := m.withTx(func(st storage.Store) error {
		s, err := st.Get(id)
		if err != nil {
			return notFound(id, err)
		}
		if s.IsConfirmed() {
			return apperrors.Invalid("state", "schedule %s is not pending", id)
		}
		return st.Delete(id)
	})
	if err != nil {
		return err
	}

	logger.Info("Schedule rejected", "id", id)
	return nil
}

// Pending lists schedules awaiting confirmation by date, then start time
func (m *Manager) Pending() ([]models.Schedule, error) {
	all, err := m.store.List()
	if err != nil {
		return nil, err
	}

	out := make([]models.Schedule, 0)
	for _, s := range all {
		if !s.IsConfirmed() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartMinutes() < out[j].StartMinutes()
	})
	return out, nil
}
