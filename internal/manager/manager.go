// Package manager is the public entry point of the schedule core. It
// validates input, runs every mutation through the conflict resolver and
// persists the outcome through a storage.Store.
package manager

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/agenda/internal/conflict"
	"github.com/julianstephens/agenda/internal/constants"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/recurrence"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/utils"
)

type Manager struct {
	store       storage.Store
	now         func() time.Time
	newID       func() string
	horizonDays int
	judge       SimilarityJudge
}

type Option func(*Manager)

// WithClock replaces time.Now; "today" for the conflict horizon comes from it
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithHorizonDays bounds how many days of a recurring candidate are checked
// for conflicts. Values below 1 keep the default.
func WithHorizonDays(days int) Option {
	return func(m *Manager) {
		if days > 0 {
			m.horizonDays = days
		}
	}
}

// WithSimilarityJudge sets the judge consulted by SuggestImpromptu
func WithSimilarityJudge(judge SimilarityJudge) Option {
	return func(m *Manager) { m.judge = judge }
}

func New(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		now:         time.Now,
		newID:       uuid.NewString,
		horizonDays: constants.DefaultHorizonDays,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type addOptions struct {
	force bool
}

// AddOption tunes Add, Update and Confirm
type AddOption func(*addOptions)

// ForceOverride lets the candidate win ties against equal-priority schedules.
// Higher-priority schedules still block it.
func ForceOverride() AddOption {
	return func(o *addOptions) { o.force = true }
}

func collectAddOptions(opts []AddOption) addOptions {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withTx runs fn atomically when the store supports it
func (m *Manager) withTx(fn func(storage.Store) error) error {
	if tx, ok := m.store.(storage.Transactor); ok {
		return tx.WithTx(fn)
	}
	return fn(m.store)
}

// notFound converts a storage miss into the public error kind
func notFound(id string, err error) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return &apperrors.NotFoundError{ID: id}
	}
	return err
}

// Add validates in, checks it against every confirmed schedule it would
// overlap and persists it together with the supersessions it causes.
// Nothing is written when it is rejected.
func (m *Manager) Add(in models.ScheduleInput, opts ...AddOption) (models.Schedule, error) {
	o := collectAddOptions(opts)

	s, err := models.NewSchedule(m.newID(), in, m.now())
	if err != nil {
		return models.Schedule{}, err
	}

	err = m.withTx(func(st storage.Store) error {
		return m.commit(st, s, o)
	})
	if err != nil {
		return models.Schedule{}, err
	}

	logger.Info("Schedule added", "id", s.ID, "title", s.Title, "type", s.Type, "date", s.Date)
	return s, nil
}

// Update applies patch to the schedule id and re-runs validation and the
// conflict check, ignoring the schedule's own prior version.
func (m *Manager) Update(id string, patch models.SchedulePatch, opts ...AddOption) (models.Schedule, error) {
	o := collectAddOptions(opts)

	var updated models.Schedule
	err := m.withTx(func(st storage.Store) error {
		prior, err := st.Get(id)
		if err != nil {
			return notFound(id, err)
		}

		updated, err = prior.Apply(patch, m.now())
		if err != nil {
			return err
		}

		if !updated.IsConfirmed() {
			return st.Save(updated)
		}
		return m.commit(st, updated, o)
	})
	if err != nil {
		return models.Schedule{}, err
	}

	logger.Info("Schedule updated", "id", updated.ID, "title", updated.Title, "date", updated.Date)
	return updated, nil
}

// Delete removes a definition and all of its exception records
func (m *Manager) Delete(id string) error {
	if err := m.store.Delete(id); err != nil {
		return notFound(id, err)
	}
	logger.Info("Schedule deleted", "id", id)
	return nil
}

// Get returns a schedule in any state
func (m *Manager) Get(id string) (models.Schedule, error) {
	s, err := m.store.Get(id)
	if err != nil {
		return models.Schedule{}, notFound(id, err)
	}
	return s, nil
}

// SchedulesForDate returns the confirmed schedules occurring on date,
// sorted by start time then title.
func (m *Manager) SchedulesForDate(date time.Time) ([]models.Schedule, error) {
	day := utils.DateOnly(date)
	candidates, err := m.store.ListByDateRange(day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for %s: %w", utils.FormatDate(day), err)
	}

	out := recurrence.ApplicableOn(candidates, day)
	recurrence.SortByStart(out)
	return out, nil
}

// commit resolves s against the store's current state and, if accepted,
// applies the supersessions and saves s. Callers run it inside withTx.
func (m *Manager) commit(st storage.Store, s models.Schedule, o addOptions) error {
	decision, err := m.resolve(st, s, o)
	if err != nil {
		if ce, ok := conflict.AsConflict(err); ok {
			logger.Warn("Schedule conflict", "title", s.Title, "date", ce.Date, "kind", ce.Kind, "conflicts_with", ce.Existing.ID)
		}
		return err
	}

	if err := m.apply(st, s, decision); err != nil {
		return err
	}
	if err := st.Save(s); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// resolve expands the candidate over the dates it must be checked on and
// hands the applicable confirmed schedules of each date to the resolver.
// A recurring candidate is checked over the horizon and, beyond it, on the
// date of every one-off schedule it would meet.
func (m *Manager) resolve(st storage.Store, s models.Schedule, o addOptions) (conflict.Decision, error) {
	dates, err := m.checkDates(s)
	if err != nil {
		return conflict.Decision{}, err
	}

	byDate := make(map[string][]models.Schedule, len(dates))
	if len(dates) > 0 {
		first, last := dates[0], dates[len(dates)-1]
		candidates, err := st.ListByDateRange(first, last)
		if err != nil {
			return conflict.Decision{}, fmt.Errorf("failed to load existing schedules: %w", err)
		}
		for _, d := range dates {
			byDate[utils.FormatDate(d)] = recurrence.ApplicableOn(candidates, d)
		}
	}

	if s.IsRecurring() {
		extra, err := m.oneOffDates(st, s)
		if err != nil {
			return conflict.Decision{}, err
		}
		for _, d := range extra {
			key := utils.FormatDate(d)
			if _, done := byDate[key]; done {
				continue
			}
			candidates, err := st.ListByDateRange(d, d)
			if err != nil {
				return conflict.Decision{}, fmt.Errorf("failed to load existing schedules: %w", err)
			}
			byDate[key] = recurrence.ApplicableOn(candidates, d)
		}
	}

	if len(byDate) == 0 {
		return conflict.Decision{}, nil
	}
	return conflict.ResolveSeries(s, byDate, conflict.Options{ForceTies: o.force})
}

// oneOffDates returns the dates of confirmed one-off schedules that fall on
// an occurrence of the recurring s and overlap it in time.
func (m *Manager) oneOffDates(st storage.Store, s models.Schedule) ([]time.Time, error) {
	all, err := st.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load existing schedules: %w", err)
	}

	var out []time.Time
	for _, e := range all {
		if e.ID == s.ID || e.IsRecurring() || !e.IsConfirmed() || !e.Overlaps(s) {
			continue
		}
		d, err := utils.ParseDate(e.Date)
		if err != nil {
			continue
		}
		if s.AppliesOn(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// checkDates lists the dates a candidate occupies: its own date when it does
// not recur, otherwise its occurrences from max(anchor, today) over the
// horizon. Recurring schedules are only compared with each other there.
func (m *Manager) checkDates(s models.Schedule) ([]time.Time, error) {
	anchor, err := utils.ParseDate(s.Date)
	if err != nil {
		return nil, apperrors.Invalid("date", "expected YYYY-MM-DD, got %q", s.Date)
	}

	if !s.IsRecurring() {
		if s.IsSuppressedOn(s.Date) {
			return nil, nil
		}
		return []time.Time{anchor}, nil
	}

	now := m.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := anchor
	if today.After(from) {
		from = today
	}
	to := from.AddDate(0, 0, m.horizonDays-1)

	return recurrence.Dates(s, from, to), nil
}

// apply carries out a decision: non-recurring losers are deleted, recurring
// ones get an exception record for the contested date.
func (m *Manager) apply(st storage.Store, winner models.Schedule, d conflict.Decision) error {
	deleted := make(map[string]bool)
	for _, sup := range d.Supersessions {
		loser := sup.Schedule
		switch sup.Action {
		case conflict.ActionDelete:
			if deleted[loser.ID] {
				continue
			}
			if err := st.Delete(loser.ID); err != nil {
				return fmt.Errorf("failed to delete superseded schedule %s: %w", loser.ID, err)
			}
			deleted[loser.ID] = true
		case conflict.ActionException:
			ex := models.Exception{
				ScheduleID: loser.ID,
				Date:       sup.Date,
				Reason:     "superseded by " + winner.ID,
				CreatedAt:  m.now(),
			}
			if err := st.AddException(ex); err != nil {
				return fmt.Errorf("failed to suppress %s on %s: %w", loser.ID, sup.Date, err)
			}
		}
		logger.Info("Schedule superseded", "id", loser.ID, "title", loser.Title, "date", sup.Date, "action", sup.Action, "by", winner.ID)
	}
	return nil
}
