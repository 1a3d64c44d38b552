// Package recurrence expands schedule definitions into calendar dates.
// Everything here is stateless; exceptions are read from the schedules
// themselves.
package recurrence

import (
	"sort"
	"time"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

// ApplicableOn returns the confirmed schedules from all that occur on date,
// in the order they were given.
func ApplicableOn(all []models.Schedule, date time.Time) []models.Schedule {
	out := make([]models.Schedule, 0)
	for _, s := range all {
		if !s.IsConfirmed() {
			continue
		}
		if s.AppliesOn(date) {
			out = append(out, s)
		}
	}
	return out
}

// Dates returns every calendar date in [from, to] on which s applies,
// at midnight in from's location. Pending schedules are not filtered here.
func Dates(s models.Schedule, from, to time.Time) []time.Time {
	start := utils.DateOnly(from)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, start.Location())
	if end.Before(start) {
		return nil
	}

	// Clamp the walk to the definition's own bounds
	if anchor, err := utils.ParseDateInLocation(s.Date, start.Location()); err == nil && anchor.After(start) {
		start = anchor
	}
	if last := s.LastDate(); last != "" {
		if bound, err := utils.ParseDateInLocation(last, start.Location()); err == nil && bound.Before(end) {
			end = bound
		}
	}

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.AppliesOn(d) {
			out = append(out, d)
		}
	}
	return out
}

// ByDate groups the confirmed occurrences of all over [from, to] by date
// (YYYY-MM-DD). Each day's schedules are sorted by start time, then title.
func ByDate(all []models.Schedule, from, to time.Time) map[string][]models.Schedule {
	out := make(map[string][]models.Schedule)
	for _, s := range all {
		if !s.IsConfirmed() {
			continue
		}
		for _, d := range Dates(s, from, to) {
			key := utils.FormatDate(d)
			out[key] = append(out[key], s)
		}
	}
	for _, day := range out {
		SortByStart(day)
	}
	return out
}

// SortByStart orders schedules by start time, then title, then id so that
// every listing is deterministic.
func SortByStart(list []models.Schedule) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if sa, sb := a.StartMinutes(), b.StartMinutes(); sa != sb {
			return sa < sb
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}
