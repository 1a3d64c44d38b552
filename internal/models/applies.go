package models

import (
	"time"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/utils"
)

// AppliesOn reports whether the schedule has an occurrence on the calendar
// date of date. Suppressed occurrences (exception records) never apply.
func (s Schedule) AppliesOn(date time.Time) bool {
	day := date.Format(constants.DateFormat)

	if s.IsSuppressedOn(day) {
		return false
	}

	if !s.IsRecurring() {
		return day == s.Date
	}

	// YYYY-MM-DD strings order the same way the dates do
	if day < s.Date {
		return false
	}
	if s.Recurrence.EndDate != "" && day > s.Recurrence.EndDate {
		return false
	}

	anchor, err := utils.ParseDate(s.Date)
	if err != nil {
		return false
	}

	wd := date.Weekday()
	switch s.Recurrence.Pattern {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return wd == anchor.Weekday()
	case RecurrenceWeekdays:
		return wd >= time.Monday && wd <= time.Friday
	case RecurrenceWeekends:
		return wd == time.Saturday || wd == time.Sunday
	case RecurrenceMonthly:
		// Months without the anchor's day (e.g. the 31st) are skipped
		return date.Day() == anchor.Day()
	case RecurrenceCustom:
		for _, d := range s.Recurrence.Weekdays {
			if d == wd {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// StartMinutes returns the start time as minutes from midnight, or -1 if unparsable
func (s Schedule) StartMinutes() int {
	m, err := utils.ParseTimeToMinutes(s.StartTime)
	if err != nil {
		return -1
	}
	return m
}

// EndMinutes returns the end time as minutes from midnight, or -1 if unparsable
func (s Schedule) EndMinutes() int {
	m, err := utils.ParseTimeToMinutes(s.EndTime)
	if err != nil {
		return -1
	}
	return m
}

// Overlaps reports whether the half-open [start, end) intervals of s and
// other intersect. Dates are not compared.
func (s Schedule) Overlaps(other Schedule) bool {
	s1, e1 := s.StartMinutes(), s.EndMinutes()
	s2, e2 := other.StartMinutes(), other.EndMinutes()
	if s1 < 0 || e1 < 0 || s2 < 0 || e2 < 0 {
		return false
	}
	return s1 < e2 && s2 < e1
}

// LastDate returns the last date the schedule can apply on, or "" when unbounded
func (s Schedule) LastDate() string {
	if !s.IsRecurring() {
		return s.Date
	}
	return s.Recurrence.EndDate
}
