package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

var weekdayToRRule = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// RRule renders the recurrence of s as an RFC 5545 rule anchored at the
// start of its anchor date (UTC). Non-recurring schedules have no rule.
func RRule(s models.Schedule) (*rrule.RRule, error) {
	if !s.IsRecurring() {
		return nil, fmt.Errorf("schedule %s does not recur", s.ID)
	}

	dtstart, err := utils.ParseDate(s.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid anchor date %q: %w", s.Date, err)
	}

	opt := rrule.ROption{Dtstart: dtstart}
	if s.Recurrence.EndDate != "" {
		until, err := utils.ParseDate(s.Recurrence.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", s.Recurrence.EndDate, err)
		}
		opt.Until = until
	}

	switch s.Recurrence.Pattern {
	case models.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{weekdayToRRule[dtstart.Weekday()]}
	case models.RecurrenceWeekdays:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case models.RecurrenceWeekends:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.SA, rrule.SU}
	case models.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{dtstart.Day()}
	case models.RecurrenceCustom:
		opt.Freq = rrule.WEEKLY
		for _, wd := range s.Recurrence.Weekdays {
			opt.Byweekday = append(opt.Byweekday, weekdayToRRule[wd])
		}
	default:
		return nil, fmt.Errorf("unsupported recurrence pattern %q", s.Recurrence.Pattern)
	}

	return rrule.NewRRule(opt)
}

// RRuleString returns the RRULE property value (without DTSTART) for s.
func RRuleString(s models.Schedule) (string, error) {
	r, err := RRule(s)
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}

// Occurrences expands s over [from, to] through an rrule set, with the
// schedule's exceptions applied as EXDATEs. Returned times are midnight UTC
// of each occurrence date. Non-recurring schedules yield their anchor date
// when it is in range and not suppressed.
func Occurrences(s models.Schedule, from, to time.Time) ([]time.Time, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	if !s.IsRecurring() {
		d, err := utils.ParseDate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid anchor date %q: %w", s.Date, err)
		}
		if d.Before(start) || d.After(end) || s.IsSuppressedOn(s.Date) {
			return nil, nil
		}
		return []time.Time{d}, nil
	}

	r, err := RRule(s)
	if err != nil {
		return nil, err
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range s.Exceptions {
		d, err := utils.ParseDate(ex)
		if err != nil {
			continue
		}
		set.ExDate(d)
	}

	return set.Between(start, end, true), nil
}
