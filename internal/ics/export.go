// Package ics renders stored schedules as an iCalendar feed so they can be
// viewed in ordinary calendar applications.
package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/recurrence"
	"github.com/julianstephens/agenda/internal/utils"
)

const utcStamp = "20060102T150405Z"

// Export writes schedules as one VCALENDAR. Wall-clock times are read in
// loc and emitted in UTC. Recurring schedules carry an RRULE plus one
// EXDATE per suppressed date; pending schedules are TENTATIVE.
func Export(w io.Writer, schedules []models.Schedule, loc *time.Location, stamp time.Time) error {
	cal := ical.NewCalendarFor(constants.AppName)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(constants.AppName)
	cal.SetXWRTimezone(loc.String())

	for _, s := range schedules {
		if err := addEvent(cal, s, loc, stamp); err != nil {
			return fmt.Errorf("failed to export schedule %s: %w", s.ID, err)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	logger.Debug("Calendar exported", "events", len(schedules))
	return nil
}

// UID is the event identifier used for s
func UID(s models.Schedule) string {
	return s.ID + "@" + constants.AppName
}

func addEvent(cal *ical.Calendar, s models.Schedule, loc *time.Location, stamp time.Time) error {
	start, err := utils.CombineDateAndTime(s.Date, s.StartTime, loc)
	if err != nil {
		return err
	}
	end, err := utils.CombineDateAndTime(s.Date, s.EndTime, loc)
	if err != nil {
		return err
	}

	ev := cal.AddEvent(UID(s))
	ev.SetDtStampTime(stamp)
	ev.SetCreatedTime(s.CreatedAt)
	ev.SetModifiedAt(s.UpdatedAt)
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(s.Title)
	if s.Description != "" {
		ev.SetDescription(s.Description)
	}
	if s.Location != "" {
		ev.SetLocation(s.Location)
	}
	ev.SetPriority(icalPriority(s.Priority))
	ev.AddCategory(string(s.Type))

	if s.IsConfirmed() {
		ev.SetStatus(ical.ObjectStatusConfirmed)
	} else {
		ev.SetStatus(ical.ObjectStatusTentative)
	}

	if !s.IsRecurring() {
		return nil
	}

	rule, err := rruleValue(s, loc)
	if err != nil {
		return err
	}
	ev.AddRrule(rule)

	for _, d := range s.Exceptions {
		at, err := utils.CombineDateAndTime(d, s.StartTime, loc)
		if err != nil {
			return fmt.Errorf("invalid exception date %q: %w", d, err)
		}
		ev.AddExdate(at.UTC().Format(utcStamp))
	}
	return nil
}

// rruleValue renders the rule with UNTIL at the end of the last local day,
// so the final occurrence survives the shift to UTC.
func rruleValue(s models.Schedule, loc *time.Location) (string, error) {
	r, err := recurrence.RRule(s)
	if err != nil {
		return "", err
	}
	opt := r.OrigOptions
	if s.Recurrence.EndDate != "" {
		last, err := utils.ParseDateInLocation(s.Recurrence.EndDate, loc)
		if err != nil {
			return "", err
		}
		opt.Until = last.AddDate(0, 0, 1).Add(-time.Second)
	}
	return opt.RRuleString(), nil
}

// icalPriority maps to RFC 5545 PRIORITY, where 1 is highest and 9 lowest
func icalPriority(p models.Priority) int {
	switch p {
	case models.PriorityCritical:
		return 1
	case models.PriorityHigh:
		return 3
	case models.PriorityMedium:
		return 5
	default:
		return 9
	}
}
