package models

import (
	"strings"
	"time"

	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/utils"
)

// ScheduleInput carries the caller-supplied fields of a new schedule.
// A nil Priority means "derive from Type".
type ScheduleInput struct {
	Title       string
	Description string
	Type        ScheduleType
	Priority    *Priority
	Date        string // YYYY-MM-DD format
	StartTime   string // HH:MM format
	EndTime     string // HH:MM format
	Recurrence  Recurrence
	Location    string
	Metadata    map[string]string
}

// SchedulePatch describes a partial update; nil fields are left untouched.
type SchedulePatch struct {
	Title       *string
	Description *string
	Type        *ScheduleType
	Priority    *Priority
	Date        *string
	StartTime   *string
	EndTime     *string
	Recurrence  *Recurrence
	Location    *string
	Metadata    map[string]string
}

// PriorityFor returns the priority a schedule of type t gets. An explicit
// override wins over the type default.
func PriorityFor(t ScheduleType, override *Priority) (Priority, error) {
	if override != nil {
		if !override.Valid() {
			return 0, apperrors.Invalid("priority", "must be between %d and %d, got %d", PriorityLow, PriorityCritical, int(*override))
		}
		return *override, nil
	}

	switch t {
	case ScheduleTypeRecurring:
		return PriorityCritical, nil
	case ScheduleTypeAppointment:
		return PriorityMedium, nil
	case ScheduleTypeImpromptu:
		return PriorityLow, nil
	default:
		return 0, apperrors.Invalid("type", "unknown schedule type %q", t)
	}
}

// NewSchedule validates in and builds a confirmed Schedule from it.
func NewSchedule(id string, in ScheduleInput, now time.Time) (Schedule, error) {
	priority, err := PriorityFor(in.Type, in.Priority)
	if err != nil {
		return Schedule{}, err
	}

	s := Schedule{
		ID:               id,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Type:             in.Type,
		Priority:         priority,
		PriorityExplicit: in.Priority != nil,
		Date:             in.Date,
		StartTime:        canonicalClock(in.StartTime),
		EndTime:          canonicalClock(in.EndTime),
		Recurrence:       normalizeRecurrence(in.Recurrence),
		Location:         strings.TrimSpace(in.Location),
		State:            StateConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
		Metadata:         in.Metadata,
	}

	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Apply returns a copy of s with patch applied and re-validated. A type
// change re-derives the priority unless it was set explicitly.
func (s Schedule) Apply(patch SchedulePatch, now time.Time) (Schedule, error) {
	out := s.Clone()

	if patch.Title != nil {
		out.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Type != nil {
		out.Type = *patch.Type
	}
	if patch.Date != nil {
		out.Date = *patch.Date
	}
	if patch.StartTime != nil {
		out.StartTime = canonicalClock(*patch.StartTime)
	}
	if patch.EndTime != nil {
		out.EndTime = canonicalClock(*patch.EndTime)
	}
	if patch.Recurrence != nil {
		out.Recurrence = normalizeRecurrence(*patch.Recurrence)
	}
	if patch.Location != nil {
		out.Location = strings.TrimSpace(*patch.Location)
	}
	for k, v := range patch.Metadata {
		if out.Metadata == nil {
			out.Metadata = make(map[string]string)
		}
		if v == "" {
			delete(out.Metadata, k)
			continue
		}
		out.Metadata[k] = v
	}

	switch {
	case patch.Priority != nil:
		p, err := PriorityFor(out.Type, patch.Priority)
		if err != nil {
			return Schedule{}, err
		}
		out.Priority = p
		out.PriorityExplicit = true
	case !out.PriorityExplicit:
		p, err := PriorityFor(out.Type, nil)
		if err != nil {
			return Schedule{}, err
		}
		out.Priority = p
	}

	out.UpdatedAt = now
	if err := out.Validate(); err != nil {
		return Schedule{}, err
	}
	return out, nil
}

// Validate checks time ordering and the type/pattern combination.
func (s Schedule) Validate() error {
	if s.Title == "" {
		return apperrors.Invalid("title", "cannot be empty")
	}

	switch s.Type {
	case ScheduleTypeRecurring, ScheduleTypeAppointment, ScheduleTypeImpromptu:
	default:
		return apperrors.Invalid("type", "unknown schedule type %q", s.Type)
	}

	if !s.Priority.Valid() {
		return apperrors.Invalid("priority", "must be between %d and %d, got %d", PriorityLow, PriorityCritical, int(s.Priority))
	}

	anchor, err := utils.ParseDate(s.Date)
	if err != nil {
		return apperrors.Invalid("date", "expected YYYY-MM-DD, got %q", s.Date)
	}

	startMin, err := utils.ParseTimeToMinutes(s.StartTime)
	if err != nil {
		return apperrors.Invalid("start_time", "expected HH:MM, got %q", s.StartTime)
	}
	endMin, err := utils.ParseTimeToMinutes(s.EndTime)
	if err != nil {
		return apperrors.Invalid("end_time", "expected HH:MM, got %q", s.EndTime)
	}
	if endMin <= startMin {
		return apperrors.Invalid("end_time", "end time (%s) must be after start time (%s)", s.EndTime, s.StartTime)
	}

	switch s.State {
	case StateConfirmed, StatePending:
	default:
		return apperrors.Invalid("state", "unknown confirmation state %q", s.State)
	}

	return s.validateRecurrence(anchor)
}

func (s Schedule) validateRecurrence(anchor time.Time) error {
	r := s.Recurrence

	switch r.Pattern {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceWeekdays,
		RecurrenceWeekends, RecurrenceMonthly, RecurrenceCustom:
	default:
		return apperrors.Invalid("recurrence", "unknown pattern %q", r.Pattern)
	}

	if s.Type == ScheduleTypeRecurring && !r.IsRecurring() {
		return apperrors.Invalid("recurrence", "recurring schedules need a recurrence pattern")
	}
	if s.Type != ScheduleTypeRecurring && r.IsRecurring() {
		return apperrors.Invalid("recurrence", "%s schedules cannot have a recurrence pattern (%s)", s.Type, r.Pattern)
	}

	if r.Pattern == RecurrenceCustom {
		if len(r.Weekdays) == 0 {
			return apperrors.Invalid("recurrence", "custom pattern needs at least one weekday")
		}
		for _, wd := range r.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return apperrors.Invalid("recurrence", "invalid weekday %d", int(wd))
			}
		}
	} else if len(r.Weekdays) > 0 {
		return apperrors.Invalid("recurrence", "weekdays are only allowed for the custom pattern")
	}

	if r.EndDate != "" {
		if !r.IsRecurring() {
			return apperrors.Invalid("recurrence_end_date", "only recurring schedules can have an end date")
		}
		end, err := utils.ParseDate(r.EndDate)
		if err != nil {
			return apperrors.Invalid("recurrence_end_date", "expected YYYY-MM-DD, got %q", r.EndDate)
		}
		if end.Before(anchor) {
			return apperrors.Invalid("recurrence_end_date", "%s is before the anchor date %s", r.EndDate, s.Date)
		}
	}

	return nil
}

// canonicalClock zero-pads clock times so they order as strings. Unparsable
// values are kept for Validate to report.
func canonicalClock(clock string) string {
	out, err := utils.NormalizeClock(strings.TrimSpace(clock))
	if err != nil {
		return clock
	}
	return out
}

func normalizeRecurrence(r Recurrence) Recurrence {
	if r.Pattern == "" {
		r.Pattern = RecurrenceNone
	}
	return r
}
