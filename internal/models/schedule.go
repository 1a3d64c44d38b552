package models

import (
	"fmt"
	"time"
)

type ScheduleType string

const (
	ScheduleTypeRecurring   ScheduleType = "recurring"
	ScheduleTypeAppointment ScheduleType = "appointment"
	ScheduleTypeImpromptu   ScheduleType = "impromptu"
)

// Priority ranks schedules against each other; higher wins a conflict.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Valid reports whether p is one of the four defined levels
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// ParsePriority accepts a level name or its number
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low", "1":
		return PriorityLow, nil
	case "medium", "2":
		return PriorityMedium, nil
	case "high", "3":
		return PriorityHigh, nil
	case "critical", "4":
		return PriorityCritical, nil
	}
	return 0, fmt.Errorf("invalid priority: %s", s)
}

type RecurrencePattern string

const (
	RecurrenceNone     RecurrencePattern = "none"
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceWeekdays RecurrencePattern = "weekdays"
	RecurrenceWeekends RecurrencePattern = "weekends"
	RecurrenceMonthly  RecurrencePattern = "monthly"
	RecurrenceCustom   RecurrencePattern = "custom"
)

type ConfirmationState string

const (
	StateConfirmed ConfirmationState = "confirmed"
	StatePending   ConfirmationState = "pending"
)

type Recurrence struct {
	Pattern  RecurrencePattern `json:"pattern"`
	Weekdays []time.Weekday    `json:"weekdays,omitempty"` // custom pattern only
	EndDate  string            `json:"end_date,omitempty"` // YYYY-MM-DD format, inclusive
}

// IsRecurring reports whether the pattern expands beyond the anchor date
func (r Recurrence) IsRecurring() bool {
	return r.Pattern != "" && r.Pattern != RecurrenceNone
}

type Schedule struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Type             ScheduleType      `json:"type"`
	Priority         Priority          `json:"priority"`
	PriorityExplicit bool              `json:"priority_explicit,omitempty"`
	Date             string            `json:"date"`       // YYYY-MM-DD format
	StartTime        string            `json:"start_time"` // HH:MM format
	EndTime          string            `json:"end_time"`   // HH:MM format
	Recurrence       Recurrence        `json:"recurrence"`
	Location         string            `json:"location,omitempty"`
	State            ConfirmationState `json:"state"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Metadata         map[string]string `json:"metadata,omitempty"`

	// Exceptions holds the dates on which this definition is suppressed.
	// Stores fill it from exception records; Save never writes it.
	Exceptions []string `json:"-"`
}

// Exception suppresses one occurrence of a schedule without touching its definition.
type Exception struct {
	ScheduleID string    `json:"schedule_id"`
	Date       string    `json:"date"` // YYYY-MM-DD format
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsRecurring reports whether the schedule repeats
func (s Schedule) IsRecurring() bool {
	return s.Recurrence.IsRecurring()
}

// IsConfirmed reports whether the schedule takes part in queries and conflict checks
func (s Schedule) IsConfirmed() bool {
	return s.State == StateConfirmed
}

// IsSuppressedOn reports whether an exception record hides the occurrence on date
func (s Schedule) IsSuppressedOn(date string) bool {
	for _, d := range s.Exceptions {
		if d == date {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or maps with s
func (s Schedule) Clone() Schedule {
	c := s
	if s.Recurrence.Weekdays != nil {
		c.Recurrence.Weekdays = append([]time.Weekday(nil), s.Recurrence.Weekdays...)
	}
	if s.Exceptions != nil {
		c.Exceptions = append([]string(nil), s.Exceptions...)
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
