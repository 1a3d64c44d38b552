// Package validation audits stored schedules for problems the manager
// would never write itself: malformed definitions, overlapping confirmed
// schedules and leftovers such as stale exceptions or expired requests.
package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/recurrence"
	"github.com/julianstephens/agenda/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictInvalidDefinition ConflictType = "invalid_definition"
	ConflictOverlapping       ConflictType = "overlapping_schedules"
	ConflictStaleException    ConflictType = "stale_exception"
	ConflictExpiredPending    ConflictType = "expired_pending"
)

// Conflict is one finding of an audit
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	ScheduleIDs []string // IDs of the schedules involved
}

type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns how many conflicts of type t were found
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	report := "Conflicts detected:\n"
	for _, c := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", c.Description)
	}
	return report
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateSchedules audits schedules. Overlaps are searched for on the
// dates in [from, to]; pending requests dated before from count as expired.
func (v *Validator) ValidateSchedules(schedules []models.Schedule, from, to time.Time) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	today := utils.FormatDate(from)

	var valid []models.Schedule
	for _, s := range schedules {
		if err := s.Validate(); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidDefinition,
				Description: fmt.Sprintf("Schedule %q (%s) is invalid: %v", s.Title, s.ID, err),
				ScheduleIDs: []string{s.ID},
			})
			continue
		}
		valid = append(valid, s)

		if !s.IsConfirmed() && s.LastDate() != "" && s.LastDate() < today {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictExpiredPending,
				Description: fmt.Sprintf("Pending schedule %q (%s) was for %s and can no longer happen", s.Title, s.ID, s.Date),
				Date:        s.Date,
				ScheduleIDs: []string{s.ID},
			})
		}

		result.Conflicts = append(result.Conflicts, staleExceptions(s)...)
	}

	result.Conflicts = append(result.Conflicts, overlaps(valid, from, to)...)
	return result
}

// staleExceptions reports exception dates on which s would not apply anyway
func staleExceptions(s models.Schedule) []Conflict {
	var out []Conflict
	bare := s.Clone()
	bare.Exceptions = nil
	for _, date := range s.Exceptions {
		d, err := utils.ParseDate(date)
		if err == nil && bare.AppliesOn(d) {
			continue
		}
		out = append(out, Conflict{
			Type:        ConflictStaleException,
			Description: fmt.Sprintf("Schedule %q (%s) has an exception on %s where it never occurs", s.Title, s.ID, date),
			Date:        date,
			ScheduleIDs: []string{s.ID},
		})
	}
	return out
}

func overlaps(schedules []models.Schedule, from, to time.Time) []Conflict {
	byDate := recurrence.ByDate(schedules, from, to)

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []Conflict
	for _, date := range dates {
		day := byDate[date]
		for i := range day {
			for j := i + 1; j < len(day); j++ {
				a, b := day[i], day[j]
				if !a.Overlaps(b) {
					continue
				}
				out = append(out, Conflict{
					Type: ConflictOverlapping,
					Description: fmt.Sprintf("%s: %q (%s-%s) overlaps %q (%s-%s)",
						date, a.Title, a.StartTime, a.EndTime, b.Title, b.StartTime, b.EndTime),
					Date:        date,
					ScheduleIDs: []string{a.ID, b.ID},
				})
			}
		}
	}
	return out
}
