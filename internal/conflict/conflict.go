// Package conflict decides what happens when a candidate schedule overlaps
// existing confirmed schedules on a date. It never touches storage; the
// caller applies the returned Decision.
package conflict

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/models"
)

// Kind tells a hard rejection apart from one a user can override
type Kind string

const (
	// KindBlocking means an overlapping schedule outranks the candidate
	KindBlocking Kind = "blocking"
	// KindAmbiguous means the overlap is between equal priorities
	KindAmbiguous Kind = "ambiguous"
)

// Action is what must happen to a superseded schedule on one date
type Action string

const (
	// ActionDelete removes a non-recurring schedule outright
	ActionDelete Action = "delete"
	// ActionException suppresses a single occurrence of a recurring schedule
	ActionException Action = "exception"
)

// Options tune a resolution. ForceTies lets a candidate supersede
// equal-priority schedules; it never overrides a higher priority.
type Options struct {
	ForceTies bool
}

// Supersession records one schedule losing its slot on Date to the candidate
type Supersession struct {
	Schedule models.Schedule
	Date     string // YYYY-MM-DD format
	Action   Action
}

func (s Supersession) String() string {
	return fmt.Sprintf("%q (%s-%s) on %s: %s", s.Schedule.Title, s.Schedule.StartTime, s.Schedule.EndTime, s.Date, s.Action)
}

// Decision is the outcome of an accepted candidate
type Decision struct {
	Supersessions []Supersession
}

// HasSupersessions returns true if accepting the candidate displaces anything
func (d Decision) HasSupersessions() bool {
	return len(d.Supersessions) > 0
}

// FormatReport returns a human-readable list of displaced schedules
func (d Decision) FormatReport() string {
	if !d.HasSupersessions() {
		return "No schedules displaced."
	}

	var b strings.Builder
	b.WriteString("Displaced schedules:\n")
	for _, s := range d.Supersessions {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	return b.String()
}

// ConflictError rejects a candidate. Existing is the first rejecting
// schedule in start-time order among those of Kind; Others holds every
// other schedule that also rejected it on Date.
type ConflictError struct {
	Kind      Kind
	Candidate models.Schedule
	Existing  models.Schedule
	Date      string
	Others    []models.Schedule
}

func (e *ConflictError) Error() string {
	reason := "has higher priority"
	if e.Kind == KindAmbiguous {
		reason = "has the same priority; confirmation required"
	}
	msg := fmt.Sprintf("schedule conflict on %s: %q (%s-%s, %s) overlaps %q (%s-%s, %s) which %s",
		e.Date,
		e.Candidate.Title, e.Candidate.StartTime, e.Candidate.EndTime, e.Candidate.Priority,
		e.Existing.Title, e.Existing.StartTime, e.Existing.EndTime, e.Existing.Priority,
		reason)
	if n := len(e.Others); n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func (e *ConflictError) Is(target error) bool {
	return target == apperrors.ErrConflict
}

// Ambiguous reports whether the rejection could be overridden by force
func (e *ConflictError) Ambiguous() bool {
	return e.Kind == KindAmbiguous
}

// AsConflict unwraps err into a *ConflictError if it holds one
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Resolve evaluates candidate against the confirmed schedules that apply
// on date. Each overlap is judged on its own, but any rejection fails the
// whole decision. existing entries sharing the candidate's ID are ignored.
func Resolve(candidate models.Schedule, existing []models.Schedule, date string, opts Options) (Decision, error) {
	overlapping := make([]models.Schedule, 0)
	for _, e := range existing {
		if e.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(e) {
			overlapping = append(overlapping, e)
		}
	}

	sort.SliceStable(overlapping, func(i, j int) bool {
		if a, b := overlapping[i].StartMinutes(), overlapping[j].StartMinutes(); a != b {
			return a < b
		}
		return overlapping[i].ID < overlapping[j].ID
	})

	var (
		decision  Decision
		blocking  []models.Schedule
		ambiguous []models.Schedule
	)

	for _, e := range overlapping {
		switch {
		case candidate.Priority > e.Priority:
			decision.Supersessions = append(decision.Supersessions, supersede(e, date))
		case candidate.Priority < e.Priority:
			blocking = append(blocking, e)
		case opts.ForceTies:
			decision.Supersessions = append(decision.Supersessions, supersede(e, date))
		default:
			ambiguous = append(ambiguous, e)
		}
	}

	switch {
	case len(blocking) > 0:
		return Decision{}, newConflict(KindBlocking, candidate, date, blocking, ambiguous)
	case len(ambiguous) > 0:
		return Decision{}, newConflict(KindAmbiguous, candidate, date, ambiguous, nil)
	}

	return decision, nil
}

// ResolveSeries runs Resolve for every date of a candidate's expansion.
// Dates are visited in order and the first rejection fails the series.
func ResolveSeries(candidate models.Schedule, existingByDate map[string][]models.Schedule, opts Options) (Decision, error) {
	dates := make([]string, 0, len(existingByDate))
	for d := range existingByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out Decision
	for _, d := range dates {
		decision, err := Resolve(candidate, existingByDate[d], d, opts)
		if err != nil {
			return Decision{}, err
		}
		out.Supersessions = append(out.Supersessions, decision.Supersessions...)
	}
	return out, nil
}

func supersede(e models.Schedule, date string) Supersession {
	action := ActionDelete
	if e.IsRecurring() {
		action = ActionException
	}
	return Supersession{Schedule: e, Date: date, Action: action}
}

func newConflict(kind Kind, candidate models.Schedule, date string, primary, rest []models.Schedule) *ConflictError {
	others := make([]models.Schedule, 0, len(primary)-1+len(rest))
	others = append(others, primary[1:]...)
	others = append(others, rest...)
	return &ConflictError{
		Kind:      kind,
		Candidate: candidate,
		Existing:  primary[0],
		Date:      date,
		Others:    others,
	}
}
