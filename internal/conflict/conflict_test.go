package conflict

import (
	stderrors "errors"
	"strings"
	"testing"

	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/models"
)

func sched(id string, prio models.Priority, start, end string, recurring bool) models.Schedule {
	s := models.Schedule{
		ID:         id,
		Title:      "Schedule " + id,
		Type:       models.ScheduleTypeAppointment,
		Priority:   prio,
		Date:       "2024-01-01",
		StartTime:  start,
		EndTime:    end,
		Recurrence: models.Recurrence{Pattern: models.RecurrenceNone},
		State:      models.StateConfirmed,
	}
	if recurring {
		s.Type = models.ScheduleTypeRecurring
		s.Recurrence.Pattern = models.RecurrenceDaily
	}
	return s
}

func TestResolve_NoOverlap(t *testing.T) {
	candidate := sched("c", models.PriorityLow, "10:00", "11:00", false)
	existing := []models.Schedule{
		sched("a", models.PriorityCritical, "09:00", "10:00", true),
		sched("b", models.PriorityCritical, "11:00", "12:00", false),
	}

	d, err := Resolve(candidate, existing, "2024-01-03", Options{})
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if d.HasSupersessions() {
		t.Errorf("touching intervals must not supersede: %v", d.Supersessions)
	}
}

func TestResolve_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		candidate  models.Priority
		existing   models.Schedule
		opts       Options
		wantKind   Kind
		wantAction Action
	}{
		{
			name:       "higher supersedes non-recurring by deletion",
			candidate:  models.PriorityHigh,
			existing:   sched("e", models.PriorityMedium, "10:30", "11:30", false),
			wantAction: ActionDelete,
		},
		{
			name:       "higher supersedes recurring by exception",
			candidate:  models.PriorityCritical,
			existing:   sched("e", models.PriorityHigh, "10:30", "11:30", true),
			wantAction: ActionException,
		},
		{
			name:      "lower is blocked",
			candidate: models.PriorityLow,
			existing:  sched("e", models.PriorityMedium, "10:30", "11:30", false),
			wantKind:  KindBlocking,
		},
		{
			name:      "lower is blocked even when forced",
			candidate: models.PriorityLow,
			existing:  sched("e", models.PriorityMedium, "10:30", "11:30", false),
			opts:      Options{ForceTies: true},
			wantKind:  KindBlocking,
		},
		{
			name:      "tie is ambiguous",
			candidate: models.PriorityMedium,
			existing:  sched("e", models.PriorityMedium, "10:30", "11:30", false),
			wantKind:  KindAmbiguous,
		},
		{
			name:       "forced tie supersedes",
			candidate:  models.PriorityMedium,
			existing:   sched("e", models.PriorityMedium, "10:30", "11:30", true),
			opts:       Options{ForceTies: true},
			wantAction: ActionException,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := sched("c", tt.candidate, "10:00", "11:00", false)
			d, err := Resolve(candidate, []models.Schedule{tt.existing}, "2024-01-03", tt.opts)

			if tt.wantKind != "" {
				ce, ok := AsConflict(err)
				if !ok {
					t.Fatalf("Resolve() error = %v, want *ConflictError", err)
				}
				if ce.Kind != tt.wantKind {
					t.Errorf("Kind = %s, want %s", ce.Kind, tt.wantKind)
				}
				if !stderrors.Is(err, apperrors.ErrConflict) {
					t.Error("ConflictError must match ErrConflict")
				}
				if ce.Existing.ID != "e" || ce.Date != "2024-01-03" {
					t.Errorf("ConflictError = %+v", ce)
				}
				return
			}

			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if len(d.Supersessions) != 1 {
				t.Fatalf("got %d supersessions, want 1", len(d.Supersessions))
			}
			got := d.Supersessions[0]
			if got.Action != tt.wantAction || got.Schedule.ID != "e" || got.Date != "2024-01-03" {
				t.Errorf("Supersession = %+v", got)
			}
		})
	}
}

func TestResolve_AllOrNothing(t *testing.T) {
	candidate := sched("c", models.PriorityHigh, "09:00", "12:00", false)
	existing := []models.Schedule{
		sched("low", models.PriorityLow, "09:00", "09:30", false),
		sched("crit2", models.PriorityCritical, "11:00", "11:30", true),
		sched("crit1", models.PriorityCritical, "10:00", "10:30", true),
		sched("tie", models.PriorityHigh, "09:30", "10:00", false),
	}

	_, err := Resolve(candidate, existing, "2024-01-03", Options{})
	ce, ok := AsConflict(err)
	if !ok {
		t.Fatalf("Resolve() error = %v, want conflict", err)
	}
	if ce.Kind != KindBlocking {
		t.Errorf("Kind = %s, want blocking to dominate", ce.Kind)
	}
	if ce.Existing.ID != "crit1" {
		t.Errorf("Existing = %s, want the earliest blocking schedule crit1", ce.Existing.ID)
	}
	ids := []string{}
	for _, o := range ce.Others {
		ids = append(ids, o.ID)
	}
	if strings.Join(ids, ",") != "crit2,tie" {
		t.Errorf("Others = %v, want [crit2 tie]", ids)
	}
}

func TestResolve_IgnoresOwnID(t *testing.T) {
	candidate := sched("same", models.PriorityLow, "10:00", "11:00", false)
	prior := sched("same", models.PriorityCritical, "10:00", "11:00", false)

	if _, err := Resolve(candidate, []models.Schedule{prior}, "2024-01-03", Options{}); err != nil {
		t.Errorf("a schedule must not conflict with its prior version: %v", err)
	}
}

func TestResolveSeries(t *testing.T) {
	candidate := sched("c", models.PriorityCritical, "09:00", "10:00", true)

	byDate := map[string][]models.Schedule{
		"2024-01-02": {sched("x", models.PriorityMedium, "09:30", "10:30", false)},
		"2024-01-01": {sched("y", models.PriorityHigh, "08:30", "09:30", true)},
		"2024-01-03": nil,
	}

	d, err := ResolveSeries(candidate, byDate, Options{})
	if err != nil {
		t.Fatalf("ResolveSeries() error: %v", err)
	}
	if len(d.Supersessions) != 2 {
		t.Fatalf("got %d supersessions, want 2", len(d.Supersessions))
	}
	if d.Supersessions[0].Date != "2024-01-01" || d.Supersessions[0].Action != ActionException {
		t.Errorf("first supersession = %+v", d.Supersessions[0])
	}
	if d.Supersessions[1].Date != "2024-01-02" || d.Supersessions[1].Action != ActionDelete {
		t.Errorf("second supersession = %+v", d.Supersessions[1])
	}

	byDate["2024-01-03"] = []models.Schedule{sched("z", models.PriorityCritical, "09:00", "09:15", true)}
	if _, err := ResolveSeries(candidate, byDate, Options{}); !stderrors.Is(err, apperrors.ErrConflict) {
		t.Errorf("ResolveSeries() error = %v, want conflict on any date", err)
	}
}

func TestDecisionFormatReport(t *testing.T) {
	if got := (Decision{}).FormatReport(); got != "No schedules displaced." {
		t.Errorf("FormatReport() = %q", got)
	}

	d := Decision{Supersessions: []Supersession{{
		Schedule: sched("a", models.PriorityLow, "09:00", "10:00", false),
		Date:     "2024-01-03",
		Action:   ActionDelete,
	}}}
	if got := d.FormatReport(); !strings.Contains(got, `"Schedule a" (09:00-10:00) on 2024-01-03: delete`) {
		t.Errorf("FormatReport() = %q", got)
	}
}
