package recurrence

import (
	"testing"
	"time"

	"github.com/julianstephens/agenda/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func schedule(id, title string, pattern models.RecurrencePattern, date, start, end string) models.Schedule {
	typ := models.ScheduleTypeAppointment
	prio := models.PriorityMedium
	if pattern != models.RecurrenceNone {
		typ = models.ScheduleTypeRecurring
		prio = models.PriorityCritical
	}
	return models.Schedule{
		ID:         id,
		Title:      title,
		Type:       typ,
		Priority:   prio,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Recurrence: models.Recurrence{Pattern: pattern},
		State:      models.StateConfirmed,
	}
}

func TestApplicableOn(t *testing.T) {
	standup := schedule("1", "Standup", models.RecurrenceWeekdays, "2024-01-01", "09:00", "09:15")
	dentist := schedule("2", "Dentist", models.RecurrenceNone, "2024-01-03", "14:00", "14:30")
	pending := schedule("3", "Coffee", models.RecurrenceNone, "2024-01-03", "15:00", "15:30")
	pending.State = models.StatePending

	all := []models.Schedule{standup, dentist, pending}

	tests := []struct {
		date string
		want []string
	}{
		{"2024-01-03", []string{"1", "2"}},
		{"2024-01-04", []string{"1"}},
		{"2024-01-06", nil},
		{"2023-12-29", nil},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got := ApplicableOn(all, day(t, tt.date))
			if len(got) != len(tt.want) {
				t.Fatalf("ApplicableOn(%s) returned %d schedules, want %d", tt.date, len(got), len(tt.want))
			}
			for i, s := range got {
				if s.ID != tt.want[i] {
					t.Errorf("ApplicableOn(%s)[%d] = %s, want %s", tt.date, i, s.ID, tt.want[i])
				}
			}
		})
	}
}

func TestDates(t *testing.T) {
	s := schedule("1", "Gym", models.RecurrenceCustom, "2024-01-02", "18:00", "19:00")
	s.Recurrence.Weekdays = []time.Weekday{time.Monday, time.Wednesday}
	s.Recurrence.EndDate = "2024-01-17"
	s.Exceptions = []string{"2024-01-10"}

	got := Dates(s, day(t, "2023-12-01"), day(t, "2024-02-01"))
	want := []string{"2024-01-03", "2024-01-08", "2024-01-15", "2024-01-17"}

	if len(got) != len(want) {
		t.Fatalf("Dates() returned %d dates, want %d: %v", len(got), len(want), got)
	}
	for i, d := range got {
		if d.Format("2006-01-02") != want[i] {
			t.Errorf("Dates()[%d] = %s, want %s", i, d.Format("2006-01-02"), want[i])
		}
	}
}

func TestDates_EmptyRange(t *testing.T) {
	s := schedule("1", "Daily", models.RecurrenceDaily, "2024-01-01", "08:00", "09:00")
	if got := Dates(s, day(t, "2024-01-05"), day(t, "2024-01-04")); len(got) != 0 {
		t.Errorf("Dates() with inverted range = %v, want none", got)
	}
}

func TestByDate(t *testing.T) {
	a := schedule("a", "Write", models.RecurrenceDaily, "2024-01-01", "10:00", "11:00")
	b := schedule("b", "Breakfast", models.RecurrenceDaily, "2024-01-01", "08:00", "08:30")
	c := schedule("c", "Dentist", models.RecurrenceNone, "2024-01-02", "08:00", "08:30")

	got := ByDate([]models.Schedule{a, b, c}, day(t, "2024-01-01"), day(t, "2024-01-02"))

	if n := len(got["2024-01-01"]); n != 2 {
		t.Fatalf("2024-01-01 has %d schedules, want 2", n)
	}
	order := []string{}
	for _, s := range got["2024-01-02"] {
		order = append(order, s.ID)
	}
	if len(order) != 3 || order[0] != "b" || order[1] != "c" || order[2] != "a" {
		t.Errorf("2024-01-02 order = %v, want [b c a]", order)
	}
}
