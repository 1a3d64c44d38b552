package manager

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/agenda/internal/conflict"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
)

var testNow = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)

func setupManager(t *testing.T, opts ...Option) (*Manager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	}
	return New(store, append(base, opts...)...), store
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func englishClass() models.ScheduleInput {
	return models.ScheduleInput{
		Title:      "English Class",
		Type:       models.ScheduleTypeRecurring,
		Date:       "2024-01-01",
		StartTime:  "09:00",
		EndTime:    "11:00",
		Recurrence: models.Recurrence{Pattern: models.RecurrenceWeekdays},
	}
}

func appointment(title, date, start, end string) models.ScheduleInput {
	return models.ScheduleInput{
		Title:     title,
		Type:      models.ScheduleTypeAppointment,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}
}

func titles(list []models.Schedule) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Title
	}
	return out
}

func TestAdd_RejectedByRecurringCritical(t *testing.T) {
	m, store := setupManager(t)

	class, err := m.Add(englishClass())
	if err != nil {
		t.Fatalf("Add(English Class) error: %v", err)
	}
	if class.Priority != models.PriorityCritical {
		t.Errorf("English Class priority = %s, want critical", class.Priority)
	}

	_, err = m.Add(appointment("Dentist", "2024-01-03", "10:00", "10:30"))
	if !stderrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("Add(Dentist) error = %v, want conflict", err)
	}
	ce, ok := conflict.AsConflict(err)
	if !ok {
		t.Fatalf("error is not a *conflict.ConflictError: %T", err)
	}
	if ce.Existing.Title != "English Class" || ce.Kind != conflict.KindBlocking || ce.Date != "2024-01-03" {
		t.Errorf("ConflictError = kind %s, existing %q, date %s", ce.Kind, ce.Existing.Title, ce.Date)
	}

	all, _ := store.List()
	if len(all) != 1 {
		t.Errorf("store holds %d schedules, want only English Class", len(all))
	}
}

func TestAdd_NonOverlappingAppointmentAccepted(t *testing.T) {
	m, _ := setupManager(t)

	if _, err := m.Add(englishClass()); err != nil {
		t.Fatalf("Add(English Class) error: %v", err)
	}
	if _, err := m.Add(appointment("Dentist", "2024-01-03", "14:00", "14:30")); err != nil {
		t.Fatalf("Add(Dentist) error: %v", err)
	}

	schedules, err := m.SchedulesForDate(day(t, "2024-01-03"))
	if err != nil {
		t.Fatalf("SchedulesForDate() error: %v", err)
	}
	if got := strings.Join(titles(schedules), ","); got != "English Class,Dentist" {
		t.Errorf("SchedulesForDate() = %s", got)
	}

	summary, err := m.SummaryForDate(day(t, "2024-01-03"))
	if err != nil {
		t.Fatalf("SummaryForDate() error: %v", err)
	}
	want := "2024-01-03 (Wednesday)\n" +
		"Morning:\n  09:00-11:00 English Class\n" +
		"Afternoon:\n  14:00-14:30 Dentist\n"
	if summary != want {
		t.Errorf("SummaryForDate() =\n%s\nwant\n%s", summary, want)
	}
}

func TestConfirmedImpromptuSupersededByAppointment(t *testing.T) {
	m, store := setupManager(t)

	movie, err := m.RequestConfirmation(models.ScheduleInput{
		Title:     "Movie night",
		Type:      models.ScheduleTypeImpromptu,
		Date:      "2024-01-05",
		StartTime: "20:00",
		EndTime:   "22:00",
	})
	if err != nil {
		t.Fatalf("RequestConfirmation() error: %v", err)
	}
	if movie.State != models.StatePending || movie.Priority != models.PriorityLow {
		t.Errorf("Movie night = state %s priority %s", movie.State, movie.Priority)
	}

	friday := day(t, "2024-01-05")
	summary, _ := m.SummaryForDate(friday)
	if strings.Contains(summary, "Movie night") {
		t.Errorf("pending schedule leaked into summary:\n%s", summary)
	}

	if _, err := m.Confirm(movie.ID); err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	summary, _ = m.SummaryForDate(friday)
	if !strings.Contains(summary, "Evening:\n  20:00-22:00 Movie night\n") {
		t.Errorf("confirmed schedule missing from evening bucket:\n%s", summary)
	}

	call, err := m.Add(appointment("Team call", "2024-01-05", "20:30", "21:00"))
	if err != nil {
		t.Fatalf("Add(Team call) error: %v", err)
	}

	if _, err := store.Get(movie.ID); !stderrors.Is(err, storage.ErrNotFound) {
		t.Errorf("superseded non-recurring schedule should be deleted, Get() error = %v", err)
	}
	schedules, _ := m.SchedulesForDate(friday)
	if len(schedules) != 1 || schedules[0].ID != call.ID {
		t.Errorf("SchedulesForDate() = %v, want only Team call", titles(schedules))
	}
}

func TestEqualPriorityIsAmbiguous(t *testing.T) {
	m, _ := setupManager(t)

	first, err := m.Add(appointment("Review", "2024-01-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	_, err = m.Add(appointment("Sync", "2024-01-10", "10:30", "11:30"))
	ce, ok := conflict.AsConflict(err)
	if !ok || !ce.Ambiguous() {
		t.Fatalf("Add() error = %v, want ambiguous conflict", err)
	}

	got, err := m.Get(first.ID)
	if err != nil || got.Title != "Review" {
		t.Errorf("first schedule must remain: %v, %v", got, err)
	}

	// The same call with force wins the tie
	sync, err := m.Add(appointment("Sync", "2024-01-10", "10:30", "11:30"), ForceOverride())
	if err != nil {
		t.Fatalf("forced Add() error: %v", err)
	}
	if _, err := m.Get(first.ID); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("forced tie should delete the loser, Get() error = %v", err)
	}
	if _, err := m.Get(sync.ID); err != nil {
		t.Errorf("forced schedule missing: %v", err)
	}
}

func TestForceDoesNotBeatHigherPriority(t *testing.T) {
	m, _ := setupManager(t)
	if _, err := m.Add(englishClass()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	_, err := m.Add(appointment("Dentist", "2024-01-03", "10:00", "10:30"), ForceOverride())
	ce, ok := conflict.AsConflict(err)
	if !ok || ce.Kind != conflict.KindBlocking {
		t.Errorf("Add() error = %v, want blocking conflict despite force", err)
	}
}

func TestHigherPrioritySupersedesSingleDate(t *testing.T) {
	m, store := setupManager(t)

	walk, err := m.Add(models.ScheduleInput{
		Title:      "Walk",
		Type:       models.ScheduleTypeRecurring,
		Priority:   priority(models.PriorityLow),
		Date:       "2024-01-01",
		StartTime:  "18:00",
		EndTime:    "19:00",
		Recurrence: models.Recurrence{Pattern: models.RecurrenceDaily},
	})
	if err != nil {
		t.Fatalf("Add(Walk) error: %v", err)
	}

	if _, err := m.Add(appointment("Dinner", "2024-01-04", "18:30", "20:00")); err != nil {
		t.Fatalf("Add(Dinner) error: %v", err)
	}

	stored, err := store.Get(walk.ID)
	if err != nil {
		t.Fatalf("recurring definition must survive: %v", err)
	}
	if len(stored.Exceptions) != 1 || stored.Exceptions[0] != "2024-01-04" {
		t.Errorf("Exceptions = %v, want [2024-01-04]", stored.Exceptions)
	}
	if stored.Recurrence.Pattern != models.RecurrenceDaily || stored.Title != "Walk" {
		t.Errorf("definition was mutated: %+v", stored)
	}

	for date, want := range map[string]string{
		"2024-01-03": "Walk",
		"2024-01-04": "Dinner",
		"2024-01-05": "Walk",
	} {
		got, _ := m.SchedulesForDate(day(t, date))
		if len(got) != 1 || got[0].Title != want {
			t.Errorf("%s: SchedulesForDate() = %v, want [%s]", date, titles(got), want)
		}
	}
}

func TestSchedulesForDateOrdersSingleDigitHours(t *testing.T) {
	m, _ := setupManager(t)

	if _, err := m.Add(appointment("Lunch", "2024-01-03", "14:00", "15:00")); err != nil {
		t.Fatalf("Add(Lunch) error: %v", err)
	}
	early, err := m.Add(appointment("Coffee", "2024-01-03", "9:00", "9:30"))
	if err != nil {
		t.Fatalf("Add(Coffee) error: %v", err)
	}
	if early.StartTime != "09:00" || early.EndTime != "09:30" {
		t.Errorf("stored times = %s-%s, want 09:00-09:30", early.StartTime, early.EndTime)
	}

	schedules, err := m.SchedulesForDate(day(t, "2024-01-03"))
	if err != nil {
		t.Fatalf("SchedulesForDate() error: %v", err)
	}
	if got := strings.Join(titles(schedules), ","); got != "Coffee,Lunch" {
		t.Errorf("SchedulesForDate() = %s, want Coffee,Lunch", got)
	}

	summary, _ := m.SummaryForDate(day(t, "2024-01-03"))
	if !strings.Contains(summary, "Morning:\n  09:00-09:30 Coffee\n") {
		t.Errorf("summary missing padded entry:\n%s", summary)
	}
}

func TestRecurringCandidateChecksOneOffsBeyondHorizon(t *testing.T) {
	m, store := setupManager(t, WithHorizonDays(30))

	if _, err := m.Add(appointment("Offsite", "2024-01-17", "09:30", "16:00")); err != nil {
		t.Fatalf("Add(Offsite) error: %v", err)
	}
	// Outside the 30 day horizon from 2024-01-01
	if _, err := m.Add(appointment("Conference", "2024-03-01", "09:30", "16:00")); err != nil {
		t.Fatalf("Add(Conference) error: %v", err)
	}
	// A Saturday: no English Class occurrence
	weekend, err := m.Add(appointment("Hike", "2024-03-02", "09:30", "16:00"))
	if err != nil {
		t.Fatalf("Add(Hike) error: %v", err)
	}

	if _, err := m.Add(englishClass()); err != nil {
		t.Fatalf("Add(English Class) error: %v", err)
	}

	all, _ := store.List()
	got := strings.Join(titles(all), ",")
	for _, gone := range []string{"Offsite", "Conference"} {
		if strings.Contains(got, gone) {
			t.Errorf("%s should be superseded, store = %s", gone, got)
		}
	}
	if _, err := store.Get(weekend.ID); err != nil {
		t.Errorf("schedule on a date without an occurrence must be untouched: %v", err)
	}

	schedules, err := m.SchedulesForDate(day(t, "2024-03-01"))
	if err != nil {
		t.Fatalf("SchedulesForDate() error: %v", err)
	}
	if got := strings.Join(titles(schedules), ","); got != "English Class" {
		t.Errorf("SchedulesForDate(2024-03-01) = %s, want English Class alone", got)
	}
}

func TestRecurringCandidateBlockedBeyondHorizon(t *testing.T) {
	m, store := setupManager(t, WithHorizonDays(30))

	critical := models.PriorityCritical
	in := appointment("Surgery", "2024-04-03", "10:00", "12:00")
	in.Priority = &critical
	if _, err := m.Add(in); err != nil {
		t.Fatalf("Add(Surgery) error: %v", err)
	}

	_, err := m.Add(englishClass())
	ce, ok := conflict.AsConflict(err)
	if !ok || ce.Date != "2024-04-03" || ce.Existing.Title != "Surgery" {
		t.Fatalf("Add(English Class) error = %v, want tie with Surgery on 2024-04-03", err)
	}
	if all, _ := store.List(); len(all) != 1 {
		t.Errorf("store holds %d schedules, want only Surgery", len(all))
	}
}

func TestRecurringCandidateRejectedOnAnyDate(t *testing.T) {
	m, store := setupManager(t)

	if _, err := m.Add(models.ScheduleInput{
		Title:      "Gym",
		Type:       models.ScheduleTypeRecurring,
		Date:       "2024-01-06",
		StartTime:  "10:00",
		EndTime:    "11:00",
		Recurrence: models.Recurrence{Pattern: models.RecurrenceWeekends},
	}); err != nil {
		t.Fatalf("Add(Gym) error: %v", err)
	}
	if _, err := m.Add(appointment("Brunch", "2024-01-02", "10:00", "11:00")); err != nil {
		t.Fatalf("Add(Brunch) error: %v", err)
	}

	_, err := m.Add(models.ScheduleInput{
		Title:      "Reading",
		Type:       models.ScheduleTypeRecurring,
		Date:       "2024-01-01",
		StartTime:  "10:30",
		EndTime:    "11:30",
		Recurrence: models.Recurrence{Pattern: models.RecurrenceDaily},
	})
	if !stderrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("Add(Reading) error = %v, want conflict with Gym", err)
	}

	// All or nothing: Brunch on 2024-01-02 was a winnable overlap but must survive
	all, _ := store.List()
	if len(all) != 2 {
		t.Errorf("store holds %v, want Gym and Brunch untouched", titles(all))
	}
	for _, s := range all {
		if len(s.Exceptions) != 0 {
			t.Errorf("%s gained exceptions from a rejected add: %v", s.Title, s.Exceptions)
		}
	}
}

func TestValidationNothingPersisted(t *testing.T) {
	m, store := setupManager(t)

	_, err := m.Add(appointment("Backwards", "2024-01-02", "11:00", "10:00"))
	if !stderrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("Add() error = %v, want validation error", err)
	}
	all, _ := store.List()
	if len(all) != 0 {
		t.Errorf("invalid schedule was persisted: %v", titles(all))
	}
}

func TestUpdate(t *testing.T) {
	m, _ := setupManager(t)

	review, err := m.Add(appointment("Review", "2024-01-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if _, err := m.Add(appointment("Lunch", "2024-01-10", "12:00", "13:00")); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	// Moving within its own slot never conflicts with itself
	end := "11:30"
	updated, err := m.Update(review.ID, models.SchedulePatch{EndTime: &end})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.EndTime != "11:30" || !updated.CreatedAt.Equal(review.CreatedAt) {
		t.Errorf("Update() = %+v", updated)
	}

	later := "12:30"
	if _, err := m.Update(review.ID, models.SchedulePatch{EndTime: &later}); !stderrors.Is(err, apperrors.ErrConflict) {
		t.Errorf("Update() into Lunch error = %v, want conflict", err)
	}
	stored, _ := m.Get(review.ID)
	if stored.EndTime != "11:30" {
		t.Errorf("rejected update was persisted: end = %s", stored.EndTime)
	}

	if _, err := m.Update("missing", models.SchedulePatch{EndTime: &end}); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want not found", err)
	}
}

func TestDeleteAndGetMissing(t *testing.T) {
	m, _ := setupManager(t)

	s, err := m.Add(appointment("Call", "2024-01-02", "09:00", "09:30"))
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	var nf *apperrors.NotFoundError
	if err := m.Delete(s.ID); !stderrors.As(err, &nf) || nf.ID != s.ID {
		t.Errorf("Delete() twice error = %v, want NotFoundError{%s}", err, s.ID)
	}
	if _, err := m.Get(s.ID); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

func TestConfirmRunsConflictCheck(t *testing.T) {
	m, _ := setupManager(t)

	if _, err := m.Add(englishClass()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	pending, err := m.RequestConfirmation(appointment("Dentist", "2024-01-03", "10:00", "10:30"))
	if err != nil {
		t.Fatalf("RequestConfirmation() error: %v", err)
	}

	if _, err := m.Confirm(pending.ID); !stderrors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("Confirm() error = %v, want conflict", err)
	}
	still, err := m.Get(pending.ID)
	if err != nil || still.State != models.StatePending {
		t.Errorf("failed confirmation must leave the schedule pending: %+v, %v", still, err)
	}
	if _, err := m.Confirm("missing"); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Confirm(missing) error = %v", err)
	}
}

func TestRejectAndPending(t *testing.T) {
	m, _ := setupManager(t)

	b, _ := m.RequestConfirmation(appointment("B", "2024-01-04", "09:00", "10:00"))
	a, _ := m.RequestConfirmation(appointment("A", "2024-01-03", "09:00", "10:00"))
	confirmed, _ := m.Add(appointment("C", "2024-01-03", "12:00", "13:00"))

	pending, err := m.Pending()
	if err != nil {
		t.Fatalf("Pending() error: %v", err)
	}
	if got := strings.Join(titles(pending), ","); got != "A,B" {
		t.Errorf("Pending() = %s, want A,B", got)
	}

	if err := m.Reject(a.ID); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}
	if _, err := m.Get(a.ID); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("rejected schedule still stored: %v", err)
	}
	if err := m.Reject(confirmed.ID); !stderrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Reject(confirmed) error = %v, want validation error", err)
	}
	if _, err := m.Confirm(confirmed.ID); !stderrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Confirm(confirmed) error = %v, want validation error", err)
	}

	pending, _ = m.Pending()
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("Pending() after reject = %v", titles(pending))
	}
}

func TestStatistics(t *testing.T) {
	m, _ := setupManager(t)

	if _, err := m.Add(englishClass()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if _, err := m.Add(appointment("Dentist", "2024-01-03", "14:00", "14:30")); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if _, err := m.RequestConfirmation(models.ScheduleInput{
		Title: "Nap", Type: models.ScheduleTypeImpromptu, Date: "2024-01-03", StartTime: "15:00", EndTime: "15:30",
	}); err != nil {
		t.Fatalf("RequestConfirmation() error: %v", err)
	}

	stats, err := m.Statistics()
	if err != nil {
		t.Fatalf("Statistics() error: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByType[models.ScheduleTypeRecurring] != 1 || stats.ByType[models.ScheduleTypeAppointment] != 1 || stats.ByType[models.ScheduleTypeImpromptu] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if stats.ByPriority[models.PriorityCritical] != 1 || stats.ByPriority[models.PriorityMedium] != 1 || stats.ByPriority[models.PriorityLow] != 1 {
		t.Errorf("ByPriority = %v", stats.ByPriority)
	}
	if stats.ByState[models.StateConfirmed] != 2 || stats.ByState[models.StatePending] != 1 {
		t.Errorf("ByState = %v", stats.ByState)
	}
}

func TestOccurrences(t *testing.T) {
	m, _ := setupManager(t)

	if _, err := m.Add(englishClass()); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if _, err := m.Add(appointment("Dentist", "2024-01-03", "08:00", "08:30")); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	occ, err := m.Occurrences(day(t, "2024-01-03"), day(t, "2024-01-07"))
	if err != nil {
		t.Fatalf("Occurrences() error: %v", err)
	}

	var got []string
	for _, o := range occ {
		got = append(got, o.Date+" "+o.Schedule.Title)
	}
	want := []string{
		"2024-01-03 Dentist",
		"2024-01-03 English Class",
		"2024-01-04 English Class",
		"2024-01-05 English Class",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Occurrences() = %v, want %v", got, want)
	}
}

func priority(p models.Priority) *models.Priority {
	return &p
}
