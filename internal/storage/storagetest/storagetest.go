// Package storagetest holds the behaviour every storage.Store must share.
// Store packages call Run from their own tests.
package storagetest

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
)

// Factory returns an empty, ready-to-use store. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Store

var created = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// Schedule builds a valid confirmed schedule for tests
func Schedule(id string, pattern models.RecurrencePattern, date, start, end string) models.Schedule {
	s := models.Schedule{
		ID:         id,
		Title:      "Schedule " + id,
		Type:       models.ScheduleTypeAppointment,
		Priority:   models.PriorityMedium,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Recurrence: models.Recurrence{Pattern: pattern},
		State:      models.StateConfirmed,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if pattern != models.RecurrenceNone {
		s.Type = models.ScheduleTypeRecurring
		s.Priority = models.PriorityCritical
	}
	return s
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("bad test date %q", s))
	}
	return d
}

// Run exercises newStore against the storage.Store contract
func Run(t *testing.T, newStore Factory) {
	t.Run("SaveGetRoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("SaveOverwrites", func(t *testing.T) { testOverwrite(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("ListByDateRange", func(t *testing.T) { testListByDateRange(t, newStore(t)) })
	t.Run("Exceptions", func(t *testing.T) { testExceptions(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
}

func testRoundTrip(t *testing.T, store storage.Store) {
	s := Schedule("a", models.RecurrenceCustom, "2024-01-01", "09:00", "10:00")
	s.Description = "weekly review"
	s.Location = "Office"
	s.PriorityExplicit = true
	s.Priority = models.PriorityHigh
	s.Recurrence.Weekdays = []time.Weekday{time.Monday, time.Friday}
	s.Recurrence.EndDate = "2024-06-30"
	s.Metadata = map[string]string{"source": "test"}
	s.Exceptions = []string{"2024-01-05"}

	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.Get("a")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	if got.Title != s.Title || got.Description != s.Description || got.Location != s.Location {
		t.Errorf("text fields not preserved: %+v", got)
	}
	if got.Type != s.Type || got.Priority != s.Priority || !got.PriorityExplicit || got.State != s.State {
		t.Errorf("enum fields not preserved: %+v", got)
	}
	if got.Date != s.Date || got.StartTime != s.StartTime || got.EndTime != s.EndTime {
		t.Errorf("date/time fields not preserved: %+v", got)
	}
	if got.Recurrence.Pattern != models.RecurrenceCustom || got.Recurrence.EndDate != "2024-06-30" ||
		len(got.Recurrence.Weekdays) != 2 || got.Recurrence.Weekdays[1] != time.Friday {
		t.Errorf("recurrence not preserved: %+v", got.Recurrence)
	}
	if got.Metadata["source"] != "test" {
		t.Errorf("metadata not preserved: %v", got.Metadata)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created) {
		t.Errorf("timestamps not preserved: %v %v", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.Exceptions) != 0 {
		t.Errorf("Save must not write exceptions, got %v", got.Exceptions)
	}
}

func testOverwrite(t *testing.T, store storage.Store) {
	s := Schedule("a", models.RecurrenceNone, "2024-01-01", "09:00", "10:00")
	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	s.Title = "Renamed"
	s.State = models.StatePending
	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	all, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 1 || all[0].Title != "Renamed" || all[0].State != models.StatePending {
		t.Errorf("List() = %+v, want one renamed pending schedule", all)
	}
}

func testGetMissing(t *testing.T, store storage.Store) {
	if _, err := store.Get("nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete("nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	ex := models.Exception{ScheduleID: "nope", Date: "2024-01-01", CreatedAt: created}
	if err := store.AddException(ex); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddException() error = %v, want ErrNotFound", err)
	}
}

func testDeleteCascades(t *testing.T, store storage.Store) {
	s := Schedule("a", models.RecurrenceDaily, "2024-01-01", "09:00", "10:00")
	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := store.AddException(models.Exception{ScheduleID: "a", Date: "2024-01-02", CreatedAt: created}); err != nil {
		t.Fatalf("AddException() error: %v", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	// A new definition reusing the id must not inherit old exceptions
	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := store.Get("a")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(got.Exceptions) != 0 {
		t.Errorf("exceptions survived delete: %v", got.Exceptions)
	}
}

func testListByDateRange(t *testing.T, store storage.Store) {
	fixtures := []models.Schedule{
		Schedule("before", models.RecurrenceNone, "2024-01-01", "09:00", "10:00"),
		Schedule("inside", models.RecurrenceNone, "2024-01-10", "09:00", "10:00"),
		Schedule("after", models.RecurrenceNone, "2024-02-01", "09:00", "10:00"),
		Schedule("open", models.RecurrenceDaily, "2023-06-01", "09:00", "10:00"),
		Schedule("future", models.RecurrenceDaily, "2024-03-01", "09:00", "10:00"),
	}
	ended := Schedule("ended", models.RecurrenceWeekly, "2023-06-01", "09:00", "10:00")
	ended.Recurrence.EndDate = "2024-01-04"
	bounded := Schedule("bounded", models.RecurrenceWeekly, "2023-06-01", "09:00", "10:00")
	bounded.Recurrence.EndDate = "2024-01-05"
	pending := Schedule("pending", models.RecurrenceNone, "2024-01-15", "09:00", "10:00")
	pending.State = models.StatePending
	fixtures = append(fixtures, ended, bounded, pending)

	for _, s := range fixtures {
		if err := store.Save(s); err != nil {
			t.Fatalf("Save(%s) error: %v", s.ID, err)
		}
	}

	got, err := store.ListByDateRange(day("2024-01-05"), day("2024-01-31"))
	if err != nil {
		t.Fatalf("ListByDateRange() error: %v", err)
	}

	want := map[string]bool{"inside": true, "open": true, "bounded": true, "pending": true}
	if len(got) != len(want) {
		ids := []string{}
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		t.Fatalf("ListByDateRange() = %v, want %d schedules", ids, len(want))
	}
	for _, s := range got {
		if !want[s.ID] {
			t.Errorf("unexpected schedule %s in range", s.ID)
		}
	}
}

func testExceptions(t *testing.T, store storage.Store) {
	s := Schedule("a", models.RecurrenceDaily, "2024-01-01", "09:00", "10:00")
	if err := store.Save(s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	for _, d := range []string{"2024-01-09", "2024-01-03", "2024-01-09"} {
		ex := models.Exception{ScheduleID: "a", Date: d, Reason: "superseded by b", CreatedAt: created}
		if err := store.AddException(ex); err != nil {
			t.Fatalf("AddException(%s) error: %v", d, err)
		}
	}

	got, err := store.Get("a")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(got.Exceptions) != 2 || got.Exceptions[0] != "2024-01-03" || got.Exceptions[1] != "2024-01-09" {
		t.Errorf("Exceptions = %v, want [2024-01-03 2024-01-09]", got.Exceptions)
	}

	// Updating the definition keeps its exception records
	got.Title = "Updated"
	if err := store.Save(got); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	listed, err := store.ListByDateRange(day("2024-01-01"), day("2024-01-31"))
	if err != nil {
		t.Fatalf("ListByDateRange() error: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Exceptions) != 2 {
		t.Errorf("exceptions lost after update: %+v", listed)
	}
}

func testTransactions(t *testing.T, store storage.Store) {
	tx, ok := store.(storage.Transactor)
	if !ok {
		t.Skip("store does not support transactions")
	}

	a := Schedule("a", models.RecurrenceNone, "2024-01-01", "09:00", "10:00")
	if err := store.Save(a); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	boom := errors.New("boom")
	err := tx.WithTx(func(s storage.Store) error {
		if err := s.Delete("a"); err != nil {
			return err
		}
		if err := s.Save(Schedule("b", models.RecurrenceNone, "2024-01-01", "09:00", "10:00")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	if _, err := store.Get("a"); err != nil {
		t.Errorf("rolled-back delete took effect: %v", err)
	}
	if _, err := store.Get("b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("rolled-back save took effect: %v", err)
	}

	err = tx.WithTx(func(s storage.Store) error {
		if err := s.Delete("a"); err != nil {
			return err
		}
		return s.Save(Schedule("b", models.RecurrenceNone, "2024-01-01", "09:00", "10:00"))
	})
	if err != nil {
		t.Fatalf("WithTx() error: %v", err)
	}
	all, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 1 || all[0].ID != "b" {
		t.Errorf("List() after commit = %+v, want only b", all)
	}
}
