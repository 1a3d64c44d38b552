package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/agenda/internal/conflict"
	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/models"
)

func addCmd(title, typ, date, start, end string) *AddCmd {
	return &AddCmd{ScheduleFlags: ScheduleFlags{
		Title: title, Type: typ, Date: date, Start: start, End: end,
	}}
}

func TestAddAndDay(t *testing.T) {
	ctx, out := setupContext(t)

	add := addCmd("Dentist", "appointment", "2024-01-02", "10:00", "11:00")
	add.Location = "Clinic"
	add.Meta = map[string]string{"ref": "A12"}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if !strings.Contains(out.String(), "Added appointment: 10:00-11:00 Dentist(Clinic) on 2024-01-02 (ID: id-1)") {
		t.Errorf("unexpected add output: %s", out.String())
	}

	s, err := ctx.Manager.Get("id-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if s.Metadata["source"] != "cli" || s.Metadata["ref"] != "A12" {
		t.Errorf("metadata = %v", s.Metadata)
	}

	out.Reset()
	if err := (&DayCmd{Date: "2024-01-02"}).Run(ctx); err != nil {
		t.Fatalf("day error: %v", err)
	}
	for _, want := range []string{"2024-01-02 (Tuesday)", "Morning", "10:00-11:00 Dentist(Clinic)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("day output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := (&SummaryCmd{Date: "2024-01-02"}).Run(ctx); err != nil {
		t.Fatalf("summary error: %v", err)
	}
	want := "2024-01-02 (Tuesday)\nMorning:\n  10:00-11:00 Dentist(Clinic)\n"
	if out.String() != want {
		t.Errorf("summary = %q, want %q", out.String(), want)
	}
}

func TestAddRecurringWithWeekdays(t *testing.T) {
	ctx, out := setupContext(t)

	add := addCmd("Gym", "recurring", "2024-01-01", "18:00", "19:00")
	add.Recurrence = "custom"
	add.Weekdays = "mon,thu"
	add.Until = "2024-01-31"
	if err := add.Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	out.Reset()
	if err := (&ShowCmd{ID: "id-1"}).Run(ctx); err != nil {
		t.Fatalf("show error: %v", err)
	}
	for _, want := range []string{"Recurrence:  custom (Mon,Thu)", "Until:       2024-01-31", "RRULE:", "BYDAY=MO,TH"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("show output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := (&UpcomingCmd{From: "2024-01-01", Days: 7}).Run(ctx); err != nil {
		t.Fatalf("upcoming error: %v", err)
	}
	if got := strings.Count(out.String(), "18:00-19:00 Gym"); got != 2 {
		t.Errorf("expected 2 occurrences in a week, got %d:\n%s", got, out.String())
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx, _ := setupContext(t)

	tests := []struct {
		name string
		cmd  *AddCmd
	}{
		{"end before start", addCmd("Late", "appointment", "2024-01-02", "11:00", "10:00")},
		{"bad date", addCmd("Soon", "appointment", "someday", "10:00", "11:00")},
		{"recurring without pattern", addCmd("Class", "recurring", "2024-01-02", "10:00", "11:00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); err == nil {
				t.Error("expected error")
			}
		})
	}

	all, err := ctx.Store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected nothing stored, got %d", len(all))
	}
}

func TestAddConflicts(t *testing.T) {
	ctx, _ := setupContext(t)

	if err := addCmd("Standup", "appointment", "2024-01-02", "09:00", "10:00").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	// lower priority never wins
	err := addCmd("Coffee", "impromptu", "2024-01-02", "09:30", "10:00").Run(ctx)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if ce, ok := conflict.AsConflict(err); !ok || ce.Ambiguous() {
		t.Errorf("expected a blocking conflict, got %v", err)
	}

	// equal priority is overridden once the prompt is answered
	if err := addCmd("Review", "appointment", "2024-01-02", "09:30", "10:30").Run(ctx); err != nil {
		t.Fatalf("override error: %v", err)
	}
	if _, err := ctx.Manager.Get("id-1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected superseded standup to be gone, got %v", err)
	}
}

func TestImpromptuNeedsConfirmation(t *testing.T) {
	ctx, out := setupContext(t)
	ctx.Config.ImpromptuRequiresConfirmation = true

	if err := addCmd("Walk", "impromptu", "2024-01-01", "17:00", "17:30").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if !strings.Contains(out.String(), "Awaiting confirmation") {
		t.Errorf("unexpected output: %s", out.String())
	}

	day, err := ctx.Manager.SchedulesForDate(testNow)
	if err != nil {
		t.Fatalf("SchedulesForDate error: %v", err)
	}
	if len(day) != 0 {
		t.Fatalf("pending schedule should not be listed, got %d", len(day))
	}

	out.Reset()
	if err := (&PendingCmd{}).Run(ctx); err != nil {
		t.Fatalf("pending error: %v", err)
	}
	if !strings.Contains(out.String(), "17:00-17:30 Walk") {
		t.Errorf("pending output missing entry:\n%s", out.String())
	}

	if err := (&ConfirmCmd{ID: "id-1"}).Run(ctx); err != nil {
		t.Fatalf("confirm error: %v", err)
	}
	day, err = ctx.Manager.SchedulesForDate(testNow)
	if err != nil {
		t.Fatalf("SchedulesForDate error: %v", err)
	}
	if len(day) != 1 {
		t.Errorf("expected confirmed schedule on the day, got %d", len(day))
	}
}

func TestRequestAndReject(t *testing.T) {
	ctx, out := setupContext(t)

	req := &RequestCmd{ScheduleFlags: ScheduleFlags{
		Title: "Party", Type: "appointment", Date: "2024-01-05", Start: "20:00", End: "23:00",
	}}
	if err := req.Run(ctx); err != nil {
		t.Fatalf("request error: %v", err)
	}
	if err := (&RejectCmd{ID: "id-1"}).Run(ctx); err != nil {
		t.Fatalf("reject error: %v", err)
	}

	out.Reset()
	if err := (&PendingCmd{}).Run(ctx); err != nil {
		t.Fatalf("pending error: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing awaiting confirmation.") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestSuggestSkipsDuplicates(t *testing.T) {
	ctx, out := setupContext(t)

	if err := addCmd("Lunch with Ana", "appointment", "2024-01-01", "12:00", "13:00").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	out.Reset()
	suggest := &SuggestCmd{ScheduleFlags: ScheduleFlags{
		Title: "lunch  with ana", Date: "2024-01-01", Start: "12:30", End: "13:00",
	}}
	if err := suggest.Run(ctx); err != nil {
		t.Fatalf("suggest error: %v", err)
	}
	if !strings.Contains(out.String(), "Skipped:") || !strings.Contains(out.String(), "already scheduled") {
		t.Errorf("unexpected output: %s", out.String())
	}

	out.Reset()
	suggest.Title = "Read a book"
	if err := suggest.Run(ctx); err != nil {
		t.Fatalf("suggest error: %v", err)
	}
	if !strings.Contains(out.String(), "Suggested: 12:30-13:00 Read a book") {
		t.Errorf("unexpected output: %s", out.String())
	}
	s, err := ctx.Manager.Get("id-2")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if s.Type != models.ScheduleTypeImpromptu || s.IsConfirmed() {
		t.Errorf("expected pending impromptu, got %s/%s", s.Type, s.State)
	}
}

func TestEditAndDelete(t *testing.T) {
	ctx, out := setupContext(t)

	if err := addCmd("Dentist", "appointment", "2024-01-02", "10:00", "11:00").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	edit := &EditCmd{ID: "id-1", Location: "Downtown", End: "11:30", Priority: "high"}
	if err := edit.Run(ctx); err != nil {
		t.Fatalf("edit error: %v", err)
	}
	s, err := ctx.Manager.Get("id-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if s.Location != "Downtown" || s.EndTime != "11:30" || s.Priority != models.PriorityHigh {
		t.Errorf("unexpected schedule after edit: %+v", s)
	}

	if err := (&EditCmd{ID: "missing", Title: "x"}).Run(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	out.Reset()
	if err := (&DeleteCmd{ID: "id-1"}).Run(ctx); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted Dentist (id-1)") {
		t.Errorf("unexpected output: %s", out.String())
	}
	if _, err := ctx.Manager.Get("id-1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected schedule to be gone, got %v", err)
	}
}

func TestEditRecurrence(t *testing.T) {
	ctx, _ := setupContext(t)

	add := addCmd("Run", "recurring", "2024-01-01", "06:00", "07:00")
	add.Recurrence = "daily"
	if err := add.Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	if err := (&EditCmd{ID: "id-1", Recurrence: "custom", Weekdays: "sat,sun", Until: "2024-02-29"}).Run(ctx); err != nil {
		t.Fatalf("edit error: %v", err)
	}
	s, err := ctx.Manager.Get("id-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if s.Recurrence.Pattern != models.RecurrenceCustom || len(s.Recurrence.Weekdays) != 2 || s.Recurrence.EndDate != "2024-02-29" {
		t.Errorf("unexpected recurrence: %+v", s.Recurrence)
	}

	if err := (&EditCmd{ID: "id-1", Until: "none"}).Run(ctx); err != nil {
		t.Fatalf("edit error: %v", err)
	}
	s, _ = ctx.Manager.Get("id-1")
	if s.Recurrence.EndDate != "" {
		t.Errorf("expected open-ended recurrence, got %q", s.Recurrence.EndDate)
	}
}

func TestListAndStats(t *testing.T) {
	ctx, out := setupContext(t)

	if err := addCmd("Dentist", "appointment", "2024-01-02", "10:00", "11:00").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}
	class := addCmd("English Class", "recurring", "2024-01-01", "09:00", "10:00")
	class.Recurrence = "weekdays"
	if err := class.Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	out.Reset()
	if err := (&ListCmd{Type: "recurring"}).Run(ctx); err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(out.String(), "weekdays from 2024-01-01") || strings.Contains(out.String(), "Dentist") {
		t.Errorf("unexpected list output:\n%s", out.String())
	}

	out.Reset()
	if err := (&StatsCmd{JSON: true}).Run(ctx); err != nil {
		t.Fatalf("stats error: %v", err)
	}
	var stats manager.Stats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out.String())
	}
	if stats.Total != 2 || stats.ByType[models.ScheduleTypeRecurring] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestExport(t *testing.T) {
	ctx, out := setupContext(t)

	if err := addCmd("Dentist", "appointment", "2024-01-02", "10:00", "11:00").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "agenda.ics")
	out.Reset()
	if err := (&ExportCmd{Output: path}).Run(ctx); err != nil {
		t.Fatalf("export error: %v", err)
	}
	if !strings.Contains(out.String(), "Exported 1 schedule to") {
		t.Errorf("unexpected output: %s", out.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Dentist", "UID:id-1@agenda"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("calendar missing %q", want)
		}
	}
}

func TestFree(t *testing.T) {
	ctx, out := setupContext(t)

	if err := addCmd("Dentist", "appointment", "2024-01-02", "10:00", "11:00").Run(ctx); err != nil {
		t.Fatalf("add error: %v", err)
	}

	if err := (&FreeCmd{Date: "2024-01-02", From: "09:00", To: "12:00", Min: 15}).Run(ctx); err != nil {
		t.Fatalf("free error: %v", err)
	}
	for _, want := range []string{"09:00-10:00  (60 min)", "11:00-12:00  (60 min)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("free output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := (&FreeCmd{Date: "2024-01-02", From: "09:00", To: "12:00", Duration: 90}).Run(ctx); err != nil {
		t.Fatalf("free error: %v", err)
	}
	if !strings.Contains(out.String(), "No free 90-minute slot") {
		t.Errorf("unexpected output: %s", out.String())
	}
}
