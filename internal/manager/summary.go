package manager

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/recurrence"
	"github.com/julianstephens/agenda/internal/utils"
)

// Bucket is a part of the day in a summary
type Bucket string

const (
	BucketMorning   Bucket = "Morning"
	BucketAfternoon Bucket = "Afternoon"
	BucketEvening   Bucket = "Evening"
)

// Buckets lists the parts of the day in display order
var Buckets = []Bucket{BucketMorning, BucketAfternoon, BucketEvening}

// BucketFor places a start time: morning before 12:00, afternoon from
// 12:00 through 18:00, evening after 18:00.
func BucketFor(s models.Schedule) Bucket {
	start := s.StartMinutes()
	switch {
	case start < constants.MorningEndMin:
		return BucketMorning
	case start <= constants.AfternoonEndMin:
		return BucketAfternoon
	default:
		return BucketEvening
	}
}

// FormatEntry renders "<start>-<end> <title>(<location>)", dropping the
// parenthesised part when there is no location.
func FormatEntry(s models.Schedule) string {
	entry := fmt.Sprintf("%s-%s %s", s.StartTime, s.EndTime, s.Title)
	if s.Location != "" {
		entry += "(" + s.Location + ")"
	}
	return entry
}

// GroupByBucket splits a day's schedules into parts of the day, keeping
// their order within each part.
func GroupByBucket(schedules []models.Schedule) map[Bucket][]models.Schedule {
	out := make(map[Bucket][]models.Schedule, len(Buckets))
	for _, s := range schedules {
		b := BucketFor(s)
		out[b] = append(out[b], s)
	}
	return out
}

// SummaryForDate renders the confirmed schedules of date as plain text for
// dialogue context. Empty parts of the day are left out.
func (m *Manager) SummaryForDate(date time.Time) (string, error) {
	schedules, err := m.SchedulesForDate(date)
	if err != nil {
		return "", err
	}
	return FormatSummary(date, schedules), nil
}

// FormatSummary renders already-sorted schedules of one date
func FormatSummary(date time.Time, schedules []models.Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", utils.FormatDate(date), date.Weekday())

	if len(schedules) == 0 {
		b.WriteString("No schedules.\n")
		return b.String()
	}

	sorted := append([]models.Schedule(nil), schedules...)
	recurrence.SortByStart(sorted)
	groups := GroupByBucket(sorted)

	for _, bucket := range Buckets {
		entries := groups[bucket]
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", bucket)
		for _, s := range entries {
			fmt.Fprintf(&b, "  %s\n", FormatEntry(s))
		}
	}
	return b.String()
}
