package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
)

// CouldApplyWithin reports whether s has any chance of applying on a date
// in [start, end] (both YYYY-MM-DD). It only checks bounds; the pattern
// itself is evaluated by the recurrence engine.
func CouldApplyWithin(s models.Schedule, start, end string) bool {
	if !s.IsRecurring() {
		return s.Date >= start && s.Date <= end
	}
	if s.Date > end {
		return false
	}
	return s.Recurrence.EndDate == "" || s.Recurrence.EndDate >= start
}

// RangeBounds renders a time range as inclusive YYYY-MM-DD bounds
func RangeBounds(start, end time.Time) (string, string) {
	return start.Format(constants.DateFormat), end.Format(constants.DateFormat)
}

// EncodeWeekdays renders a weekday set as a JSON array of ints ("" when empty)
func EncodeWeekdays(days []time.Weekday) (string, error) {
	if len(days) == 0 {
		return "", nil
	}
	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	b, err := json.Marshal(ints)
	if err != nil {
		return "", fmt.Errorf("failed to encode weekdays: %w", err)
	}
	return string(b), nil
}

// DecodeWeekdays parses the output of EncodeWeekdays
func DecodeWeekdays(raw string) ([]time.Weekday, error) {
	if raw == "" {
		return nil, nil
	}
	var ints []int
	if err := json.Unmarshal([]byte(raw), &ints); err != nil {
		return nil, fmt.Errorf("failed to decode weekdays %q: %w", raw, err)
	}
	days := make([]time.Weekday, len(ints))
	for i, d := range ints {
		days[i] = time.Weekday(d)
	}
	return days, nil
}

// EncodeMetadata renders metadata as a JSON object
func EncodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses the output of EncodeMetadata; an empty object yields nil
func DecodeMetadata(raw string) (map[string]string, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}

// SortExceptionDates sorts and dedupes exception dates in place
func SortExceptionDates(dates []string) []string {
	sort.Strings(dates)
	out := dates[:0]
	for i, d := range dates {
		if i > 0 && d == dates[i-1] {
			continue
		}
		out = append(out, d)
	}
	return out
}
