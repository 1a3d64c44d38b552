// Package utils holds the date and clock helpers shared by the store,
// the core and the CLI. Dates are YYYY-MM-DD, clock times HH:MM.
package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
)

// LoadLocation resolves an IANA zone name; "" and "Local" mean the host zone.
func LoadLocation(timezone string) (*time.Location, error) {
	switch timezone {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// ParseTimeToMinutes turns "HH:MM" into minutes after midnight.
func ParseTimeToMinutes(clock string) (int, error) {
	t, err := time.Parse(constants.TimeFormat, clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NormalizeClock rewrites an accepted clock time such as "9:05" as "09:05".
func NormalizeClock(clock string) (string, error) {
	mins, err := ParseTimeToMinutes(clock)
	if err != nil {
		return clock, err
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60), nil
}

// ParseDate parses YYYY-MM-DD as midnight UTC.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(constants.DateFormat, date)
}

// ParseDateInLocation parses YYYY-MM-DD as midnight in loc.
func ParseDateInLocation(date string, loc *time.Location) (time.Time, error) {
	t, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// ParseDateArg is ParseDateInLocation with an error fit for a command line.
func ParseDateArg(s string, loc *time.Location) (time.Time, error) {
	t, err := ParseDateInLocation(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD, 'today' or 'tomorrow'", s)
	}
	return t, nil
}

func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// CombineDateAndTime places an HH:MM clock time on a YYYY-MM-DD date in loc.
func CombineDateAndTime(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	mins, err := ParseTimeToMinutes(clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), mins/60, mins%60, 0, 0, loc), nil
}
