// Package datetime provides calendar date utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/course-emi/pkg/constants"
)

const (
	// DateLayout is the format expected for admission dates and is also the
	// format used in export file names.
	DateLayout = constants.DateLayout
)

// ParseDate parses a YYYY-MM-DD string into a calendar date at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// MustParseDate parses a YYYY-MM-DD string and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseDate(value string) time.Time {
	t, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return t
}

// DateOf drops the time-of-day from t, keeping the calendar date as seen in
// t's own location, and returns it at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped advances t by n calendar months. When t's day does not
// exist in the target month it is pinned to that month's last day, so
// 2024-01-31 + 1 month is 2024-02-29.
func AddMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := t.Day()
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AddMonthsOverflow advances t by n calendar months and lets a missing day
// spill into the following month, so 2023-01-31 + 1 month is 2023-03-03.
func AddMonthsOverflow(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WithDay returns the date in t's month with the day replaced. Days past the
// end of the month normalize forward.
func WithDay(t time.Time, day int) time.Time {
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
}

// FormatShort renders t as "D Mon YYYY".
func FormatShort(t time.Time) string {
	return t.Format(constants.ShortDateLayout)
}

// FormatLong renders t as "D Month YYYY".
func FormatLong(t time.Time) string {
	return t.Format(constants.LongDateLayout)
}

// FormatISO renders t as "YYYY-MM-DD".
func FormatISO(t time.Time) string {
	return t.Format(DateLayout)
}
