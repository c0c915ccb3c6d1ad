// Package calendar converts between instants and YYYY-MM-DD calendar date keys.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the calendar date format used for every stored date.
const Layout = "2006-01-02"

// ClockLayout is the time-of-day format used for quest due times.
const ClockLayout = "15:04"

// Key returns the calendar date of t in loc.
func Key(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(Layout)
}

// Parse parses a date key as midnight in loc.
func Parse(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// Valid reports whether date is a well-formed date key.
func Valid(date string) bool {
	_, err := time.Parse(Layout, date)
	return err == nil
}

// DaysBetween returns the number of calendar days from one date key to another.
// The result is negative when to is before from.
func DaysBetween(from, to string) (int, error) {
	a, err := Parse(from, time.UTC)
	if err != nil {
		return 0, err
	}
	b, err := Parse(to, time.UTC)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// AddDays shifts a date key by n days.
func AddDays(date string, n int) (string, error) {
	t, err := Parse(date, time.UTC)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}

// Weekday returns the weekday index of t in loc, 0 for Sunday through 6 for Saturday.
func Weekday(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return int(t.In(loc).Weekday())
}

// At combines a date key and an HH:MM time of day into an instant in loc.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	return t, nil
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// LastDays returns the n date keys ending at today, oldest first.
func LastDays(now time.Time, loc *time.Location, n int) []string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	days := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, local.AddDate(0, 0, -i).Format(Layout))
	}
	return days
}
