package model

import (
	"fmt"
	"time"
)

// dayLayout is the wire and storage format for calendar days.
const dayLayout = "2006-01-02"

// Day is a calendar date with no time component. The engine compares instants
// at day granularity in UTC.
type Day string

// DayOf truncates an instant to its UTC calendar day.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(dayLayout))
}

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, ErrValidation)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC at the start of the day.
func (d Day) Time() time.Time {
	t, _ := time.Parse(dayLayout, string(d))
	return t
}

func (d Day) String() string { return string(d) }

// Window is a half-open time interval [Since, Until) used to scope activity
// queries. Pure value, no identity.
type Window struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// Contains reports whether t falls within the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Since) && t.Before(w.Until)
}

// PrecedingWindow returns the single calendar day immediately preceding d,
// the default aggregation window for a standup generated on d.
func PrecedingWindow(d Day) Window {
	until := d.Time()
	return Window{Since: until.AddDate(0, 0, -1), Until: until}
}
