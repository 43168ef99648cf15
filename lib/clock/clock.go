package clock

import (
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	DayLayout       = "2006-01-02"
)

// Clock is injected into services so tests can pin the current time.
type Clock func() time.Time

func System() time.Time {
	return time.Now()
}

func Now() string {
	return time.Now().UTC().Format(timestampLayout)
}

// StartOfDay returns midnight of the day containing t in the given location
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// Day formats t as a calendar date in the given location
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// LastDays lists the n calendar dates ending with the day of t, oldest first
func LastDays(t time.Time, n int, loc *time.Location) []string {
	start := StartOfDay(t, loc)
	days := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, start.AddDate(0, 0, -i).Format(DayLayout))
	}
	return days
}

// LoadLocation falls back to UTC when the zone name is unknown
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
