package analytics

import (
	"fmt"
	"time"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Day, Week, Month:
		return g, nil
	case "":
		return Day, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (day|week|month)", s)
	}
}

// ParseDate parses a YYYY-MM-DD string into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// DateOf drops the clock part of t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TruncatePeriod returns the key of the bucket containing t: the date itself
// for days, the ISO week's Monday for weeks, the first of the month for months.
func TruncatePeriod(t time.Time, g Granularity) time.Time {
	d := DateOf(t)
	switch g {
	case Week:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case Month:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// PreviousWindow returns the window of identical length that ends the day
// before start.
func PreviousWindow(start, end time.Time) (time.Time, time.Time) {
	start, end = DateOf(start), DateOf(end)
	length := int(end.Sub(start).Hours() / 24)
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -length)
	return prevStart, prevEnd
}
