package model

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period is a rent month key in YYYY-MM form. It names the month a payment
// applies to, not the day it was made.
type Period string

// ParsePeriod validates s as a YYYY-MM period key.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil || t.Format(periodLayout) != s {
		return "", fmt.Errorf("%w: month must be in YYYY-MM format, got %q", ErrValidation, s)
	}
	return Period(s), nil
}

// PeriodOf returns the period containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period(t.Format(periodLayout))
}

// Start returns midnight on the first day of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(periodLayout, string(p), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddMonths shifts the period by n calendar months. Negative n walks back
// across year boundaries: 2025-02 minus 2 is 2024-12.
func (p Period) AddMonths(n int) Period {
	t := p.Start(time.UTC)
	return PeriodOf(time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// Label is the three-letter month abbreviation, e.g. "Feb".
func (p Period) Label() string {
	return p.Start(time.UTC).Format("Jan")
}

func (p Period) String() string {
	return string(p)
}
