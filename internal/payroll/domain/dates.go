package domain

import (
	"time"

	"github.com/paycore/paycore-backend/pkg/errors"
)

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.ValidationField("date", "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// DateOf returns the calendar date of t in loc, as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TruncateDate drops the clock part of d, keeping its calendar date.
func TruncateDate(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d time.Time) time.Time {
	d = TruncateDate(d)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// MonthRange returns the first and last calendar day of a month.
func MonthRange(year, month int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// EachDay calls fn for every day in [from, to].
func EachDay(from, to time.Time, fn func(day time.Time)) {
	for d := TruncateDate(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// ValidatePeriod checks a payroll month and year.
func ValidatePeriod(month, year int) error {
	details := map[string]string{}
	if month < 1 || month > 12 {
		details["month"] = "must be between 1 and 12"
	}
	if year < 1970 || year > 9999 {
		details["year"] = "must be between 1970 and 9999"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}
