package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// MaxShift is the longest span a single attendance record may cover
const MaxShift = 24 * time.Hour

// AttendanceRecord is one user's check-in/check-out pair for a day.
// A nil CheckOutTime means the day is still open.
type AttendanceRecord struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	WorkDate     time.Time  `json:"work_date" db:"work_date"`
	CheckInTime  time.Time  `json:"check_in_time" db:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty" db:"check_out_time"`
	Notes        *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	Events []AttendanceEvent `json:"events,omitempty" db:"-"`
}

// IsOpen reports whether the record has no check-out yet.
func (a *AttendanceRecord) IsOpen() bool {
	return a.CheckOutTime == nil
}

// ValidateCheckOut rejects a check-out more than MaxShift away from its
// check-in. The record keeps the check-in's work date, so a night shift
// ending after midnight is still one day.
func ValidateCheckOut(checkIn, checkOut time.Time) error {
	d := checkOut.Sub(checkIn)
	if d < 0 {
		d = -d
	}
	if d > MaxShift {
		return errors.ValidationField("check_out", "must be within 24 hours of check-in")
	}
	return nil
}

// WorkedHours returns |check-out - check-in| in hours, rounded to two
// decimals. An open record yields zero. A check-out before check-in is
// reported as an anomaly and its absolute value is used. Spans over 24h
// cannot be written through ValidateCheckOut but are flagged when read.
func (a *AttendanceRecord) WorkedHours() (decimal.Decimal, *Anomaly) {
	if a == nil || a.CheckOutTime == nil {
		return decimal.Zero, nil
	}

	d := a.CheckOutTime.Sub(a.CheckInTime)
	var anomaly *Anomaly
	if d < 0 {
		d = -d
		anomaly = &Anomaly{
			Kind:    AnomalyNegativeHours,
			Message: "check-out precedes check-in; absolute duration used",
		}
	}

	hours := RoundHours(decimal.NewFromInt(d.Milliseconds()).Div(millisPerHour))
	if anomaly == nil && hours.GreaterThan(hoursPerDay) {
		anomaly = &Anomaly{
			Kind:    AnomalyExcessiveHours,
			Message: "attendance spans more than 24 hours",
		}
	}
	return hours, anomaly
}

// AttendanceEventKind labels an entry in the attendance ledger
type AttendanceEventKind string

const (
	AttendanceCheckIn      AttendanceEventKind = "check_in"
	AttendanceCheckOut     AttendanceEventKind = "check_out"
	AttendanceAutoCheckOut AttendanceEventKind = "auto_check_out"
)

// AttendanceEvent is one structured check-in/check-out ledger entry
type AttendanceEvent struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	AttendanceID uuid.UUID           `json:"attendance_id" db:"attendance_id"`
	Kind         AttendanceEventKind `json:"kind" db:"kind"`
	OccurredAt   time.Time           `json:"occurred_at" db:"occurred_at"`
}

// AutoCheckoutTime returns when a stale open record is closed by the sweep:
// check-in plus maxShift, but never past the end of the work date.
func AutoCheckoutTime(checkIn, workDate time.Time, maxShift time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := workDate.Date()
	endOfDay := time.Date(y, m, d, 23, 59, 59, 0, loc)

	at := checkIn.Add(maxShift)
	if at.After(endOfDay) {
		return endOfDay
	}
	return at
}
