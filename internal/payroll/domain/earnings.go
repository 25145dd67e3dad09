package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyEarnings is one day's resolved hours and pay.
type DailyEarnings struct {
	Date          string              `json:"date"`
	Hours         decimal.Decimal     `json:"hours"`
	Earnings      decimal.Decimal     `json:"earnings"`
	HourlyRate    decimal.NullDecimal `json:"hourly_rate"`
	RegularHours  decimal.Decimal     `json:"regular_hours"`
	OvertimeHours decimal.Decimal     `json:"overtime_hours"`
	RegularPay    decimal.Decimal     `json:"regular_pay"`
	OvertimePay   decimal.Decimal     `json:"overtime_pay"`
	IsOverride    bool                `json:"is_override"`
	Anomalies     []Anomaly           `json:"anomalies,omitempty"`
}

// DayInputs is everything the resolver needs for one day, already fetched.
type DayInputs struct {
	Date       time.Time
	Attendance *AttendanceRecord
	Override   *DailyOverride
	Rate       decimal.NullDecimal
	// PriorWeekHours is the effective hours of the same ISO week before Date.
	PriorWeekHours decimal.Decimal
	Policy         OvertimeConfig
}

// ComputeDay resolves one day from its inputs. It is a pure function:
// identical inputs always produce identical output.
func ComputeDay(in DayInputs) DailyEarnings {
	out := computeFromAttendance(in)
	if in.Override == nil {
		return out
	}
	return applyOverride(out, in.Override)
}

// ComputedHours returns the attendance-derived hours for a day.
func ComputedHours(a *AttendanceRecord) decimal.Decimal {
	h, _ := a.WorkedHours()
	return h
}

func computeFromAttendance(in DayInputs) DailyEarnings {
	out := DailyEarnings{
		Date:          TruncateDate(in.Date).Format(DateLayout),
		Hours:         decimal.Zero,
		Earnings:      decimal.Zero,
		HourlyRate:    in.Rate,
		RegularHours:  decimal.Zero,
		OvertimeHours: decimal.Zero,
		RegularPay:    decimal.Zero,
		OvertimePay:   decimal.Zero,
	}

	hours, anomaly := in.Attendance.WorkedHours()
	if anomaly != nil {
		out.Anomalies = append(out.Anomalies, *anomaly)
	}
	out.Hours = hours

	split := SplitWeeklyOvertime(in.PriorWeekHours, hours, in.Policy.WeeklyThresholdHours)
	out.RegularHours = split.RegularHours
	out.OvertimeHours = split.OvertimeHours

	if in.Rate.Valid {
		out.RegularPay, out.OvertimePay = split.Pay(in.Rate.Decimal, in.Policy.OvertimeMultiplier)
		out.Earnings = out.RegularPay.Add(out.OvertimePay)
	}
	return out
}

// applyOverride replaces each present field and nothing else. A rate alone
// relabels the day but leaves computed pay in place; set earnings to reprice.
func applyOverride(computed DailyEarnings, o *DailyOverride) DailyEarnings {
	out := computed
	out.IsOverride = true

	if o.HourlyRate.Valid {
		out.HourlyRate = o.HourlyRate
	}
	if o.RegularHours.Valid {
		out.RegularHours = o.RegularHours.Decimal
	}
	if o.OvertimeHours.Valid {
		out.OvertimeHours = o.OvertimeHours.Decimal
	}
	if o.TotalHours.Valid {
		out.Hours = o.TotalHours.Decimal
	}
	if o.Earnings.Valid {
		out.Earnings = o.Earnings.Decimal
	}
	return out
}

// SumHours totals Hours over a set of days.
func SumHours(days []DailyEarnings) decimal.Decimal {
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(d.Hours)
	}
	return total
}

// SumEarnings totals Earnings over a set of days.
func SumEarnings(days []DailyEarnings) decimal.Decimal {
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(d.Earnings)
	}
	return total
}
